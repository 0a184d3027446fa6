package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, 8, cfg.App.WorkerPoolSize)
	assert.Equal(t, 25, cfg.App.BatchSize)

	assert.Equal(t, "https://base.blockscout.com/api/v2", cfg.Explorer.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Explorer.RequestTimeout)
	assert.Equal(t, 100, cfg.Explorer.PageSize)

	assert.Equal(t, 3500.0, cfg.Pricing.ETHUSD)
	assert.Equal(t, 1.0, cfg.Pricing.StableUSD)
	assert.Equal(t, 0.01, cfg.Pricing.FallbackUSD)

	assert.True(t, cfg.Naming.Enabled)
	assert.Equal(t, 10000, cfg.Naming.CacheSize)

	assert.Equal(t, "CLASSIFY", cfg.NATS.StreamName)
	assert.Equal(t, "classify", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "persona-indexer", cfg.NATS.ConsumerGroup)

	assert.Equal(t, "neo4j://localhost:7687", cfg.Neo4J.URI)
	assert.Equal(t, "neo4j", cfg.Neo4J.Database)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("EXPLORER_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "test-key", cfg.Explorer.APIKey)
}
