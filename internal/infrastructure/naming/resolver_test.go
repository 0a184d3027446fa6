package naming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-persona-indexer/internal/infrastructure/config"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.Handler, cacheSize int) (*Resolver, *int) {
	t.Helper()

	requests := 0
	counting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		handler.ServeHTTP(w, r)
	})
	server := httptest.NewServer(counting)
	t.Cleanup(server.Close)

	resolver := NewResolver(&config.NamingConfig{
		Enabled:        true,
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
		CacheSize:      cacheSize,
	}, logger.NewNopLogger())
	return resolver, &requests
}

func namesHandler(names map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for address, name := range names {
			if r.URL.Path == "/addresses/"+address {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"name": "` + name + `"}`))
				return
			}
		}
		http.NotFound(w, r)
	})
}

func TestResolve_Disabled(t *testing.T) {
	resolver := NewResolver(&config.NamingConfig{Enabled: false}, logger.NewNopLogger())

	name, err := resolver.Resolve(context.Background(), "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Equal(t, 0, resolver.CacheLen())
}

func TestResolve_CachesHits(t *testing.T) {
	addr := "0x1111111111111111111111111111111111111111"
	resolver, requests := newTestResolver(t, namesHandler(map[string]string{
		addr: "builder.base.eth",
	}), 0)

	for i := 0; i < 3; i++ {
		name, err := resolver.Resolve(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, "builder.base.eth", name)
	}
	assert.Equal(t, 1, *requests, "repeated lookups must hit the cache")
}

func TestResolve_CaseInsensitive(t *testing.T) {
	addr := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	resolver, requests := newTestResolver(t, namesHandler(map[string]string{
		addr: "degen.base.eth",
	}), 0)

	name, err := resolver.Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "degen.base.eth", name)

	name, err = resolver.Resolve(context.Background(), "0xAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCd")
	require.NoError(t, err)
	assert.Equal(t, "degen.base.eth", name)
	assert.Equal(t, 1, *requests)
}

func TestResolve_CachesMisses(t *testing.T) {
	resolver, requests := newTestResolver(t, namesHandler(nil), 0)

	addr := "0x2222222222222222222222222222222222222222"
	for i := 0; i < 2; i++ {
		name, err := resolver.Resolve(context.Background(), addr)
		require.NoError(t, err)
		assert.Empty(t, name)
	}
	// A 404 is a definitive miss and is cached like a hit.
	assert.Equal(t, 1, *requests)
	assert.Equal(t, 1, resolver.CacheLen())
}

func TestResolve_EvictsOldestWhenFull(t *testing.T) {
	resolver, requests := newTestResolver(t, namesHandler(nil), 2)

	addresses := []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
	}
	for _, addr := range addresses {
		_, err := resolver.Resolve(context.Background(), addr)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, resolver.CacheLen())

	// The first address was evicted, so resolving it again goes back out.
	_, err := resolver.Resolve(context.Background(), addresses[0])
	require.NoError(t, err)
	assert.Equal(t, 4, *requests)
}

func TestResolve_ServerError(t *testing.T) {
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), 0)

	_, err := resolver.Resolve(context.Background(), "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	// Transient failures are never cached.
	assert.Equal(t, 0, resolver.CacheLen())
}
