package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet-persona-indexer/internal/domain/entity"
	"wallet-persona-indexer/internal/domain/repository"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4JLeaderboardRepository implements LeaderboardRepository interface
type Neo4JLeaderboardRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JLeaderboardRepository creates a new Neo4J leaderboard repository
func NewNeo4JLeaderboardRepository(client *Neo4JClient, logger *logger.Logger) repository.LeaderboardRepository {
	return &Neo4JLeaderboardRepository{
		client: client,
		logger: logger.WithComponent("neo4j-leaderboard-repo"),
	}
}

// UpsertScore creates or overwrites the stored score for an address.
// Last write wins; the address key is always lower-cased.
func (r *Neo4JLeaderboardRepository) UpsertScore(ctx context.Context, score *entity.WalletScore) error {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MERGE (w:WalletScore {address: $address})
		SET
			w.display_name = $display_name,
			w.builder_score = $builder_score,
			w.degen_score = $degen_score,
			w.combined_score = $combined_score,
			w.contracts_deployed = $contracts_deployed,
			w.token_transfer_count = $token_transfer_count,
			w.total_transaction_count = $total_transaction_count,
			w.eth_balance = $eth_balance,
			w.total_volume_usd = $total_volume_usd,
			w.top_dapp = $top_dapp,
			w.top_dapp_interactions = $top_dapp_interactions,
			w.classification = $classification,
			w.builder_percentage = $builder_percentage,
			w.degen_percentage = $degen_percentage,
			w.personality = $personality,
			w.badges = $badges,
			w.classified_at = datetime($classified_at)
	`

	badges := make([]string, 0, len(score.Badges))
	for _, b := range score.Badges {
		badges = append(badges, string(b))
	}

	params := map[string]interface{}{
		"address":                 strings.ToLower(score.Address),
		"display_name":            score.DisplayName,
		"builder_score":           score.BuilderScore,
		"degen_score":             score.DegenScore,
		"combined_score":          score.CombinedScore(),
		"contracts_deployed":      score.ContractsDeployed,
		"token_transfer_count":    score.TokenTransferCount,
		"total_transaction_count": score.TotalTransactionCount,
		"eth_balance":             score.ETHBalance,
		"total_volume_usd":        score.TotalVolumeUSD,
		"top_dapp":                score.TopDapp,
		"top_dapp_interactions":   score.TopDappInteractions,
		"classification":          string(score.Classification),
		"builder_percentage":      int64(score.BuilderPercentage),
		"degen_percentage":        int64(score.DegenPercentage),
		"personality":             string(score.Personality),
		"badges":                  badges,
		"classified_at":           score.ClassifiedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})

	if err != nil {
		return fmt.Errorf("failed to upsert wallet score: %w", err)
	}

	return nil
}

// GetScore retrieves the stored score for an address.
func (r *Neo4JLeaderboardRepository) GetScore(ctx context.Context, address string) (*entity.WalletScore, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (w:WalletScore {address: $address})
		RETURN w.address, w.display_name, w.builder_score, w.degen_score,
			w.contracts_deployed, w.token_transfer_count, w.total_transaction_count,
			w.eth_balance, w.total_volume_usd, w.top_dapp, w.top_dapp_interactions,
			w.classification, w.builder_percentage, w.degen_percentage,
			w.personality, w.badges, w.classified_at
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]interface{}{"address": strings.ToLower(address)})
		if err != nil {
			return nil, err
		}
		record, err := records.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record.Values, nil
	})

	if err != nil {
		return nil, fmt.Errorf("wallet score not found for %s: %w", address, err)
	}

	values := result.([]interface{})

	score := &entity.WalletScore{
		Address:               asString(values[0]),
		DisplayName:           asString(values[1]),
		BuilderScore:          asInt64(values[2]),
		DegenScore:            asInt64(values[3]),
		ContractsDeployed:     asInt64(values[4]),
		TokenTransferCount:    asInt64(values[5]),
		TotalTransactionCount: asInt64(values[6]),
		ETHBalance:            asString(values[7]),
		TotalVolumeUSD:        asFloat64(values[8]),
		TopDapp:               asString(values[9]),
		TopDappInteractions:   asInt64(values[10]),
		Classification:        entity.Classification(asString(values[11])),
		BuilderPercentage:     int(asInt64(values[12])),
		DegenPercentage:       int(asInt64(values[13])),
		Personality:           entity.Personality(asString(values[14])),
		Badges:                asBadges(values[15]),
	}
	if ts, ok := values[16].(time.Time); ok {
		score.ClassifiedAt = ts
	}

	return score, nil
}

// GetTopWallets retrieves entries ordered by combined score, descending.
func (r *Neo4JLeaderboardRepository) GetTopWallets(ctx context.Context, limit int) ([]*entity.LeaderboardEntry, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (w:WalletScore)
		RETURN w.address, w.display_name, w.builder_score, w.degen_score,
			w.combined_score, w.classification, w.personality
		ORDER BY w.combined_score DESC, w.address ASC
		LIMIT $limit
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]interface{}{"limit": int64(limit)})
		if err != nil {
			return nil, err
		}

		var entries []*entity.LeaderboardEntry
		for records.Next(ctx) {
			values := records.Record().Values
			entries = append(entries, &entity.LeaderboardEntry{
				Address:        asString(values[0]),
				DisplayName:    asString(values[1]),
				BuilderScore:   asInt64(values[2]),
				DegenScore:     asInt64(values[3]),
				CombinedScore:  asInt64(values[4]),
				Classification: entity.Classification(asString(values[5])),
				Personality:    entity.Personality(asString(values[6])),
			})
		}
		return entries, records.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to fetch top wallets: %w", err)
	}

	entries := result.([]*entity.LeaderboardEntry)
	for i, entry := range entries {
		entry.Rank = int64(i + 1)
	}
	return entries, nil
}

// Neo4j value coercion helpers. Missing properties come back nil.

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt64(v interface{}) int64 {
	if n, ok := v.(int64); ok {
		return n
	}
	return 0
}

func asFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asBadges(v interface{}) []entity.Badge {
	raw, ok := v.([]interface{})
	if !ok {
		return []entity.Badge{}
	}
	badges := make([]entity.Badge, 0, len(raw))
	for _, item := range raw {
		badges = append(badges, entity.Badge(asString(item)))
	}
	return badges
}
