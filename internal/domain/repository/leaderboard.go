package repository

import (
	"context"

	"wallet-persona-indexer/internal/domain/entity"
)

// LeaderboardRepository defines the persistence contract for wallet scores.
// Scores are keyed by lower-cased address with last-write-wins semantics.
type LeaderboardRepository interface {
	// UpsertScore creates or overwrites the stored score for an address.
	UpsertScore(ctx context.Context, score *entity.WalletScore) error

	// GetScore retrieves the stored score for an address.
	GetScore(ctx context.Context, address string) (*entity.WalletScore, error)

	// GetTopWallets retrieves entries ordered by combined score, descending.
	GetTopWallets(ctx context.Context, limit int) ([]*entity.LeaderboardEntry, error)
}
