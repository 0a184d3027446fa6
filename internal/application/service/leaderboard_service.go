package service

import (
	"context"
	"fmt"
	"strings"

	"wallet-persona-indexer/internal/domain/entity"
	"wallet-persona-indexer/internal/domain/repository"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	defaultLeaderboardLimit = 100
	maxLeaderboardLimit     = 1000
)

// LeaderboardAppService exposes reads over the persisted wallet scores.
type LeaderboardAppService struct {
	leaderboard repository.LeaderboardRepository
	logger      *logger.Logger
}

// NewLeaderboardAppService creates a new leaderboard application service
func NewLeaderboardAppService(
	leaderboard repository.LeaderboardRepository,
	logger *logger.Logger,
) *LeaderboardAppService {
	return &LeaderboardAppService{
		leaderboard: leaderboard,
		logger:      logger.WithComponent("leaderboard-service"),
	}
}

// GetTopWallets returns the ranked leaderboard, clamped to a sane limit.
func (s *LeaderboardAppService) GetTopWallets(ctx context.Context, limit int) ([]*entity.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := s.leaderboard.GetTopWallets(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	s.logger.Debug("Fetched leaderboard", zap.Int("entries", len(entries)))
	return entries, nil
}

// GetWalletScore returns the stored score for a single address.
func (s *LeaderboardAppService) GetWalletScore(ctx context.Context, address string) (*entity.WalletScore, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if !common.IsHexAddress(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return s.leaderboard.GetScore(ctx, normalized)
}
