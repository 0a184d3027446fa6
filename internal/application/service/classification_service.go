package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-persona-indexer/internal/domain/entity"
	"wallet-persona-indexer/internal/domain/repository"
	domainService "wallet-persona-indexer/internal/domain/service"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidAddress is returned when the input is not a well-formed
// 20-byte hex address. It is the only caller-visible error Classify can
// return; data-source failures degrade instead.
var ErrInvalidAddress = errors.New("invalid wallet address")

// NameResolver decorates addresses with display names, best-effort.
type NameResolver interface {
	Resolve(ctx context.Context, address string) (string, error)
}

// ClassificationAppService orchestrates a classification request end to
// end: validate the address, fetch the activity slices, score them, and
// persist the result to the leaderboard store.
type ClassificationAppService struct {
	classifier  *domainService.ClassifierService
	source      domainService.ActivitySource
	leaderboard repository.LeaderboardRepository
	names       NameResolver
	logger      *logger.Logger
}

// NewClassificationAppService creates a new classification application service
func NewClassificationAppService(
	classifier *domainService.ClassifierService,
	source domainService.ActivitySource,
	leaderboard repository.LeaderboardRepository,
	names NameResolver,
	logger *logger.Logger,
) *ClassificationAppService {
	return &ClassificationAppService{
		classifier:  classifier,
		source:      source,
		leaderboard: leaderboard,
		names:       names,
		logger:      logger.WithComponent("classification-service"),
	}
}

// Classify computes a fresh WalletScore for the address. It fails only for
// malformed input; every data-source failure degrades to an empty slice so
// the result is always a best-effort score.
func (s *ClassificationAppService) Classify(ctx context.Context, address string) (*entity.WalletScore, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if !common.IsHexAddress(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	bundle := s.fetchActivity(ctx, normalized)
	score := s.classifier.ScoreActivity(normalized, bundle)

	if name, err := s.names.Resolve(ctx, normalized); err != nil {
		s.logger.Warn("Name resolution failed",
			zap.String("address", normalized),
			zap.Error(err))
	} else {
		score.DisplayName = name
	}

	// Persistence is the leaderboard collaborator's concern; a store
	// failure must not fail the classification itself.
	if err := s.leaderboard.UpsertScore(ctx, score); err != nil {
		s.logger.Warn("Failed to persist wallet score",
			zap.String("address", normalized),
			zap.Error(err))
	}

	s.logger.Info("Classified wallet",
		zap.String("address", normalized),
		zap.String("classification", string(score.Classification)),
		zap.Int64("builder_score", score.BuilderScore),
		zap.Int64("degen_score", score.DegenScore))

	return score, nil
}

// ClassifyBatch classifies multiple addresses, skipping failures.
func (s *ClassificationAppService) ClassifyBatch(ctx context.Context, addresses []string) []*entity.WalletScore {
	scores := make([]*entity.WalletScore, 0, len(addresses))
	for _, address := range addresses {
		score, err := s.Classify(ctx, address)
		if err != nil {
			s.logger.Warn("Skipping address in batch",
				zap.String("address", address),
				zap.Error(err))
			continue
		}
		scores = append(scores, score)
	}
	return scores
}

// fetchActivity issues the four explorer sub-queries concurrently. The
// queries are independent, read-only, and idempotent; each failure is
// absorbed as an empty slice. Every goroutine writes a distinct bundle
// field, so no further synchronization is needed.
func (s *ClassificationAppService) fetchActivity(ctx context.Context, address string) *entity.ActivityBundle {
	bundle := &entity.ActivityBundle{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.source.GetAccountSummary(gctx, address)
		if err != nil {
			s.logger.Warn("Account summary unavailable, degrading to empty",
				zap.String("address", address), zap.Error(err))
			return nil
		}
		bundle.Summary = summary
		return nil
	})

	g.Go(func() error {
		txs, err := s.source.GetTransactions(gctx, address)
		if err != nil {
			s.logger.Warn("Transaction list unavailable, degrading to empty",
				zap.String("address", address), zap.Error(err))
			return nil
		}
		bundle.Transactions = txs
		return nil
	})

	g.Go(func() error {
		transfers, err := s.source.GetTokenTransfers(gctx, address)
		if err != nil {
			s.logger.Warn("Token transfer list unavailable, degrading to empty",
				zap.String("address", address), zap.Error(err))
			return nil
		}
		bundle.TokenTransfers = transfers
		return nil
	})

	g.Go(func() error {
		internals, err := s.source.GetInternalTransactions(gctx, address)
		if err != nil {
			s.logger.Warn("Internal transaction list unavailable, degrading to empty",
				zap.String("address", address), zap.Error(err))
			return nil
		}
		bundle.InternalTransactions = internals
		return nil
	})

	_ = g.Wait()
	return bundle
}
