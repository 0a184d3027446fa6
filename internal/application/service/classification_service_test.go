package service

import (
	"context"
	"errors"
	"testing"

	"wallet-persona-indexer/internal/domain/entity"
	domainService "wallet-persona-indexer/internal/domain/service"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0xAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCd"

// stubSource returns canned activity slices, or errors when the
// corresponding flag is set.
type stubSource struct {
	summary   *entity.AccountSummary
	txs       []*entity.ActivityRecord
	transfers []*entity.TokenTransfer
	internals []*entity.InternalTransaction

	failSummary   bool
	failTxs       bool
	failTransfers bool
	failInternals bool
}

var errStub = errors.New("stub failure")

func (s *stubSource) GetAccountSummary(ctx context.Context, address string) (*entity.AccountSummary, error) {
	if s.failSummary {
		return nil, errStub
	}
	return s.summary, nil
}

func (s *stubSource) GetTransactions(ctx context.Context, address string) ([]*entity.ActivityRecord, error) {
	if s.failTxs {
		return nil, errStub
	}
	return s.txs, nil
}

func (s *stubSource) GetTokenTransfers(ctx context.Context, address string) ([]*entity.TokenTransfer, error) {
	if s.failTransfers {
		return nil, errStub
	}
	return s.transfers, nil
}

func (s *stubSource) GetInternalTransactions(ctx context.Context, address string) ([]*entity.InternalTransaction, error) {
	if s.failInternals {
		return nil, errStub
	}
	return s.internals, nil
}

// stubLeaderboard records upserts in memory.
type stubLeaderboard struct {
	upserts    []*entity.WalletScore
	failUpsert bool
}

func (s *stubLeaderboard) UpsertScore(ctx context.Context, score *entity.WalletScore) error {
	if s.failUpsert {
		return errStub
	}
	s.upserts = append(s.upserts, score)
	return nil
}

func (s *stubLeaderboard) GetScore(ctx context.Context, address string) (*entity.WalletScore, error) {
	for _, score := range s.upserts {
		if score.Address == address {
			return score, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *stubLeaderboard) GetTopWallets(ctx context.Context, limit int) ([]*entity.LeaderboardEntry, error) {
	entries := make([]*entity.LeaderboardEntry, 0, len(s.upserts))
	for i, score := range s.upserts {
		if i >= limit {
			break
		}
		entries = append(entries, &entity.LeaderboardEntry{
			Rank:    int64(i + 1),
			Address: score.Address,
		})
	}
	return entries, nil
}

type stubResolver struct {
	name    string
	failing bool
}

func (s *stubResolver) Resolve(ctx context.Context, address string) (string, error) {
	if s.failing {
		return "", errStub
	}
	return s.name, nil
}

func newTestAppService(t *testing.T, source *stubSource, board *stubLeaderboard, names *stubResolver) *ClassificationAppService {
	t.Helper()
	log := logger.NewNopLogger()
	classifier := domainService.NewClassifierService(domainService.DefaultPriceTable(), log)
	return NewClassificationAppService(classifier, source, board, names, log)
}

func TestClassify_InvalidAddress(t *testing.T) {
	svc := newTestAppService(t, &stubSource{}, &stubLeaderboard{}, &stubResolver{})

	for _, input := range []string{"", "nonsense", "0x1234", "0xZZ11111111111111111111111111111111111111"} {
		score, err := svc.Classify(context.Background(), input)
		assert.Nil(t, score)
		assert.ErrorIs(t, err, ErrInvalidAddress, "input %q", input)
	}
}

func TestClassify_PersistsNormalizedAddress(t *testing.T) {
	board := &stubLeaderboard{}
	source := &stubSource{
		summary: &entity.AccountSummary{TransactionCount: 1},
		txs: []*entity.ActivityRecord{
			{
				Hash:    "0xaaa",
				From:    testAddress,
				To:      "",
				TxTypes: []string{entity.TxTypeContractCreation},
			},
		},
	}
	svc := newTestAppService(t, source, board, &stubResolver{name: "builder.base.eth"})

	score, err := svc.Classify(context.Background(), "  "+testAddress+"  ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", score.Address)
	assert.Equal(t, "builder.base.eth", score.DisplayName)
	assert.Equal(t, entity.ClassificationBuilder, score.Classification)

	require.Len(t, board.upserts, 1)
	assert.Same(t, score, board.upserts[0])
}

func TestClassify_DegradesOnPartialSourceFailure(t *testing.T) {
	source := &stubSource{
		summary: &entity.AccountSummary{TransactionCount: 3},
		txs: []*entity.ActivityRecord{
			{
				Hash:     "0xaaa",
				From:     testAddress,
				To:       "0x2222222222222222222222222222222222222222",
				MethodID: "0x12345678",
				TxTypes:  []string{entity.TxTypeContractCall},
			},
		},
		failTransfers: true,
		failInternals: true,
	}
	svc := newTestAppService(t, source, &stubLeaderboard{}, &stubResolver{})

	score, err := svc.Classify(context.Background(), testAddress)
	require.NoError(t, err)
	// The surviving slices still score; the failed ones contribute zero.
	assert.Equal(t, int64(1), score.DegenScore)
	assert.Equal(t, int64(3), score.TotalTransactionCount)
}

func TestClassify_DegradesOnTotalSourceFailure(t *testing.T) {
	source := &stubSource{
		failSummary:   true,
		failTxs:       true,
		failTransfers: true,
		failInternals: true,
	}
	board := &stubLeaderboard{}
	svc := newTestAppService(t, source, board, &stubResolver{})

	score, err := svc.Classify(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, entity.ClassificationNew, score.Classification)
	assert.Equal(t, int64(0), score.BuilderScore)
	assert.Equal(t, int64(0), score.DegenScore)
	require.Len(t, board.upserts, 1)
}

func TestClassify_SurvivesPersistenceFailure(t *testing.T) {
	board := &stubLeaderboard{failUpsert: true}
	svc := newTestAppService(t, &stubSource{}, board, &stubResolver{})

	score, err := svc.Classify(context.Background(), testAddress)
	require.NoError(t, err)
	require.NotNil(t, score)
}

func TestClassify_SurvivesResolverFailure(t *testing.T) {
	svc := newTestAppService(t, &stubSource{}, &stubLeaderboard{}, &stubResolver{failing: true})

	score, err := svc.Classify(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Empty(t, score.DisplayName)
}

func TestClassify_Repeatable(t *testing.T) {
	source := &stubSource{
		summary: &entity.AccountSummary{TransactionCount: 2},
		txs: []*entity.ActivityRecord{
			{
				Hash:     "0xaaa",
				From:     testAddress,
				To:       "0x2222222222222222222222222222222222222222",
				MethodID: "0xa9059cbb",
				TxTypes:  []string{entity.TxTypeContractCall},
			},
		},
	}
	svc := newTestAppService(t, source, &stubLeaderboard{}, &stubResolver{})

	first, err := svc.Classify(context.Background(), testAddress)
	require.NoError(t, err)
	second, err := svc.Classify(context.Background(), testAddress)
	require.NoError(t, err)

	first.ClassifiedAt = second.ClassifiedAt
	assert.Equal(t, first, second)
}

func TestClassifyBatch_SkipsFailures(t *testing.T) {
	board := &stubLeaderboard{}
	svc := newTestAppService(t, &stubSource{}, board, &stubResolver{})

	scores := svc.ClassifyBatch(context.Background(), []string{
		testAddress,
		"not-an-address",
		"0x2222222222222222222222222222222222222222",
	})

	require.Len(t, scores, 2)
	assert.Len(t, board.upserts, 2)
}

func TestGetTopWallets_ClampsLimit(t *testing.T) {
	board := &stubLeaderboard{}
	for i := 0; i < 3; i++ {
		board.upserts = append(board.upserts, entity.NewWalletScore(testAddress))
	}
	svc := NewLeaderboardAppService(board, logger.NewNopLogger())

	entries, err := svc.GetTopWallets(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Rank)
	assert.Equal(t, int64(2), entries[1].Rank)

	entries, err = svc.GetTopWallets(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = svc.GetTopWallets(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestGetWalletScore_ValidatesAddress(t *testing.T) {
	svc := NewLeaderboardAppService(&stubLeaderboard{}, logger.NewNopLogger())

	_, err := svc.GetWalletScore(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
