package service

import (
	"context"
	"math"
	"math/big"
	"strings"
	"time"

	"wallet-persona-indexer/internal/domain/entity"
	"wallet-persona-indexer/internal/infrastructure/logger"
)

// ActivitySource provides read-only access to an address's on-chain history.
// Implementations talk to a block-explorer API; every method is independent
// and idempotent so callers may issue them concurrently.
type ActivitySource interface {
	// GetAccountSummary returns the balance and transaction counters.
	GetAccountSummary(ctx context.Context, address string) (*entity.AccountSummary, error)

	// GetTransactions returns the most recent transactions for the address.
	GetTransactions(ctx context.Context, address string) ([]*entity.ActivityRecord, error)

	// GetTokenTransfers returns the most recent token transfers for the address.
	GetTokenTransfers(ctx context.Context, address string) ([]*entity.TokenTransfer, error)

	// GetInternalTransactions returns internal calls involving the address.
	GetInternalTransactions(ctx context.Context, address string) ([]*entity.InternalTransaction, error)
}

// ClassifierService converts raw per-address activity into builder/degen
// scores, a classification, a personality, and badges. Scoring is a pure
// function of the supplied bundle: the rule tables are loaded once at
// construction and never mutated, and no state survives between calls.
type ClassifierService struct {
	prices           PriceTable
	dexRouters       map[string]string
	swapSelectors    map[string]bool
	degenSelectors   map[string]int64
	knownDapps       map[string]string
	bytecodePrefixes map[string]bool
	stableSymbols    map[string]bool
	ethSymbols       map[string]bool
	badgeRules       []badgeRule
	logger           *logger.Logger
}

// NewClassifierService creates a classifier with the fixed rule tables and
// the given price constants.
func NewClassifierService(prices PriceTable, log *logger.Logger) *ClassifierService {
	if prices.ETHUSD <= 0 {
		prices = DefaultPriceTable()
	}
	cs := &ClassifierService{
		prices: prices,
		logger: log.WithComponent("classifier"),
	}
	cs.initializeRuleTables()
	return cs
}

// ScoreActivity reduces an activity bundle to a fully-derived WalletScore.
// Missing slices (nil summary, empty lists) contribute zero, so a bundle
// degraded by fetch failures still yields a best-effort result.
func (cs *ClassifierService) ScoreActivity(address string, bundle *entity.ActivityBundle) *entity.WalletScore {
	address = strings.ToLower(address)
	score := entity.NewWalletScore(address)
	score.ClassifiedAt = time.Now()

	if bundle == nil {
		return score
	}

	if bundle.Summary != nil {
		score.ETHBalance = weiToEtherString(bundle.Summary.BalanceWei)
		score.TotalTransactionCount = bundle.Summary.TransactionCount
		score.TokenTransferCount = bundle.Summary.TokenTransferCount
	}

	// Transaction hashes already counted as deployments, so the internal
	// transaction pass does not double count them.
	deployments := make(map[string]bool)

	dappHits := make(map[string]int64)
	var dappOrder []string

	for _, tx := range bundle.Transactions {
		outgoing := tx.IsOutgoingFrom(address)
		cs.accumulateNativeVolume(score, tx, outgoing)

		// Rule 1: contract deployment. Nothing else applies to this tx.
		if outgoing && tx.IsDeployment() {
			score.BuilderScore += deployWeight
			score.ContractsDeployed++
			deployments[strings.ToLower(tx.Hash)] = true
			continue
		}

		receiver := strings.ToLower(tx.To)
		selector := normalizeMethodID(tx.MethodID)

		// Rule 2: known DEX router infrastructure is excluded from Degen
		// scoring entirely.
		if _, routed := cs.dexRouters[receiver]; routed {
			continue
		}
		if cs.swapSelectors[selector] {
			continue
		}

		// Rule 3: known dApp interaction tracking (display only, no score).
		if name, known := cs.knownDapps[receiver]; known {
			if dappHits[name] == 0 {
				dappOrder = append(dappOrder, name)
			}
			dappHits[name]++
		}

		// Incoming transactions carry no further signal.
		if !outgoing {
			continue
		}

		// Rule 4: application-level degen-signal selectors.
		if weight, hit := cs.degenSelectors[selector]; hit {
			score.DegenScore += weight
			continue
		}

		// Rule 6: factory/bytecode heuristic. Checked before the generic
		// fallback so raw init-code calls count as builder activity.
		if cs.bytecodePrefixes[selector] {
			score.BuilderScore += deployWeight
			continue
		}

		// Rule 5: generic contract-call fallback.
		if tx.HasTxType(entity.TxTypeContractCall) && !tx.HasTxType(entity.TxTypeCoinTransfer) {
			score.DegenScore++
		}
	}

	// Secondary contract-creation signal from internal transactions.
	for _, itx := range bundle.InternalTransactions {
		if !itx.IsCreation() || !strings.EqualFold(itx.From, address) {
			continue
		}
		hash := strings.ToLower(itx.Hash)
		if deployments[hash] {
			continue
		}
		deployments[hash] = true
		score.BuilderScore += deployWeight
		score.ContractsDeployed++
	}

	// Token-transfer pass: disposal weighs more than accumulation.
	for _, transfer := range bundle.TokenTransfers {
		if strings.EqualFold(transfer.From, address) {
			score.DegenScore += tokenOutWeight
		} else if strings.EqualFold(transfer.To, address) {
			score.DegenScore += tokenInWeight
		}
		score.TotalVolumeUSD += cs.tokenVolumeUSD(transfer)
	}

	cs.applyBulkBonuses(score)
	cs.deriveTopDapp(score, dappHits, dappOrder)
	cs.deriveClassification(score)
	cs.derivePercentages(score)
	cs.derivePersonality(score)
	cs.deriveBadges(score)

	return score
}

// accumulateNativeVolume adds the approximate USD value of a transaction's
// native transfer and, for outgoing transactions, its paid fee.
func (cs *ClassifierService) accumulateNativeVolume(score *entity.WalletScore, tx *entity.ActivityRecord, outgoing bool) {
	if value := weiToEther(tx.Value); value > dustThresholdEther {
		score.TotalVolumeUSD += value * cs.prices.ETHUSD
	}
	if outgoing {
		if fee := weiToEther(tx.Fee); fee > 0 {
			score.TotalVolumeUSD += fee * cs.prices.ETHUSD
		}
	}
}

// tokenVolumeUSD converts one token transfer to approximate USD: stablecoins
// 1:1, ETH/WETH at the fixed unit price, everything else at the low fallback
// price. Raw amounts are scaled by the token's declared decimals first.
func (cs *ClassifierService) tokenVolumeUSD(transfer *entity.TokenTransfer) float64 {
	amount, ok := new(big.Float).SetString(transfer.RawAmount)
	if !ok || amount.Sign() <= 0 {
		return 0
	}
	decimals := transfer.Decimals
	if decimals < 0 || decimals > 77 {
		decimals = 18
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled, _ := new(big.Float).Quo(amount, scale).Float64()

	symbol := strings.ToUpper(transfer.Symbol)
	switch {
	case cs.stableSymbols[symbol]:
		return scaled * cs.prices.StableUSD
	case cs.ethSymbols[symbol]:
		return scaled * cs.prices.ETHUSD
	default:
		return scaled * cs.prices.FallbackUSD
	}
}

// applyBulkBonuses adds the flat activity bonuses. Tiers stack: a wallet
// past the high threshold also earns the low one.
func (cs *ClassifierService) applyBulkBonuses(score *entity.WalletScore) {
	if score.TotalTransactionCount > txBonusThresholdLow {
		score.BuilderScore += txBonusLow
	}
	if score.TotalTransactionCount > txBonusThresholdHigh {
		score.BuilderScore += txBonusHigh
	}
	if score.TokenTransferCount > tokenBonusThresholdLow {
		score.DegenScore += tokenBonusLow
	}
	if score.TokenTransferCount > tokenBonusThresholdHigh {
		score.DegenScore += tokenBonusHigh
	}
}

// deriveTopDapp picks the known dApp with the most interactions, ties broken
// by first-seen order.
func (cs *ClassifierService) deriveTopDapp(score *entity.WalletScore, hits map[string]int64, order []string) {
	for _, name := range order {
		if hits[name] > score.TopDappInteractions {
			score.TopDapp = name
			score.TopDappInteractions = hits[name]
		}
	}
}

// deriveClassification applies the comparative decision rules in order,
// first match wins.
func (cs *ClassifierService) deriveClassification(score *entity.WalletScore) {
	builder := float64(score.BuilderScore)
	degen := float64(score.DegenScore)
	switch {
	case score.TotalTransactionCount == 0:
		score.Classification = entity.ClassificationNew
	case score.BuilderScore == 0 && score.DegenScore == 0:
		score.Classification = entity.ClassificationBalanced
	case builder >= degen*builderRatio && score.ContractsDeployed > 0:
		score.Classification = entity.ClassificationBuilder
	case degen >= builder*builderRatio:
		score.Classification = entity.ClassificationDegen
	default:
		score.Classification = entity.ClassificationBalanced
	}
}

// derivePercentages computes the rounded builder/degen split, defaulting to
// an even split when both scores are zero.
func (cs *ClassifierService) derivePercentages(score *entity.WalletScore) {
	total := score.BuilderScore + score.DegenScore
	if total == 0 {
		score.BuilderPercentage = 50
		score.DegenPercentage = 50
		return
	}
	score.BuilderPercentage = int(math.Round(100 * float64(score.BuilderScore) / float64(total)))
	score.DegenPercentage = 100 - score.BuilderPercentage
}

func (cs *ClassifierService) derivePersonality(score *entity.WalletScore) {
	switch {
	case score.Classification == entity.ClassificationNew:
		score.Personality = entity.PersonalityNewToBase
	case score.BuilderPercentage >= 80:
		score.Personality = entity.PersonalityUltimateBuilder
	case score.BuilderPercentage >= 60:
		score.Personality = entity.PersonalityBuilderLeaning
	case score.DegenPercentage >= 80:
		score.Personality = entity.PersonalityFullDegen
	case score.DegenPercentage >= 60:
		score.Personality = entity.PersonalityDegenCurious
	default:
		score.Personality = entity.PersonalityPerfectlyBalanced
	}
}

func (cs *ClassifierService) deriveBadges(score *entity.WalletScore) {
	for _, rule := range cs.badgeRules {
		if rule.match(score) {
			score.Badges = append(score.Badges, rule.badge)
		}
	}
}

// normalizeMethodID lower-cases a selector and ensures the 0x prefix so it
// matches the rule tables. Returns "" for anything shorter than 4 bytes.
func normalizeMethodID(methodID string) string {
	id := strings.ToLower(strings.TrimSpace(methodID))
	if id == "" || id == "0x" {
		return ""
	}
	if !strings.HasPrefix(id, "0x") {
		id = "0x" + id
	}
	if len(id) < 10 {
		return ""
	}
	return id[:10]
}

// weiToEther parses a decimal wei string into ether as float64. Invalid
// input degrades to zero.
func weiToEther(wei string) float64 {
	if wei == "" {
		return 0
	}
	value, ok := new(big.Float).SetString(wei)
	if !ok {
		return 0
	}
	ether, _ := new(big.Float).Quo(value, big.NewFloat(1e18)).Float64()
	return ether
}

// weiToEtherString formats a wei balance as a decimal ether string.
func weiToEtherString(wei string) string {
	value, ok := new(big.Float).SetString(wei)
	if !ok {
		return "0"
	}
	return new(big.Float).Quo(value, big.NewFloat(1e18)).Text('f', 6)
}
