package entity

import (
	"time"
)

// Classification is the categorical outcome of scoring a wallet.
type Classification string

const (
	ClassificationNew      Classification = "New"
	ClassificationBalanced Classification = "Balanced"
	ClassificationBuilder  Classification = "Builder"
	ClassificationDegen    Classification = "Degen"
)

// Personality is a display label derived from the builder/degen split.
type Personality string

const (
	PersonalityNewToBase         Personality = "New to Base"
	PersonalityUltimateBuilder   Personality = "Ultimate Builder"
	PersonalityBuilderLeaning    Personality = "Builder-Leaning"
	PersonalityFullDegen         Personality = "Full Degen"
	PersonalityDegenCurious      Personality = "Degen-Curious"
	PersonalityPerfectlyBalanced Personality = "Perfectly Balanced"
)

// Badge is an independently-thresholded display label layered on top of a
// WalletScore. Badges carry no behavior.
type Badge string

const (
	BadgeMasterBuilder    Badge = "Master Builder"
	BadgeContractCreator  Badge = "Contract Creator"
	BadgeDeployer         Badge = "Deployer"
	BadgeTokenMaximalist  Badge = "Token Maximalist"
	BadgeTokenFlipper     Badge = "Token Flipper"
	BadgeBaseVeteran      Badge = "Base Veteran"
	BadgeActiveOnBase     Badge = "Active on Base"
	BadgeWhale            Badge = "Whale"
	BadgeHighRoller       Badge = "High Roller"
	BadgeDappDevotee      Badge = "Dapp Devotee"
	BadgeTrueNeutral      Badge = "True Neutral"
	BadgeCertifiedBuilder Badge = "Certified Builder"
	BadgeCertifiedDegen   Badge = "Certified Degen"
)

// WalletScore is the full classification result for one address. It is
// recomputed fresh on every classification pass; persistence is the
// leaderboard store's concern.
type WalletScore struct {
	Address               string         `json:"address"`
	DisplayName           string         `json:"display_name,omitempty"`
	BuilderScore          int64          `json:"builder_score"`
	DegenScore            int64          `json:"degen_score"`
	ContractsDeployed     int64          `json:"contracts_deployed"`
	TokenTransferCount    int64          `json:"token_transfer_count"`
	TotalTransactionCount int64          `json:"total_transaction_count"`
	ETHBalance            string         `json:"eth_balance"`
	TotalVolumeUSD        float64        `json:"total_volume_usd"` // heuristic approximation, not price-feed accurate
	TopDapp               string         `json:"top_dapp"`
	TopDappInteractions   int64          `json:"top_dapp_interactions"`
	Classification        Classification `json:"classification"`
	BuilderPercentage     int            `json:"builder_percentage"`
	DegenPercentage       int            `json:"degen_percentage"`
	Personality           Personality    `json:"personality"`
	Badges                []Badge        `json:"badges"`
	ClassifiedAt          time.Time      `json:"classified_at"`
}

// NewWalletScore returns a zero-activity score for the given address with
// all defaults applied.
func NewWalletScore(address string) *WalletScore {
	return &WalletScore{
		Address:           address,
		ETHBalance:        "0",
		TopDapp:           "None",
		Classification:    ClassificationNew,
		BuilderPercentage: 50,
		DegenPercentage:   50,
		Personality:       PersonalityNewToBase,
		Badges:            []Badge{},
	}
}

// CombinedScore is the leaderboard ranking key.
func (ws *WalletScore) CombinedScore() int64 {
	return ws.BuilderScore + ws.DegenScore
}

// HasBadge reports whether the given badge was awarded.
func (ws *WalletScore) HasBadge(badge Badge) bool {
	for _, b := range ws.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// LeaderboardEntry is a ranked row returned by the leaderboard store.
type LeaderboardEntry struct {
	Rank           int64          `json:"rank"`
	Address        string         `json:"address"`
	DisplayName    string         `json:"display_name,omitempty"`
	BuilderScore   int64          `json:"builder_score"`
	DegenScore     int64          `json:"degen_score"`
	CombinedScore  int64          `json:"combined_score"`
	Classification Classification `json:"classification"`
	Personality    Personality    `json:"personality"`
}
