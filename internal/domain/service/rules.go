package service

import (
	"encoding/hex"

	"wallet-persona-indexer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/crypto"
)

// Scoring weights.
const (
	deployWeight   = 10 // contract deployment / factory bytecode
	transferWeight = 1  // transfer/approve style calls
	mintWeight     = 2  // mint/claim style calls
	swapCallWeight = 3  // application-level swap calls outside known routers
	tokenOutWeight = 2  // wallet is the token sender
	tokenInWeight  = 1  // wallet is the token receiver
)

// Bulk-activity bonus thresholds. Both tiers stack when exceeded.
const (
	txBonusThresholdLow     = 100
	txBonusLow              = 2
	txBonusThresholdHigh    = 1000
	txBonusHigh             = 5
	tokenBonusThresholdLow  = 50
	tokenBonusLow           = 2
	tokenBonusThresholdHigh = 100
	tokenBonusHigh          = 5
)

// builderRatio is the comparative gate for the Builder/Degen decision.
const builderRatio = 1.5

// dustThresholdEther: native transfers at or below this contribute no volume.
const dustThresholdEther = 0.0001

// PriceTable holds the fixed unit prices used for the volume approximation.
// These are heuristic display constants, not a price feed; a real price
// source can be injected through the configuration.
type PriceTable struct {
	ETHUSD      float64
	StableUSD   float64
	FallbackUSD float64
}

// DefaultPriceTable returns the approximate unit prices used when the
// configuration supplies none.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		ETHUSD:      3500.0,
		StableUSD:   1.0,
		FallbackUSD: 0.01,
	}
}

// methodID derives the 4-byte method identifier for a canonical function
// signature, 0x-prefixed lower-case hex.
func methodID(signature string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(signature))[:4])
}

// initializeRuleTables populates the fixed lookup tables. They are loaded
// once at construction and never mutated afterwards.
func (cs *ClassifierService) initializeRuleTables() {
	// Known DEX router infrastructure on Base. Traffic to these addresses
	// is excluded from Degen scoring entirely.
	cs.dexRouters = map[string]string{
		"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": "Uniswap Universal Router",
		"0x2626664c2603336e57b271c5c0b26f421741e481": "Uniswap V3 SwapRouter02",
		"0x198ef79f1f515f02dfe9e3115ed9fc07183f02fc": "Uniswap Universal Router (old)",
		"0x327df1e6de05895d2ab08513aadd9313fe505d86": "BaseSwap Router",
		"0xcf77a3ba9a5ca399b7c97c74d54e5b1beb874e43": "Aerodrome Router",
		"0x1111111254eeb25477b68fb85ed929f73a960582": "1inch Aggregation Router v5",
		"0xdef1c0ded9bec7f1a1670819833240f027b25eff": "0x Exchange Proxy",
	}

	// Router-level swap/multicall selectors. Matching transactions are
	// excluded from Degen scoring even when the router address is unknown.
	cs.swapSelectors = make(map[string]bool)
	for _, signature := range []string{
		"swapExactETHForTokens(uint256,address[],address,uint256)",
		"swapETHForExactTokens(uint256,address[],address,uint256)",
		"swapExactTokensForETH(uint256,uint256,address[],address,uint256)",
		"swapExactTokensForTokens(uint256,uint256,address[],address,uint256)",
		"multicall(bytes[])",
		"multicall(uint256,bytes[])",
		"execute(bytes,bytes[],uint256)",
		"exactInput((bytes,address,uint256,uint256,uint256))",
		"exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))",
		"exactOutput((bytes,address,uint256,uint256,uint256))",
		"exactOutputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))",
	} {
		cs.swapSelectors[methodID(signature)] = true
	}

	// Application-level degen-signal selectors with their weights. These are
	// call patterns hit directly on contracts, not routed through a known
	// router.
	cs.degenSelectors = map[string]int64{
		methodID("transfer(address,uint256)"):                 transferWeight,
		methodID("approve(address,uint256)"):                  transferWeight,
		methodID("transferFrom(address,address,uint256)"):     transferWeight,
		methodID("safeTransferFrom(address,address,uint256)"): transferWeight,
		methodID("mint()"):                                    mintWeight,
		methodID("mint(uint256)"):                             mintWeight,
		methodID("mint(address,uint256)"):                     mintWeight,
		methodID("claim()"):                                   mintWeight,
		methodID("swap(uint256,uint256,address,bytes)"):       swapCallWeight,
	}

	// Known dApp contracts on Base, used only for the top-dApp display
	// counter, never for scoring weight.
	cs.knownDapps = map[string]string{
		"0xcf205808ed36593aa40a44f10c7f7c2f67d4a4d4": "friend.tech",
		"0xba5e05cb26b78eda3a2f8e3b3814726305dcac83": "BasePaint",
		"0x03a520b32c04bf3beef7beb72e919cf822ed34f1": "Uniswap V3 Positions",
		"0x4200000000000000000000000000000000000006": "WETH",
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": "USDC",
		"0x940181a94a35a4569e4529a3cdfb74e38fd98631": "Aerodrome",
	}

	// Contract init-code prefixes. Call data starting with one of these is
	// treated as a factory-style deployment even when the transaction itself
	// is not flagged as a creation. The first four bytes are enough to
	// recognize the common solc preambles and the EIP-1167 minimal proxy.
	cs.bytecodePrefixes = map[string]bool{
		"0x60806040": true, // solc >= 0.4.22 init code
		"0x60606040": true, // older solc init code
		"0x3d602d80": true, // EIP-1167 minimal proxy
	}

	// Stablecoin symbols converted 1:1 for the volume approximation.
	cs.stableSymbols = map[string]bool{
		"USDC":  true,
		"USDBC": true,
		"USDT":  true,
		"DAI":   true,
		"FRAX":  true,
	}

	// Symbols priced at the fixed ETH unit price.
	cs.ethSymbols = map[string]bool{
		"ETH":  true,
		"WETH": true,
	}

	cs.badgeRules = []badgeRule{
		{entity.BadgeMasterBuilder, func(ws *entity.WalletScore) bool { return ws.ContractsDeployed >= 10 }},
		{entity.BadgeContractCreator, func(ws *entity.WalletScore) bool { return ws.ContractsDeployed >= 5 }},
		{entity.BadgeDeployer, func(ws *entity.WalletScore) bool { return ws.ContractsDeployed >= 1 }},
		{entity.BadgeTokenMaximalist, func(ws *entity.WalletScore) bool { return ws.TokenTransferCount >= 100 }},
		{entity.BadgeTokenFlipper, func(ws *entity.WalletScore) bool { return ws.TokenTransferCount >= 50 }},
		{entity.BadgeBaseVeteran, func(ws *entity.WalletScore) bool { return ws.TotalTransactionCount >= 1000 }},
		{entity.BadgeActiveOnBase, func(ws *entity.WalletScore) bool { return ws.TotalTransactionCount >= 100 }},
		{entity.BadgeWhale, func(ws *entity.WalletScore) bool { return ws.TotalVolumeUSD >= 100000 }},
		{entity.BadgeHighRoller, func(ws *entity.WalletScore) bool { return ws.TotalVolumeUSD >= 10000 }},
		{entity.BadgeDappDevotee, func(ws *entity.WalletScore) bool { return ws.TopDappInteractions >= 25 }},
		{entity.BadgeTrueNeutral, func(ws *entity.WalletScore) bool {
			if ws.Classification == entity.ClassificationNew {
				return false
			}
			diff := ws.BuilderPercentage - 50
			if diff < 0 {
				diff = -diff
			}
			return diff <= 5
		}},
		{entity.BadgeCertifiedBuilder, func(ws *entity.WalletScore) bool { return ws.Classification == entity.ClassificationBuilder }},
		{entity.BadgeCertifiedDegen, func(ws *entity.WalletScore) bool { return ws.Classification == entity.ClassificationDegen }},
	}
}

// badgeRule gates a single badge on the finished score. Badges are purely
// additive; rules never interact.
type badgeRule struct {
	badge entity.Badge
	match func(*entity.WalletScore) bool
}
