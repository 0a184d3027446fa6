package entity

import (
	"strings"
)

// Transaction type tags supplied by the block explorer.
const (
	TxTypeContractCall     = "contract_call"
	TxTypeContractCreation = "contract_creation"
	TxTypeCoinTransfer     = "coin_transfer"
	TxTypeTokenTransfer    = "token_transfer"
)

// Internal transaction call types.
const (
	CallTypeCreate  = "create"
	CallTypeCreate2 = "create2"
)

// AccountSummary holds the explorer's per-address counters and balance.
type AccountSummary struct {
	Address            string `json:"address"`
	BalanceWei         string `json:"balance_wei"`
	TransactionCount   int64  `json:"transaction_count"` // nonce-based total
	TokenTransferCount int64  `json:"token_transfer_count"`
}

// ActivityRecord represents a single transaction from the explorer's
// per-address history.
type ActivityRecord struct {
	Hash            string   `json:"hash"`
	From            string   `json:"from"`
	To              string   `json:"to"` // empty for contract deployments
	MethodID        string   `json:"method_id"`
	Value           string   `json:"value"` // wei
	Fee             string   `json:"fee"`   // wei
	CreatedContract bool     `json:"created_contract"`
	TxTypes         []string `json:"tx_types"`
}

// IsOutgoingFrom reports whether the transaction was sent by the given
// address. Both sides are compared lower-cased.
func (a *ActivityRecord) IsOutgoingFrom(address string) bool {
	return strings.EqualFold(a.From, address)
}

// IsDeployment reports whether the transaction created a contract.
func (a *ActivityRecord) IsDeployment() bool {
	return a.To == "" || a.CreatedContract
}

// HasTxType checks whether the explorer tagged the transaction with the
// given type.
func (a *ActivityRecord) HasTxType(txType string) bool {
	for _, t := range a.TxTypes {
		if t == txType {
			return true
		}
	}
	return false
}

// TokenTransfer represents a single ERC-20/721 transfer from the explorer's
// token-transfer history.
type TokenTransfer struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Symbol    string `json:"symbol"`
	Decimals  int    `json:"decimals"`
	RawAmount string `json:"raw_amount"` // unscaled integer amount
}

// InternalTransaction represents an internal call from the explorer,
// used as a secondary contract-creation signal.
type InternalTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	CallType string `json:"call_type"`
}

// IsCreation reports whether the internal call deployed a contract.
func (i *InternalTransaction) IsCreation() bool {
	ct := strings.ToLower(i.CallType)
	return ct == CallTypeCreate || ct == CallTypeCreate2
}

// ActivityBundle groups every data slice fetched for one address. Slices
// that failed to fetch are left nil/empty and contribute nothing to the
// derived score.
type ActivityBundle struct {
	Summary              *AccountSummary        `json:"summary"`
	Transactions         []*ActivityRecord      `json:"transactions"`
	TokenTransfers       []*TokenTransfer       `json:"token_transfers"`
	InternalTransactions []*InternalTransaction `json:"internal_transactions"`
}

// ClassificationRequest is a message on the request feed asking for a
// wallet to be (re)classified.
type ClassificationRequest struct {
	Address string `json:"address"`
}
