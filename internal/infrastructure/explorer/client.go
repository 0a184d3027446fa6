package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet-persona-indexer/internal/domain/entity"
	"wallet-persona-indexer/internal/infrastructure/config"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Client talks to a Blockscout-compatible REST API (api/v2) and maps its
// responses onto the domain activity entities. All methods are read-only
// and idempotent.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
	logger     *logger.Logger
}

// NewClient creates an explorer client from configuration.
func NewClient(cfg *config.ExplorerConfig, log *logger.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		logger:     log.WithComponent("explorer-client"),
	}
}

// Wire types for the explorer's JSON responses.

type addressResponse struct {
	Hash        string `json:"hash"`
	CoinBalance string `json:"coin_balance"`
}

type countersResponse struct {
	TransactionsCount   string `json:"transactions_count"`
	TokenTransfersCount string `json:"token_transfers_count"`
}

type addressParty struct {
	Hash string `json:"hash"`
}

type feeField struct {
	Value string `json:"value"`
}

type transactionItem struct {
	Hash            string        `json:"hash"`
	From            *addressParty `json:"from"`
	To              *addressParty `json:"to"`
	RawInput        string        `json:"raw_input"`
	Value           string        `json:"value"`
	Fee             *feeField     `json:"fee"`
	TxTypes         []string      `json:"tx_types"`
	CreatedContract *addressParty `json:"created_contract"`
}

type transactionsResponse struct {
	Items []transactionItem `json:"items"`
}

type tokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type tokenTotal struct {
	Value    string `json:"value"`
	Decimals string `json:"decimals"`
}

type tokenTransferItem struct {
	TxHash string        `json:"transaction_hash"`
	From   *addressParty `json:"from"`
	To     *addressParty `json:"to"`
	Token  *tokenInfo    `json:"token"`
	Total  *tokenTotal   `json:"total"`
}

type tokenTransfersResponse struct {
	Items []tokenTransferItem `json:"items"`
}

type internalTxItem struct {
	TxHash string        `json:"transaction_hash"`
	Type   string        `json:"type"`
	From   *addressParty `json:"from"`
	To     *addressParty `json:"to"`
}

type internalTxResponse struct {
	Items []internalTxItem `json:"items"`
}

// GetAccountSummary fetches the balance and counters for an address. The
// two underlying endpoints are combined into one summary; if the counters
// endpoint fails the whole summary fails (the caller degrades it to nil).
func (c *Client) GetAccountSummary(ctx context.Context, address string) (*entity.AccountSummary, error) {
	var addr addressResponse
	if err := c.get(ctx, "/addresses/"+address, &addr); err != nil {
		return nil, fmt.Errorf("failed to fetch address info: %w", err)
	}

	var counters countersResponse
	if err := c.get(ctx, "/addresses/"+address+"/counters", &counters); err != nil {
		return nil, fmt.Errorf("failed to fetch address counters: %w", err)
	}

	return &entity.AccountSummary{
		Address:            strings.ToLower(address),
		BalanceWei:         addr.CoinBalance,
		TransactionCount:   parseCount(counters.TransactionsCount),
		TokenTransferCount: parseCount(counters.TokenTransfersCount),
	}, nil
}

// GetTransactions fetches the most recent page of transactions.
func (c *Client) GetTransactions(ctx context.Context, address string) ([]*entity.ActivityRecord, error) {
	var resp transactionsResponse
	if err := c.get(ctx, "/addresses/"+address+"/transactions", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	items := c.capItems(len(resp.Items))
	records := make([]*entity.ActivityRecord, 0, items)
	for _, item := range resp.Items[:items] {
		record := &entity.ActivityRecord{
			Hash:            item.Hash,
			From:            partyHash(item.From),
			To:              partyHash(item.To),
			MethodID:        selectorFromInput(item.RawInput),
			Value:           item.Value,
			TxTypes:         item.TxTypes,
			CreatedContract: item.CreatedContract != nil && item.CreatedContract.Hash != "",
		}
		if item.Fee != nil {
			record.Fee = item.Fee.Value
		}
		records = append(records, record)
	}
	return records, nil
}

// GetTokenTransfers fetches the most recent page of token transfers.
func (c *Client) GetTokenTransfers(ctx context.Context, address string) ([]*entity.TokenTransfer, error) {
	var resp tokenTransfersResponse
	if err := c.get(ctx, "/addresses/"+address+"/token-transfers", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch token transfers: %w", err)
	}

	items := c.capItems(len(resp.Items))
	transfers := make([]*entity.TokenTransfer, 0, items)
	for _, item := range resp.Items[:items] {
		transfer := &entity.TokenTransfer{
			Hash: item.TxHash,
			From: partyHash(item.From),
			To:   partyHash(item.To),
		}
		if item.Token != nil {
			transfer.Symbol = item.Token.Symbol
			transfer.Decimals = int(parseCount(item.Token.Decimals))
		}
		if item.Total != nil {
			transfer.RawAmount = item.Total.Value
			// Per-transfer decimals override the token default when present.
			if item.Total.Decimals != "" {
				transfer.Decimals = int(parseCount(item.Total.Decimals))
			}
		}
		transfers = append(transfers, transfer)
	}
	return transfers, nil
}

// GetInternalTransactions fetches internal calls involving the address.
func (c *Client) GetInternalTransactions(ctx context.Context, address string) ([]*entity.InternalTransaction, error) {
	var resp internalTxResponse
	if err := c.get(ctx, "/addresses/"+address+"/internal-transactions", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch internal transactions: %w", err)
	}

	items := c.capItems(len(resp.Items))
	internals := make([]*entity.InternalTransaction, 0, items)
	for _, item := range resp.Items[:items] {
		internals = append(internals, &entity.InternalTransaction{
			Hash:     item.TxHash,
			From:     partyHash(item.From),
			To:       partyHash(item.To),
			CallType: item.Type,
		})
	}
	return internals, nil
}

// get issues one GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path
	if c.apiKey != "" {
		endpoint += "?apikey=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Explorer returned non-200 status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// capItems limits a response page to the configured page size.
func (c *Client) capItems(n int) int {
	if c.pageSize > 0 && n > c.pageSize {
		return c.pageSize
	}
	return n
}

func partyHash(p *addressParty) string {
	if p == nil {
		return ""
	}
	return p.Hash
}

// selectorFromInput extracts the 4-byte method selector from raw call data.
func selectorFromInput(input string) string {
	input = strings.ToLower(input)
	if !strings.HasPrefix(input, "0x") || len(input) < 10 {
		return ""
	}
	return input[:10]
}

// parseCount parses explorer counter strings, which may carry decimal
// points ("42.0"). Unparseable input degrades to zero.
func parseCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
