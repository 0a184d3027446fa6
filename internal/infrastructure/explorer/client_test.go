package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-persona-indexer/internal/domain/entity"
	"wallet-persona-indexer/internal/infrastructure/config"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x1111111111111111111111111111111111111111"

func newTestClient(t *testing.T, handler http.Handler, pageSize int) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&config.ExplorerConfig{
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
		PageSize:       pageSize,
	}, logger.NewNopLogger())
	return client, server
}

func jsonHandler(routes map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func TestGetAccountSummary(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(map[string]string{
		"/addresses/" + testAddress: `{
			"hash": "0x1111111111111111111111111111111111111111",
			"coin_balance": "2500000000000000000"
		}`,
		"/addresses/" + testAddress + "/counters": `{
			"transactions_count": "142",
			"token_transfers_count": "57.0"
		}`,
	}), 0)

	summary, err := client.GetAccountSummary(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, testAddress, summary.Address)
	assert.Equal(t, "2500000000000000000", summary.BalanceWei)
	assert.Equal(t, int64(142), summary.TransactionCount)
	assert.Equal(t, int64(57), summary.TokenTransferCount)
}

func TestGetAccountSummary_CountersFailure(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(map[string]string{
		"/addresses/" + testAddress: `{"hash": "0x1111111111111111111111111111111111111111", "coin_balance": "0"}`,
	}), 0)

	_, err := client.GetAccountSummary(context.Background(), testAddress)
	require.Error(t, err)
}

func TestGetTransactions(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(map[string]string{
		"/addresses/" + testAddress + "/transactions": `{
			"items": [
				{
					"hash": "0xaaa",
					"from": {"hash": "0x1111111111111111111111111111111111111111"},
					"to": null,
					"raw_input": "0x60806040523480156100",
					"value": "0",
					"fee": {"value": "21000000000000"},
					"tx_types": ["contract_creation"],
					"created_contract": {"hash": "0x3333333333333333333333333333333333333333"}
				},
				{
					"hash": "0xbbb",
					"from": {"hash": "0x2222222222222222222222222222222222222222"},
					"to": {"hash": "0x1111111111111111111111111111111111111111"},
					"raw_input": "0xA9059CBB00000000000000000000000011111111",
					"value": "1000000000000000000",
					"fee": {"value": "1000000000000"},
					"tx_types": ["contract_call", "token_transfer"]
				}
			]
		}`,
	}), 0)

	records, err := client.GetTransactions(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, records, 2)

	deployment := records[0]
	assert.Equal(t, "0xaaa", deployment.Hash)
	assert.Equal(t, "", deployment.To)
	assert.True(t, deployment.CreatedContract)
	assert.True(t, deployment.IsDeployment())
	assert.Equal(t, "21000000000000", deployment.Fee)

	call := records[1]
	// Selectors are lower-cased and truncated to four bytes.
	assert.Equal(t, "0xa9059cbb", call.MethodID)
	assert.True(t, call.HasTxType(entity.TxTypeContractCall))
	assert.False(t, call.IsOutgoingFrom(testAddress))
}

func TestGetTransactions_PageSizeCap(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(map[string]string{
		"/addresses/" + testAddress + "/transactions": `{
			"items": [
				{"hash": "0xaaa", "tx_types": ["coin_transfer"]},
				{"hash": "0xbbb", "tx_types": ["coin_transfer"]},
				{"hash": "0xccc", "tx_types": ["coin_transfer"]}
			]
		}`,
	}), 2)

	records, err := client.GetTransactions(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetTokenTransfers(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(map[string]string{
		"/addresses/" + testAddress + "/token-transfers": `{
			"items": [
				{
					"transaction_hash": "0xaaa",
					"from": {"hash": "0x1111111111111111111111111111111111111111"},
					"to": {"hash": "0x2222222222222222222222222222222222222222"},
					"token": {"symbol": "USDC", "decimals": "6"},
					"total": {"value": "2500000"}
				},
				{
					"transaction_hash": "0xbbb",
					"from": {"hash": "0x2222222222222222222222222222222222222222"},
					"to": {"hash": "0x1111111111111111111111111111111111111111"},
					"token": {"symbol": "WETH", "decimals": "18"},
					"total": {"value": "5", "decimals": "0"}
				}
			]
		}`,
	}), 0)

	transfers, err := client.GetTokenTransfers(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, transfers, 2)

	assert.Equal(t, "USDC", transfers[0].Symbol)
	assert.Equal(t, 6, transfers[0].Decimals)
	assert.Equal(t, "2500000", transfers[0].RawAmount)

	// Per-transfer decimals override the token default.
	assert.Equal(t, 0, transfers[1].Decimals)
	assert.Equal(t, "5", transfers[1].RawAmount)
}

func TestGetInternalTransactions(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(map[string]string{
		"/addresses/" + testAddress + "/internal-transactions": `{
			"items": [
				{
					"transaction_hash": "0xaaa",
					"type": "create2",
					"from": {"hash": "0x1111111111111111111111111111111111111111"},
					"to": null
				},
				{
					"transaction_hash": "0xbbb",
					"type": "call",
					"from": {"hash": "0x2222222222222222222222222222222222222222"},
					"to": {"hash": "0x1111111111111111111111111111111111111111"}
				}
			]
		}`,
	}), 0)

	internals, err := client.GetInternalTransactions(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, internals, 2)
	assert.True(t, internals[0].IsCreation())
	assert.False(t, internals[1].IsCreation())
}

func TestGet_NonOKStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}), 0)

	_, err := client.GetTransactions(context.Background(), testAddress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGet_SendsAPIKey(t *testing.T) {
	var gotKey string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": []}`))
	}), 0)
	client.apiKey = "secret-token"

	_, err := client.GetTransactions(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotKey)
}

func TestSelectorFromInput(t *testing.T) {
	assert.Equal(t, "0xa9059cbb", selectorFromInput("0xA9059CBB0000"))
	assert.Equal(t, "", selectorFromInput("0x"))
	assert.Equal(t, "", selectorFromInput(""))
	assert.Equal(t, "", selectorFromInput("a9059cbb00000000"))
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(42), parseCount("42"))
	assert.Equal(t, int64(42), parseCount("42.0"))
	assert.Equal(t, int64(0), parseCount(""))
	assert.Equal(t, int64(0), parseCount("abc"))
}
