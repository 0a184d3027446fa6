package naming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"wallet-persona-indexer/internal/infrastructure/config"
	"wallet-persona-indexer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

const defaultCacheSize = 10000

// Resolver maps wallet addresses to display names (Basename/ENS style)
// through a REST lookup, with a bounded process-lifetime cache. Entries are
// overwritten on re-resolve; when the cache is full the oldest entry is
// evicted first. Resolution is best-effort decoration only.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	enabled    bool
	maxEntries int
	logger     *logger.Logger

	mu    sync.Mutex
	cache map[string]string
	order []string // insertion order for eviction
}

// NewResolver creates a name resolver from configuration.
func NewResolver(cfg *config.NamingConfig, log *logger.Logger) *Resolver {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxEntries := cfg.CacheSize
	if maxEntries <= 0 {
		maxEntries = defaultCacheSize
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		enabled:    cfg.Enabled,
		maxEntries: maxEntries,
		logger:     log.WithComponent("name-resolver"),
		cache:      make(map[string]string),
	}
}

type nameResponse struct {
	Name string `json:"name"`
}

// Resolve returns the display name for an address, or "" when none is
// registered or the lookup fails.
func (r *Resolver) Resolve(ctx context.Context, address string) (string, error) {
	if !r.enabled {
		return "", nil
	}
	address = strings.ToLower(address)

	r.mu.Lock()
	if name, ok := r.cache[address]; ok {
		r.mu.Unlock()
		return name, nil
	}
	r.mu.Unlock()

	name, err := r.lookup(ctx, address)
	if err != nil {
		return "", err
	}

	r.store(address, name)
	return name, nil
}

func (r *Resolver) lookup(ctx context.Context, address string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/addresses/"+address, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("name lookup failed: %w", err)
	}
	defer resp.Body.Close()

	// Unnamed addresses come back 404; cache the miss as empty.
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d resolving %s", resp.StatusCode, address)
	}

	var body nameResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode name response: %w", err)
	}
	return body.Name, nil
}

// store inserts a resolved name, evicting the oldest entry when full.
func (r *Resolver) store(address, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cache[address]; !exists {
		for len(r.order) >= r.maxEntries {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.cache, oldest)
		}
		r.order = append(r.order, address)
	}
	r.cache[address] = name

	r.logger.Debug("Cached resolved name",
		zap.String("address", address),
		zap.Int("cache_size", len(r.cache)))
}

// CacheLen reports the current number of cached entries.
func (r *Resolver) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
