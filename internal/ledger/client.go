// Package ledger wraps the external ledger-explorer API behind a shared
// rate-limit gate and a per-address memoizing cache. Every failure mode of
// the explorer (transport error, non-200 status, non-"1" API status,
// unparseable body) surfaces as ErrUnavailable, which callers treat as
// "no history" rather than a hard failure.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ErrUnavailable signals that no history could be fetched. It is a
// degradation signal, not an error the caller should propagate.
var ErrUnavailable = errors.New("ledger history unavailable")

// explorerResponse is the ledger-explorer envelope. Result is decoded
// lazily because the API places a plain string there on some errors.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client is the rate-limited, caching ledger-explorer client.
// All external calls across all analyzers serialize through its limiter;
// cache entries live for the lifetime of the process.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string][]domain.LedgerTransaction

	// flight collapses concurrent lookups for the same uncached key into
	// a single network round trip.
	flight singleflight.Group
}

// NewClient creates a ledger client from configuration.
func NewClient(cfg config.LedgerConfig, logger *zap.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		// Burst of one: a strict minimum-interval throttle, no burst credit.
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
		cache:   make(map[string][]domain.LedgerTransaction),
	}
}

// GetTransactionHistory returns the transaction history for an address.
// With an empty tokenContract it unions normal and internal transactions;
// with a tokenContract it returns that token's transfer log. Callers must
// not mutate the returned slice; it is shared with the cache.
func (c *Client) GetTransactionHistory(ctx context.Context, address, tokenContract string) ([]domain.LedgerTransaction, error) {
	key := strings.ToLower(address) + "|" + strings.ToLower(tokenContract)

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		c.logger.Debug("Ledger cache hit", zap.String("address", address))
		return cached, nil
	}

	// DoChan rather than Do so a cancelled caller can abandon its wait;
	// the winning fetch keeps running and still populates the cache for
	// everyone else.
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		txs, err := c.fetch(context.WithoutCancel(ctx), address, tokenContract)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = txs
		c.mu.Unlock()
		return txs, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.LedgerTransaction), nil
	}
}

func (c *Client) fetch(ctx context.Context, address, tokenContract string) ([]domain.LedgerTransaction, error) {
	if tokenContract != "" {
		return c.call(ctx, "tokentx", address, tokenContract)
	}

	normal, err := c.call(ctx, "txlist", address, "")
	if err != nil {
		return nil, err
	}

	// Internal transactions are best effort; their absence must not cost
	// us the normal history we already paid a round trip for.
	internal, err := c.call(ctx, "txlistinternal", address, "")
	if err != nil {
		c.logger.Warn("Internal transaction lookup failed, continuing with normal history",
			zap.String("address", address),
			zap.Error(err),
		)
		return normal, nil
	}

	return append(normal, internal...), nil
}

// call performs one throttled explorer request.
func (c *Client) call(ctx context.Context, action, address, tokenContract string) ([]domain.LedgerTransaction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %s", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", action)
	params.Set("address", address)
	params.Set("sort", "desc")
	if tokenContract != "" {
		params.Set("contractaddress", tokenContract)
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %s", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Ledger API request failed", zap.String("action", action), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Ledger API returned non-200",
			zap.String("action", action),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: http status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %s", ErrUnavailable, err)
	}

	var envelope explorerResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %s", ErrUnavailable, err)
	}

	if envelope.Status != "1" {
		// Covers both real errors and the explorer's "No transactions
		// found" answer; either way there is no history to analyze.
		c.logger.Debug("Ledger API returned non-success status",
			zap.String("action", action),
			zap.String("message", envelope.Message),
		)
		return nil, fmt.Errorf("%w: api status %q (%s)", ErrUnavailable, envelope.Status, envelope.Message)
	}

	var txs []domain.LedgerTransaction
	if err := json.Unmarshal(envelope.Result, &txs); err != nil {
		return nil, fmt.Errorf("%w: decode result: %s", ErrUnavailable, err)
	}

	return txs, nil
}

// CacheSize reports the number of memoized histories, for observability.
func (c *Client) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
