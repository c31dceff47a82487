package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultCacheSize = 64
)

// Options defines options for the node client. Zero values are replaced
// with defaults.
type Options struct {
	Timeout   time.Duration
	CacheSize int
}

// Client fetches account information from nodes over HTTP. Responses are
// cached until invalidated. Client is safe for concurrent use.
type Client struct {
	cli   *http.Client
	log   *zap.Logger
	cache *lru.Cache

	requests *atomic.Uint64
}

type accountResponse struct {
	Account *Info `json:"account"`
}

// NewClient creates a node client.
func NewClient(opts Options, log *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	cache, _ := lru.New(opts.CacheSize) // Never errors for positive size.
	return &Client{
		cli:      &http.Client{Timeout: opts.Timeout},
		log:      log,
		cache:    cache,
		requests: atomic.NewUint64(0),
	}
}

// AccountURL returns the node URL of the account.
func AccountURL(nodeURL, accountID string) string {
	return strings.TrimRight(nodeURL, "/") + "/accounts/" + url.PathEscape(accountID)
}

// AccountInfo returns account information, from the cache if present.
func (c *Client) AccountInfo(ctx context.Context, nodeURL, accountID string) (*Info, error) {
	u := AccountURL(nodeURL, accountID)
	if v, ok := c.cache.Get(u); ok {
		info := *v.(*Info)
		return &info, nil
	}

	c.requests.Inc()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status from %s: %s", u, resp.Status)
	}
	var r accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode account info: %w", err)
	}
	if r.Account == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	c.log.Debug("account info fetched",
		zap.String("url", u),
		zap.Uint64("nonce", r.Account.Nonce),
		zap.Uint64("inventoryNonce", r.Account.InventoryNonce))
	info := *r.Account
	c.cache.Add(u, &info)
	return r.Account, nil
}

// Invalidate drops cached information about the account.
func (c *Client) Invalidate(nodeURL, accountID string) {
	c.cache.Remove(AccountURL(nodeURL, accountID))
}

// Requests returns the number of requests made to nodes.
func (c *Client) Requests() uint64 {
	return c.requests.Load()
}
