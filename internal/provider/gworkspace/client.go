// Package gworkspace implements the provider adapters for Google-style
// accounts. Listings use opaque continuation tokens: there is no random
// access, so the client caches tokens per page index and replays from
// page zero on a cache miss.
package gworkspace

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/provider"
	"personal-organizer/backend/internal/remote"
	"personal-organizer/backend/internal/token"
)

// Client carries the shared transport state for one account's adapters
type Client struct {
	exec    *remote.Executor
	acct    *account.IntegrationAccount
	baseURL string

	mu      sync.Mutex
	cursors map[string]*provider.CursorCache
}

// NewFactory returns a provider.Factory for Google-style accounts
func NewFactory(exec *remote.Executor, baseURL string) provider.Factory {
	return func(acct *account.IntegrationAccount) *provider.Set {
		c := &Client{
			exec:    exec,
			acct:    acct,
			baseURL: baseURL,
			cursors: make(map[string]*provider.CursorCache),
		}
		return &provider.Set{
			Contacts: &Contacts{c},
			Calendar: &Calendar{c},
			Tasks:    &Tasks{c},
			Mail:     &Mail{c},
		}
	}
}

// IsAuthenticated reports whether the account credential can be used
// as-is, without a refresh
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.acct.Credential.Connected && token.Valid(c.acct.Credential, time.Now())
}

// Authenticate probes the provider with a cheap request; the executor
// transparently refreshes a stale credential on the way through
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.get(ctx, "/v1/people/me", url.Values{"personFields": {"names"}})
	return err
}

func (c *Client) accountID() string {
	return c.acct.ID.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.exec.Do(ctx, c.acct, &remote.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + path,
		Query:  query,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	resp, err := c.exec.Do(ctx, c.acct, &remote.Request{
		Method: method,
		URL:    c.baseURL + path,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) cursorCache(path string) *provider.CursorCache {
	c.mu.Lock()
	defer c.mu.Unlock()

	cache, ok := c.cursors[path]
	if !ok {
		cache = provider.NewCursorCache()
		c.cursors[path] = cache
	}
	return cache
}

// cursorPage serves one page of a cursor-paginated listing. nextToken
// decodes a response body and returns its continuation token; it is
// called for every page fetched along the way, so the caller observes
// the target page's body as the last invocation. Returns false when
// the listing ends before the requested page.
func (c *Client) cursorPage(ctx context.Context, path string, params url.Values, page, pageSize int, nextToken func([]byte) (string, error)) (bool, error) {
	cache := c.cursorCache(path)
	start, tok := cache.NearestBelow(page)

	// Pages must be consumed strictly in order: the token for page N
	// only exists inside the page N-1 response
	for p := start; p <= page; p++ {
		query := url.Values{}
		for key, vals := range params {
			query[key] = vals
		}
		query.Set("pageSize", strconv.Itoa(pageSize))
		if tok != "" {
			query.Set("pageToken", tok)
		}

		body, err := c.get(ctx, path, query)
		if err != nil {
			return false, err
		}

		next, err := nextToken(body)
		if err != nil {
			return false, err
		}
		if next != "" {
			cache.Store(p+1, next)
		}

		if p == page {
			return true, nil
		}
		if next == "" {
			// Listing exhausted before the requested page
			return false, nil
		}
		tok = next
	}
	return false, nil
}
