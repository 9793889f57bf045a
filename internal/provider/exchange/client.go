// Package exchange implements the provider adapters for on-prem
// Exchange-style accounts. Listings paginate by continuation link: each
// page carries the absolute URL of the next one, cached per page index
// so later pages are reachable without refetching earlier ones.
package exchange

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

	mu    sync.Mutex
	links map[string]*provider.CursorCache
}

// NewFactory returns a provider.Factory for Exchange-style accounts
func NewFactory(exec *remote.Executor, baseURL string) provider.Factory {
	return func(acct *account.IntegrationAccount) *provider.Set {
		c := &Client{
			exec:    exec,
			acct:    acct,
			baseURL: baseURL,
			links:   make(map[string]*provider.CursorCache),
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

// Authenticate probes the provider with a cheap request
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.get(ctx, "/api/v2.0/me", nil)
	return err
}

func (c *Client) accountID() string {
	return c.acct.ID.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.getURL(ctx, c.baseURL+path, query)
}

// getURL fetches an absolute URL; continuation links arrive fully formed
func (c *Client) getURL(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	resp, err := c.exec.Do(ctx, c.acct, &remote.Request{
		Method: http.MethodGet,
		URL:    rawURL,
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

func (c *Client) linkCache(path string) *provider.CursorCache {
	c.mu.Lock()
	defer c.mu.Unlock()

	cache, ok := c.links[path]
	if !ok {
		cache = provider.NewCursorCache()
		c.links[path] = cache
	}
	return cache
}

// linkPage serves one page of a link-paginated listing. nextLink decodes
// a response body and returns the continuation URL; the target page's
// body is the last invocation. Returns false when the listing ends
// before the requested page.
func (c *Client) linkPage(ctx context.Context, path string, params url.Values, page, pageSize int, nextLink func([]byte) (string, error)) (bool, error) {
	cache := c.linkCache(path)
	start, link := cache.NearestBelow(page)

	for p := start; p <= page; p++ {
		var body []byte
		var err error
		if link != "" {
			body, err = c.getURL(ctx, link, nil)
		} else {
			query := url.Values{}
			for key, vals := range params {
				query[key] = vals
			}
			query.Set("$top", strconv.Itoa(pageSize))
			body, err = c.get(ctx, path, query)
		}
		if err != nil {
			return false, err
		}

		next, err := nextLink(body)
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
			return false, nil
		}
		link = next
	}
	return false, nil
}
