// Package graph implements the provider adapters for Office-style
// accounts. Listings are offset-paginated with $skip/$top, so any page
// is addressable directly without replaying earlier pages.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
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
}

// NewFactory returns a provider.Factory for Office-style accounts
func NewFactory(exec *remote.Executor, baseURL string) provider.Factory {
	return func(acct *account.IntegrationAccount) *provider.Set {
		c := &Client{exec: exec, acct: acct, baseURL: baseURL}
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
	_, err := c.get(ctx, "/v1.0/me", nil)
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

// listEnvelope is the collection wrapper every listing endpoint returns
type listEnvelope struct {
	Value    json.RawMessage `json:"value"`
	Count    *int64          `json:"@odata.count"`
	NextLink string          `json:"@odata.nextLink"`
}

// list fetches one offset-addressed page of a collection
func (c *Client) list(ctx context.Context, path string, params url.Values, page, pageSize int) (*listEnvelope, error) {
	query := url.Values{}
	for key, vals := range params {
		query[key] = vals
	}
	query.Set("$skip", strconv.Itoa(page*pageSize))
	query.Set("$top", strconv.Itoa(pageSize))
	query.Set("$count", "true")

	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode collection page: %w", err)
	}
	return &env, nil
}

// totalCount resolves the collection size for an envelope. The inline
// count is preferred; a missing count triggers a secondary $count call,
// and if that also fails the count is estimated from the offset
func (c *Client) totalCount(ctx context.Context, path string, env *listEnvelope, page, pageSize, pageLen int) int {
	if env.Count != nil {
		return int(*env.Count)
	}
	body, err := c.get(ctx, path+"/$count", nil)
	if err == nil {
		if n, convErr := strconv.Atoi(strings.TrimSpace(string(body))); convErr == nil {
			return n
		}
	}
	return page*pageSize + pageLen
}

// hasMore reports whether pages remain after the current one
func hasMore(env *listEnvelope, total, page, pageSize, pageLen int) bool {
	if env.NextLink != "" {
		return true
	}
	return (page+1)*pageSize < total && pageLen == pageSize
}
