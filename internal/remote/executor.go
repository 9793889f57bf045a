// Package remote executes provider API calls behind one shared retry,
// refresh and error-classification discipline.
package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/logger"
	"personal-organizer/backend/internal/token"

	"github.com/google/uuid"
)

const (
	// maxAuthRetries bounds forced refreshes on 401/403 responses
	maxAuthRetries = 2
	// maxRateLimitRetries bounds backoff retries on 429 responses
	maxRateLimitRetries = 2
	// rateLimitStep is multiplied by the retry count for linear backoff
	rateLimitStep = time.Second
)

// Request is one logical provider API call
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Response is the raw provider payload handed back to the adapter
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// CredentialSink receives refreshed credentials for persistence. Pushes
// are fire-and-forget from the executor's point of view.
type CredentialSink interface {
	UpdateCredential(ctx context.Context, id uuid.UUID, cred account.CredentialState) error
}

// Refresher is the slice of the token refresher the executor needs
type Refresher interface {
	Refresh(ctx context.Context, acct *account.IntegrationAccount) (account.CredentialState, error)
}

// Executor wraps remote calls with a pre-flight validity check,
// refresh-then-retry on 401/403 and bounded backoff on 429.
type Executor struct {
	refresher Refresher
	sink      CredentialSink
	client    *http.Client
	now       func() time.Time
	sleep     func(time.Duration)
}

// NewExecutor creates an executor. sink may be nil when the caller owns
// credential persistence itself.
func NewExecutor(refresher Refresher, sink CredentialSink, client *http.Client) *Executor {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Executor{
		refresher: refresher,
		sink:      sink,
		client:    client,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Do executes one logical request against the provider on behalf of the
// given account. The account's in-memory CredentialState is the single
// source of truth after a refresh; Do mutates it in place.
func (e *Executor) Do(ctx context.Context, acct *account.IntegrationAccount, req *Request) (*Response, error) {
	// Pre-flight: refresh a credential the validator can prove stale
	if !token.Valid(acct.Credential, e.now()) {
		if err := e.refresh(ctx, acct); err != nil {
			return nil, err
		}
	}

	authRetries := 0
	rateRetries := 0

	for {
		resp, err := e.send(ctx, acct, req)
		if err != nil {
			// Network-level failure: no response to classify, the
			// orchestration layer decides whether to retry
			return nil, err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			if authRetries >= maxAuthRetries {
				return nil, &AuthenticationError{Status: resp.StatusCode, Attempts: authRetries}
			}
			authRetries++
			// Force a refresh even if the token looks unexpired: some
			// providers revoke keys the validator cannot see as stale
			if err := e.refresh(ctx, acct); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			if rateRetries >= maxRateLimitRetries {
				return nil, &RateLimitError{Attempts: rateRetries}
			}
			rateRetries++
			e.sleep(time.Duration(rateRetries) * rateLimitStep)

		default:
			return nil, &APIError{Status: resp.StatusCode, Body: string(resp.Body)}
		}
	}
}

// send performs a single HTTP round trip with the current access token
func (e *Executor) send(ctx context.Context, acct *account.IntegrationAccount, req *Request) (*Response, error) {
	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+acct.Credential.AccessToken)

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close provider response body")
		}
	}()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       payload,
		Header:     httpResp.Header,
	}, nil
}

// refresh runs the token refresher, adopts the new credential state in
// memory and pushes it to the sink without blocking the request path.
func (e *Executor) refresh(ctx context.Context, acct *account.IntegrationAccount) error {
	cred, err := e.refresher.Refresh(ctx, acct)
	// Even on failure the refresher may have flipped Connected=false
	// (invalid_grant); that state change must reach the account record
	acct.Credential = cred
	if err != nil {
		e.push(acct)
		return err
	}

	e.push(acct)
	return nil
}

func (e *Executor) push(acct *account.IntegrationAccount) {
	if e.sink == nil {
		return
	}
	id := acct.ID
	cred := acct.Credential
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.sink.UpdateCredential(ctx, id, cred); err != nil {
			logger.Warn().Err(err).Str("account_id", id.String()).Msg("failed to persist refreshed credential")
		}
	}()
}
