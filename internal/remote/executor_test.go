package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	mu    sync.Mutex
	calls int
	cred  account.CredentialState
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context, acct *account.IntegrationAccount) (account.CredentialState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return acct.Credential, s.err
	}
	return s.cred, nil
}

func (s *stubRefresher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu    sync.Mutex
	creds []account.CredentialState
	done  chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{}, 16)}
}

func (s *recordingSink) UpdateCredential(ctx context.Context, id uuid.UUID, cred account.CredentialState) error {
	s.mu.Lock()
	s.creds = append(s.creds, cred)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *recordingSink) wait(t *testing.T) account.CredentialState {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("credential push never arrived")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds[len(s.creds)-1]
}

func validCredential() account.CredentialState {
	expiry := time.Now().Add(time.Hour)
	return account.CredentialState{
		AccessToken:  "valid-token",
		RefreshToken: "refresh",
		TokenExpiry:  &expiry,
		Connected:    true,
	}
}

func executorAccount(cred account.CredentialState) *account.IntegrationAccount {
	return &account.IntegrationAccount{
		ID:           uuid.New(),
		Kind:         account.KindGoogle,
		DisplayEmail: "user@example.com",
		Credential:   cred,
	}
}

func TestDoSuccessPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer valid-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	refresher := &stubRefresher{}
	exec := NewExecutor(refresher, nil, srv.Client())

	resp, err := exec.Do(context.Background(), executorAccount(validCredential()), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Zero(t, refresher.callCount())
}

func TestDoPreflightRefreshesStaleCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	fresh := validCredential()
	fresh.AccessToken = "fresh-token"
	refresher := &stubRefresher{cred: fresh}
	sink := newRecordingSink()
	exec := NewExecutor(refresher, sink, srv.Client())

	stale := validCredential()
	expired := time.Now().Add(-time.Minute)
	stale.TokenExpiry = &expired
	acct := executorAccount(stale)

	_, err := exec.Do(context.Background(), acct, &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, refresher.callCount())
	assert.Equal(t, "fresh-token", acct.Credential.AccessToken)

	pushed := sink.wait(t)
	assert.Equal(t, "fresh-token", pushed.AccessToken)
}

func TestDoForcedRefreshCapOn401(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refresher := &stubRefresher{cred: validCredential()}
	exec := NewExecutor(refresher, nil, srv.Client())

	_, err := exec.Do(context.Background(), executorAccount(validCredential()), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	// Initial attempt plus exactly two forced refresh retries
	assert.Equal(t, 3, requests)
	assert.Equal(t, 2, refresher.callCount())
}

func TestDoRateLimitLinearBackoff(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	exec := NewExecutor(&stubRefresher{}, nil, srv.Client())
	var slept []time.Duration
	exec.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := exec.Do(context.Background(), executorAccount(validCredential()), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 3, requests)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, slept)
}

func TestDoRateLimitRecovers(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	exec := NewExecutor(&stubRefresher{}, nil, srv.Client())
	exec.sleep = func(time.Duration) {}

	resp, err := exec.Do(context.Background(), executorAccount(validCredential()), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoOtherStatusBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"missing"}`))
	}))
	defer srv.Close()

	exec := NewExecutor(&stubRefresher{}, nil, srv.Client())

	_, err := exec.Do(context.Background(), executorAccount(validCredential()), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Body, "missing")
}

func TestDoNetworkErrorPropagates(t *testing.T) {
	exec := NewExecutor(&stubRefresher{}, nil, &http.Client{Timeout: 100 * time.Millisecond})

	_, err := exec.Do(context.Background(), executorAccount(validCredential()), &Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:1", // nothing listens here
	})

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	var authErr *AuthenticationError
	assert.False(t, errors.As(err, &authErr))
}

func TestDoRefreshFailureAborts(t *testing.T) {
	refresher := &stubRefresher{err: &token.ReauthRequiredError{Email: "user@example.com"}}
	sink := newRecordingSink()
	exec := NewExecutor(refresher, sink, nil)

	stale := validCredential()
	stale.TokenExpiry = nil
	acct := executorAccount(stale)

	_, err := exec.Do(context.Background(), acct, &Request{Method: http.MethodGet, URL: "http://unused"})

	var reauth *token.ReauthRequiredError
	require.ErrorAs(t, err, &reauth)
	// The failed refresh still pushed the credential so a flipped
	// Connected flag reaches storage
	sink.wait(t)
}
