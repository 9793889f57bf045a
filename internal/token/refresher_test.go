package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"personal-organizer/backend/internal/account"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *account.IntegrationAccount {
	return &account.IntegrationAccount{
		Kind:         account.KindGoogle,
		DisplayEmail: "user@example.com",
		Credential: account.CredentialState{
			AccessToken:  "stale",
			RefreshToken: "refresh-1",
			Connected:    true,
		},
	}
}

func newTestRefresher(t *testing.T, handler http.HandlerFunc, now time.Time) *Refresher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := NewRefresher(srv.URL, srv.Client())
	r.now = func() time.Time { return now }
	return r
}

func TestRefreshNoRefreshToken(t *testing.T) {
	r := NewRefresher("http://unused", nil)
	acct := testAccount()
	acct.Credential.RefreshToken = ""

	_, err := r.Refresh(context.Background(), acct)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestRefreshNormalizesFieldCasing(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		wantAccess string
		wantExpiry time.Time
	}{
		{
			name:       "snake_case",
			body:       `{"access_token":"fresh","refresh_token":"refresh-2","expires_in":1000}`,
			wantAccess: "fresh",
			wantExpiry: now.Add(900 * time.Second),
		},
		{
			name:       "camelCase",
			body:       `{"accessToken":"fresh","refreshToken":"refresh-2","expiresIn":1000}`,
			wantAccess: "fresh",
			wantExpiry: now.Add(900 * time.Second),
		},
		{
			name:       "missing expiresIn uses default",
			body:       `{"access_token":"fresh"}`,
			wantAccess: "fresh",
			wantExpiry: now.Add(time.Duration(float64(DefaultExpiresIn) * 0.9)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
				var parsed map[string]string
				require.NoError(t, json.NewDecoder(req.Body).Decode(&parsed))
				assert.Equal(t, "refresh-1", parsed["refreshToken"])
				assert.Equal(t, "google", parsed["providerKind"])
				assert.Equal(t, "user@example.com", parsed["email"])

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}, now)

			cred, err := r.Refresh(context.Background(), testAccount())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccess, cred.AccessToken)
			assert.True(t, cred.Connected)
			require.NotNil(t, cred.TokenExpiry)
			assert.Equal(t, tt.wantExpiry, *cred.TokenExpiry)
		})
	}
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	now := time.Now()
	r := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"access_token":"fresh","refresh_token":"refresh-2"}`))
	}, now)

	cred, err := r.Refresh(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", cred.RefreshToken)
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	now := time.Now()
	r := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"access_token":"fresh"}`))
	}, now)

	cred, err := r.Refresh(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
}

func TestRefreshInvalidGrantIsTerminal(t *testing.T) {
	r := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}, time.Now())

	acct := testAccount()
	cred, err := r.Refresh(context.Background(), acct)

	var reauth *ReauthRequiredError
	require.ErrorAs(t, err, &reauth)
	assert.Equal(t, "user@example.com", reauth.Email)
	assert.False(t, cred.Connected)
	// Stale tokens are kept so diagnostics can still see them
	assert.Equal(t, "stale", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
}

func TestRefreshInvalidGrantWinsOverStatus(t *testing.T) {
	// Some endpoints return invalid_grant with a 200; the structured
	// error still decides
	r := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}, time.Now())

	_, err := r.Refresh(context.Background(), testAccount())
	var reauth *ReauthRequiredError
	assert.ErrorAs(t, err, &reauth)
}

func TestRefreshTransientFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"upstream_down"}`))
			},
		},
		{
			name: "non-JSON body",
			handler: func(w http.ResponseWriter, req *http.Request) {
				w.Write([]byte(`<html>gateway timeout</html>`))
			},
		},
		{
			name: "missing access token",
			handler: func(w http.ResponseWriter, req *http.Request) {
				w.Write([]byte(`{"scope":"mail"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRefresher(t, tt.handler, time.Now())
			cred, err := r.Refresh(context.Background(), testAccount())

			var transient *TransientRefreshError
			require.ErrorAs(t, err, &transient)
			// The credential is untouched; a later retry may succeed
			assert.True(t, cred.Connected)
			assert.Equal(t, "stale", cred.AccessToken)
		})
	}
}
