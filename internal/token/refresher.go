package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/logger"
)

const (
	// DefaultExpiresIn is assumed when the token endpoint omits an expiry
	DefaultExpiresIn = 3600 * time.Second

	// expiryMargin shaves 10% off the reported lifetime so the local
	// expiry lands safely before the real one
	expiryMargin = 0.9
)

// Refresher exchanges refresh tokens against the external token endpoint
// and normalizes its heterogeneous response shapes.
type Refresher struct {
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// NewRefresher creates a refresher for the given token endpoint
func NewRefresher(endpoint string, client *http.Client) *Refresher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Refresher{
		endpoint: endpoint,
		client:   client,
		now:      time.Now,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	ProviderKind string `json:"providerKind"`
	Email        string `json:"email"`
}

// refreshResponse accepts both snake_case and camelCase field names; the
// token endpoint proxies three providers and does not normalize for us.
type refreshResponse struct {
	AccessToken       string  `json:"access_token"`
	AccessTokenCamel  string  `json:"accessToken"`
	RefreshToken      string  `json:"refresh_token"`
	RefreshTokenCamel string  `json:"refreshToken"`
	ExpiresIn         float64 `json:"expires_in"`
	ExpiresInCamel    float64 `json:"expiresIn"`
	Scope             string  `json:"scope"`
	Error             string  `json:"error"`
}

func (r refreshResponse) accessToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.AccessTokenCamel
}

func (r refreshResponse) refreshToken() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.RefreshTokenCamel
}

func (r refreshResponse) expiresIn() time.Duration {
	secs := r.ExpiresIn
	if secs == 0 {
		secs = r.ExpiresInCamel
	}
	if secs == 0 {
		return DefaultExpiresIn
	}
	return time.Duration(secs * float64(time.Second))
}

// Refresh exchanges the account's refresh token for fresh credentials.
// On invalid_grant the returned credential has Connected=false and the
// error is *ReauthRequiredError; the caller must persist that state and
// stop refreshing this account.
func (r *Refresher) Refresh(ctx context.Context, acct *account.IntegrationAccount) (account.CredentialState, error) {
	cred := acct.Credential

	if cred.RefreshToken == "" {
		return cred, ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{
		RefreshToken: cred.RefreshToken,
		ProviderKind: string(acct.Kind),
		Email:        acct.DisplayEmail,
	})
	if err != nil {
		return cred, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return cred, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return cred, &TransientRefreshError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close token endpoint response body")
		}
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return cred, &TransientRefreshError{Status: resp.StatusCode, Err: err}
	}

	var parsed refreshResponse
	if jsonErr := json.Unmarshal(payload, &parsed); jsonErr != nil {
		return cred, &TransientRefreshError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", jsonErr)}
	}

	// A structured invalid_grant is terminal regardless of HTTP status:
	// the refresh token itself is dead and retrying cannot revive it.
	if parsed.Error == "invalid_grant" {
		cred.Connected = false
		return cred, &ReauthRequiredError{Email: acct.DisplayEmail}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cred, &TransientRefreshError{Status: resp.StatusCode, Err: fmt.Errorf("token endpoint error %q", parsed.Error)}
	}

	accessToken := parsed.accessToken()
	if accessToken == "" {
		return cred, &TransientRefreshError{Status: resp.StatusCode, Err: fmt.Errorf("response missing access token")}
	}

	expiry := r.now().Add(time.Duration(float64(parsed.expiresIn()) * expiryMargin))

	cred.AccessToken = accessToken
	cred.TokenExpiry = &expiry
	cred.Connected = true
	if rt := parsed.refreshToken(); rt != "" {
		// Some providers rotate refresh tokens on every exchange
		cred.RefreshToken = rt
	}
	if parsed.Scope != "" {
		cred.Scope = parsed.Scope
	}

	return cred, nil
}
