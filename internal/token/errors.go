package token

import (
	"errors"
	"fmt"
)

// ErrNoRefreshToken means the credential has no refresh token to exchange.
// Not retriable: the caller must fall back to interactive re-authorization.
var ErrNoRefreshToken = errors.New("credential has no refresh token")

// ReauthRequiredError is terminal: the token endpoint rejected the refresh
// token itself (invalid_grant). The account is marked disconnected and the
// user must re-link it. Never retried automatically.
type ReauthRequiredError struct {
	Email string
}

func (e *ReauthRequiredError) Error() string {
	return fmt.Sprintf("refresh token rejected for %s: re-authorization required", e.Email)
}

// TransientRefreshError covers any other token-endpoint failure (non-2xx
// status, malformed body, transport error). Retriable under the caller's
// normal backoff policy.
type TransientRefreshError struct {
	Status int
	Err    error
}

func (e *TransientRefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("token refresh failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TransientRefreshError) Unwrap() error { return e.Err }
