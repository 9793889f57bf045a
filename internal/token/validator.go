// Package token keeps OAuth credentials valid: a pure validity check and
// a refresher that exchanges refresh tokens against the token endpoint.
package token

import (
	"time"

	"personal-organizer/backend/internal/account"
)

// ExpiryBuffer guards against clock skew and in-flight request latency:
// a token expiring within this window is treated as already expired.
const ExpiryBuffer = 30 * time.Second

// Valid reports whether the credential can be used as-is at the given
// time. A credential with no expiry timestamp cannot prove validity and
// is treated as invalid to force a refresh. No side effects.
func Valid(cred account.CredentialState, now time.Time) bool {
	if cred.AccessToken == "" {
		return false
	}
	if cred.TokenExpiry == nil {
		return false
	}
	return now.Add(ExpiryBuffer).Before(*cred.TokenExpiry)
}
