package remote

import "fmt"

// AuthenticationError means the provider kept rejecting our credentials
// after the forced-refresh retry budget was spent.
type AuthenticationError struct {
	Status   int
	Attempts int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed with status %d after %d forced refreshes", e.Status, e.Attempts)
}

// RateLimitError means the provider kept returning 429 after the backoff
// retry budget was spent.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d retries", e.Attempts)
}

// APIError wraps any other non-2xx provider response. Carries the status
// and the provider-reported body for diagnostics. Never retried here.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error %d: %s", e.Status, truncate(e.Body, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
