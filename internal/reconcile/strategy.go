package reconcile

import "time"

// Strategy decides whether an incoming provider record should overwrite
// an already-linked local entity. Named so alternates (local-wins,
// three-way merge) can be substituted without touching the engine.
type Strategy interface {
	Name() string
	ShouldWrite(localUpdatedAt, incomingUpdatedAt time.Time, localStatus, incomingStatus string) bool
}

// ProviderWinsOnNewerTimestamp writes through only when the incoming
// record's provider timestamp is strictly newer than the stored one.
//
// StatusOverridesTimestamp additionally propagates status transitions
// (completion, cancellation, folder moves) even without a newer
// timestamp. That mirrors the historical behavior, but it also lets a
// stale provider payload resurrect a locally-advanced status, so it is
// a tunable policy rather than a hard-wired rule.
type ProviderWinsOnNewerTimestamp struct {
	StatusOverridesTimestamp bool
}

// Name returns the strategy identifier
func (s ProviderWinsOnNewerTimestamp) Name() string { return "provider_wins_on_newer_timestamp" }

// ShouldWrite implements Strategy
func (s ProviderWinsOnNewerTimestamp) ShouldWrite(localUpdatedAt, incomingUpdatedAt time.Time, localStatus, incomingStatus string) bool {
	if incomingUpdatedAt.After(localUpdatedAt) {
		return true
	}
	if s.StatusOverridesTimestamp && incomingStatus != "" && incomingStatus != localStatus {
		return true
	}
	return false
}

// DefaultStrategy matches the observed provider-wins behavior
func DefaultStrategy() Strategy {
	return ProviderWinsOnNewerTimestamp{StatusOverridesTimestamp: true}
}
