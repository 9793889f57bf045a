// Package model defines the canonical entity shapes shared by the
// provider adapters, the reconciliation engine and the primary store.
package model

import "time"

// Linkage identifies the remote origin of a synced entity: the
// provider's own opaque id plus the linked account it came from.
// The pair is unique among entities that originated from sync.
type Linkage struct {
	ProviderID string `json:"provider_id"`
	AccountID  string `json:"provider_account_id"`
}

// Zero reports whether the linkage is unset (a purely local entity)
func (l Linkage) Zero() bool {
	return l.ProviderID == ""
}

// pickString returns the incoming value when present, else the local one.
// Provider-wins merge: absent remote fields never clobber local data.
func pickString(incoming, local string) string {
	if incoming != "" {
		return incoming
	}
	return local
}

// pickTime returns the incoming time when set, else the local one
func pickTime(incoming, local *time.Time) *time.Time {
	if incoming != nil {
		return incoming
	}
	return local
}

// pickStrings returns the incoming slice when non-empty, else the local one
func pickStrings(incoming, local []string) []string {
	if len(incoming) > 0 {
		return incoming
	}
	return local
}
