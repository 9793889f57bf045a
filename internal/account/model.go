// Package account defines linked external accounts and their credentials.
package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which external system an account belongs to
type Kind string

const (
	KindGoogle   Kind = "google"
	KindOffice   Kind = "office365"
	KindExchange Kind = "exchange"
)

// Kinds lists all supported account kinds
var Kinds = []Kind{KindGoogle, KindOffice, KindExchange}

// ParseKind validates and converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGoogle, KindOffice, KindExchange:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown account kind: %q", s)
}

// Capabilities holds the per-domain sync toggles for an account
type Capabilities struct {
	SyncMail     bool `json:"sync_mail"`
	SyncCalendar bool `json:"sync_calendar"`
	SyncContacts bool `json:"sync_contacts"`
	SyncTasks    bool `json:"sync_tasks"`
}

// CredentialState holds the OAuth token material for one linked account.
// It is mutated only by the refresh flow; Connected=false is terminal and
// signals that the user must re-authorize the account.
type CredentialState struct {
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	Scope        string     `json:"scope,omitempty"`
	Connected    bool       `json:"connected"`
}

// IntegrationAccount is one linked external account plus its sync
// capability flags and credential state.
type IntegrationAccount struct {
	ID           uuid.UUID       `json:"id"`
	Kind         Kind            `json:"kind"`
	DisplayEmail string          `json:"display_email"`
	Capabilities Capabilities    `json:"capabilities"`
	Credential   CredentialState `json:"credential"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Domain is one of the four syncable capability families
type Domain string

const (
	DomainMail     Domain = "mail"
	DomainCalendar Domain = "calendar"
	DomainContacts Domain = "contacts"
	DomainTasks    Domain = "tasks"
)

// Domains lists all syncable domains
var Domains = []Domain{DomainMail, DomainCalendar, DomainContacts, DomainTasks}

// ParseDomain validates and converts a string to a Domain
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainMail, DomainCalendar, DomainContacts, DomainTasks:
		return Domain(s), nil
	}
	return "", fmt.Errorf("unknown sync domain: %q", s)
}

// CanSync reports whether the account has the capability flag for the
// given domain enabled and is still connected
func (a *IntegrationAccount) CanSync(domain Domain) bool {
	if !a.Credential.Connected {
		return false
	}
	switch domain {
	case DomainMail:
		return a.Capabilities.SyncMail
	case DomainCalendar:
		return a.Capabilities.SyncCalendar
	case DomainContacts:
		return a.Capabilities.SyncContacts
	case DomainTasks:
		return a.Capabilities.SyncTasks
	}
	return false
}

// Status is the user-visible connection state of an account
type Status string

const (
	StatusConnected     Status = "connected"
	StatusReauthNeeded  Status = "reauth_required"
	StatusNoCredentials Status = "no_credentials"
)

// Status derives the user-visible status from the credential state.
// An account needing re-authorization is distinguishable from one that
// is merely between token refreshes.
func (a *IntegrationAccount) Status() Status {
	if a.Credential.RefreshToken == "" && a.Credential.AccessToken == "" {
		return StatusNoCredentials
	}
	if !a.Credential.Connected {
		return StatusReauthNeeded
	}
	return StatusConnected
}
