package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Person is a contact, either locally created or mirrored from a
// provider's address book.
type Person struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	JobTitle  string    `json:"job_title,omitempty"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	Notes     string    `json:"notes,omitempty"`

	Link              Linkage    `json:"link"`
	ProviderUpdatedAt time.Time  `json:"provider_updated_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Birthday          *time.Time `json:"birthday,omitempty"`
}

// HasIdentity reports whether the record carries enough identity to be
// worth reconciling; a contact with no name and no email is noise
func (p Person) HasIdentity() bool {
	return p.Name != "" || p.Email != ""
}

// NaturalKey is the normalized email address; contacts match on it
// before falling back to provider-id linkage
func (p Person) NaturalKey() string {
	return strings.ToLower(strings.TrimSpace(p.Email))
}

// Linkage returns the provider linkage pair
func (p Person) Linkage() Linkage { return p.Link }

// RemoteUpdatedAt returns the provider-reported modification time
func (p Person) RemoteUpdatedAt() time.Time { return p.ProviderUpdatedAt }

// SyncStatus: contacts carry no status field
func (p Person) SyncStatus() string { return "" }

// MergeFrom applies a provider-wins merge: every non-empty field on the
// incoming record overwrites, absent fields keep the local value
func (p Person) MergeFrom(incoming Person) Person {
	merged := p
	merged.Name = pickString(incoming.Name, p.Name)
	merged.FirstName = pickString(incoming.FirstName, p.FirstName)
	merged.LastName = pickString(incoming.LastName, p.LastName)
	merged.Email = pickString(incoming.Email, p.Email)
	merged.Phone = pickString(incoming.Phone, p.Phone)
	merged.Company = pickString(incoming.Company, p.Company)
	merged.JobTitle = pickString(incoming.JobTitle, p.JobTitle)
	merged.PhotoURL = pickString(incoming.PhotoURL, p.PhotoURL)
	merged.Birthday = pickTime(incoming.Birthday, p.Birthday)
	// Notes are local-only; sync never writes them
	if !incoming.Link.Zero() {
		merged.Link = incoming.Link
	}
	if incoming.ProviderUpdatedAt.After(merged.ProviderUpdatedAt) {
		merged.ProviderUpdatedAt = incoming.ProviderUpdatedAt
	}
	return merged
}

// Stamped returns a copy with a local identity assigned (when missing)
// and the provider-updated timestamp set
func (p Person) Stamped(id uuid.UUID, at time.Time) Person {
	stamped := p
	if stamped.ID == uuid.Nil {
		stamped.ID = id
	}
	stamped.ProviderUpdatedAt = at
	return stamped
}
