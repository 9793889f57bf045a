package model

import (
	"time"

	"github.com/google/uuid"
)

// Folder is one of the canonical mail folder names every provider's
// folder layout is mapped onto.
type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderSent   Folder = "sent"
	FolderDrafts Folder = "drafts"
	FolderTrash  Folder = "trash"
	FolderSpam   Folder = "spam"
)

// EmailMessage is a mail message mirrored from a provider mailbox.
// Mail is read-mostly: local edits are limited to read/flag state.
type EmailMessage struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	Folder     Folder    `json:"folder"`
	Read       bool      `json:"read"`
	SentAt     time.Time `json:"sent_at"`

	Link              Linkage   `json:"link"`
	ProviderUpdatedAt time.Time `json:"provider_updated_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasIdentity: a message needs a subject or a sender
func (m EmailMessage) HasIdentity() bool {
	return m.Subject != "" || m.Sender != ""
}

// NaturalKey: messages have no natural key stronger than linkage
func (m EmailMessage) NaturalKey() string { return "" }

// Linkage returns the provider linkage pair
func (m EmailMessage) Linkage() Linkage { return m.Link }

// RemoteUpdatedAt returns the provider-reported modification time
func (m EmailMessage) RemoteUpdatedAt() time.Time { return m.ProviderUpdatedAt }

// SyncStatus exposes the folder so moves (e.g. into trash) propagate
// even without a fresh timestamp
func (m EmailMessage) SyncStatus() string { return string(m.Folder) }

// MergeFrom applies a provider-wins merge
func (m EmailMessage) MergeFrom(incoming EmailMessage) EmailMessage {
	merged := m
	merged.Subject = pickString(incoming.Subject, m.Subject)
	merged.Sender = pickString(incoming.Sender, m.Sender)
	merged.Recipients = pickStrings(incoming.Recipients, m.Recipients)
	merged.Snippet = pickString(incoming.Snippet, m.Snippet)
	if incoming.Folder != "" {
		merged.Folder = incoming.Folder
	}
	if !incoming.SentAt.IsZero() {
		merged.SentAt = incoming.SentAt
	}
	merged.Read = incoming.Read
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
func (m EmailMessage) Stamped(id uuid.UUID, at time.Time) EmailMessage {
	stamped := m
	if stamped.ID == uuid.Nil {
		stamped.ID = id
	}
	if stamped.Folder == "" {
		stamped.Folder = FolderInbox
	}
	stamped.ProviderUpdatedAt = at
	return stamped
}
