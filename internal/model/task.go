package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the completion state of a task
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a to-do item, either locally created or mirrored from a
// provider's task list.
type Task struct {
	ID     uuid.UUID  `json:"id"`
	Title  string     `json:"title"`
	Notes  string     `json:"notes,omitempty"`
	Status TaskStatus `json:"status"`
	DueAt  *time.Time `json:"due_at,omitempty"`
	ListID string     `json:"list_id,omitempty"`

	Link              Linkage   `json:"link"`
	ProviderUpdatedAt time.Time `json:"provider_updated_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasIdentity: a task needs at least a title
func (t Task) HasIdentity() bool { return t.Title != "" }

// NaturalKey: tasks have no natural key stronger than linkage
func (t Task) NaturalKey() string { return "" }

// Linkage returns the provider linkage pair
func (t Task) Linkage() Linkage { return t.Link }

// RemoteUpdatedAt returns the provider-reported modification time
func (t Task) RemoteUpdatedAt() time.Time { return t.ProviderUpdatedAt }

// SyncStatus exposes the completion state for status-transition merges
func (t Task) SyncStatus() string { return string(t.Status) }

// MergeFrom applies a provider-wins merge
func (t Task) MergeFrom(incoming Task) Task {
	merged := t
	merged.Title = pickString(incoming.Title, t.Title)
	merged.Notes = pickString(incoming.Notes, t.Notes)
	merged.DueAt = pickTime(incoming.DueAt, t.DueAt)
	merged.ListID = pickString(incoming.ListID, t.ListID)
	if incoming.Status != "" {
		merged.Status = incoming.Status
	}
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
func (t Task) Stamped(id uuid.UUID, at time.Time) Task {
	stamped := t
	if stamped.ID == uuid.Nil {
		stamped.ID = id
	}
	if stamped.Status == "" {
		stamped.Status = TaskStatusOpen
	}
	stamped.ProviderUpdatedAt = at
	return stamped
}
