package model

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of a calendar event
type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

// CalendarEvent is a meeting or appointment, either locally created or
// mirrored from a provider's calendar.
type CalendarEvent struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Status      EventStatus `json:"status"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	AllDay      bool        `json:"all_day"`
	CalendarID  string      `json:"calendar_id,omitempty"`
	Attendees   []string    `json:"attendees,omitempty"`

	Link              Linkage   `json:"link"`
	ProviderUpdatedAt time.Time `json:"provider_updated_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasIdentity: an event needs a title or a start time
func (e CalendarEvent) HasIdentity() bool {
	return e.Title != "" || !e.StartsAt.IsZero()
}

// NaturalKey: events have no natural key stronger than linkage
func (e CalendarEvent) NaturalKey() string { return "" }

// Linkage returns the provider linkage pair
func (e CalendarEvent) Linkage() Linkage { return e.Link }

// RemoteUpdatedAt returns the provider-reported modification time
func (e CalendarEvent) RemoteUpdatedAt() time.Time { return e.ProviderUpdatedAt }

// SyncStatus exposes the event status for status-transition merges;
// cancellations must propagate even without a fresh timestamp
func (e CalendarEvent) SyncStatus() string { return string(e.Status) }

// MergeFrom applies a provider-wins merge
func (e CalendarEvent) MergeFrom(incoming CalendarEvent) CalendarEvent {
	merged := e
	merged.Title = pickString(incoming.Title, e.Title)
	merged.Description = pickString(incoming.Description, e.Description)
	merged.Location = pickString(incoming.Location, e.Location)
	merged.CalendarID = pickString(incoming.CalendarID, e.CalendarID)
	merged.Attendees = pickStrings(incoming.Attendees, e.Attendees)
	if incoming.Status != "" {
		merged.Status = incoming.Status
	}
	if !incoming.StartsAt.IsZero() {
		merged.StartsAt = incoming.StartsAt
		merged.AllDay = incoming.AllDay
	}
	if !incoming.EndsAt.IsZero() {
		merged.EndsAt = incoming.EndsAt
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
func (e CalendarEvent) Stamped(id uuid.UUID, at time.Time) CalendarEvent {
	stamped := e
	if stamped.ID == uuid.Nil {
		stamped.ID = id
	}
	if stamped.Status == "" {
		stamped.Status = EventStatusConfirmed
	}
	stamped.ProviderUpdatedAt = at
	return stamped
}
