// Package provider defines the capability interfaces every account kind
// implements, one per domain, plus the kind-to-adapter registry.
package provider

import (
	"context"
	"time"

	"personal-organizer/backend/internal/model"
)

// Query narrows a fetch; zero value means "everything"
type Query struct {
	Search       string
	Folder       model.Folder // mail only
	CalendarID   string       // calendar only
	ListID       string       // tasks only
	UpdatedSince *time.Time
}

// PageRequest addresses one page of a listing
type PageRequest struct {
	Page     int
	PageSize int
}

// FetchResult is one page of canonical records plus paging facts
type FetchResult[T any] struct {
	Items      []T
	TotalCount int
	HasMore    bool
}

// Collection is a provider-side grouping: a mail folder, a calendar, a
// contact group or a task list
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Capability is the part of every adapter that deals with auth state
type Capability interface {
	IsAuthenticated(ctx context.Context) bool
	Authenticate(ctx context.Context) error
}

// ContactsAdapter syncs the provider's address book
type ContactsAdapter interface {
	Capability
	Fetch(ctx context.Context, q Query, p PageRequest) (*FetchResult[model.Person], error)
	Create(ctx context.Context, person model.Person) (*model.Person, error)
	Update(ctx context.Context, person model.Person) (*model.Person, error)
	Delete(ctx context.Context, providerID string) error
	ListGroups(ctx context.Context) ([]Collection, error)
}

// CalendarAdapter syncs the provider's calendars
type CalendarAdapter interface {
	Capability
	Fetch(ctx context.Context, q Query, p PageRequest) (*FetchResult[model.CalendarEvent], error)
	Create(ctx context.Context, event model.CalendarEvent) (*model.CalendarEvent, error)
	Update(ctx context.Context, event model.CalendarEvent) (*model.CalendarEvent, error)
	Delete(ctx context.Context, providerID string) error
	ListCalendars(ctx context.Context) ([]Collection, error)
}

// TasksAdapter syncs the provider's task lists
type TasksAdapter interface {
	Capability
	Fetch(ctx context.Context, q Query, p PageRequest) (*FetchResult[model.Task], error)
	Create(ctx context.Context, task model.Task) (*model.Task, error)
	Update(ctx context.Context, task model.Task) (*model.Task, error)
	Delete(ctx context.Context, providerID string) error
	ListTaskLists(ctx context.Context) ([]Collection, error)
}

// MailAdapter syncs the provider's mailboxes. Mail is read-mostly;
// Create drafts a message, Update changes read/flag state.
type MailAdapter interface {
	Capability
	Fetch(ctx context.Context, q Query, p PageRequest) (*FetchResult[model.EmailMessage], error)
	Create(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error)
	Update(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error)
	Delete(ctx context.Context, providerID string) error
	ListFolders(ctx context.Context) ([]Collection, error)
}

// Set bundles the four domain adapters for one account
type Set struct {
	Contacts ContactsAdapter
	Calendar CalendarAdapter
	Tasks    TasksAdapter
	Mail     MailAdapter
}
