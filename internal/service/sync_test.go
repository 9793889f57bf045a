package service

import (
	"context"
	"testing"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"
	"personal-organizer/backend/internal/reconcile"
	"personal-organizer/backend/internal/repository"
	"personal-organizer/backend/internal/syncer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingContacts parks Fetch on a channel so a test can hold a
// domain sync open while probing the coordinator
type blockingContacts struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingContacts) IsAuthenticated(ctx context.Context) bool { return true }
func (f *blockingContacts) Authenticate(ctx context.Context) error   { return nil }

func (f *blockingContacts) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
	close(f.started)
	<-f.release
	return &provider.FetchResult[model.Person]{
		Items: []model.Person{{
			Name:              "Held Contact",
			Email:             "held@example.com",
			Link:              model.Linkage{ProviderID: "c1", AccountID: "a1"},
			ProviderUpdatedAt: time.Now().Add(-time.Hour),
		}},
	}, nil
}

func (f *blockingContacts) Create(ctx context.Context, p model.Person) (*model.Person, error) {
	return nil, nil
}
func (f *blockingContacts) Update(ctx context.Context, p model.Person) (*model.Person, error) {
	return nil, nil
}
func (f *blockingContacts) Delete(ctx context.Context, providerID string) error { return nil }
func (f *blockingContacts) ListGroups(ctx context.Context) ([]provider.Collection, error) {
	return nil, nil
}

func newTestService(t *testing.T, contacts provider.ContactsAdapter) *SyncService {
	t.Helper()

	accounts := account.NewMemoryStore()
	expiry := time.Now().Add(time.Hour)
	acct := &account.IntegrationAccount{
		ID:           uuid.New(),
		Kind:         account.KindGoogle,
		DisplayEmail: "user@example.com",
		Capabilities: account.Capabilities{SyncContacts: true},
		Credential: account.CredentialState{
			AccessToken: "at",
			TokenExpiry: &expiry,
			Connected:   true,
		},
	}
	require.NoError(t, accounts.Save(context.Background(), acct))

	registry := provider.NewRegistry()
	registry.Register(account.KindGoogle, func(a *account.IntegrationAccount) *provider.Set {
		return &provider.Set{Contacts: contacts}
	})

	people := syncer.New(
		account.DomainContacts, accounts, registry,
		repository.NewMemoryStore(
			func(p model.Person) uuid.UUID { return p.ID },
			func(p model.Person, id uuid.UUID) model.Person { p.ID = id; return p },
			func(p model.Person) model.Linkage { return p.Link },
		),
		reconcile.NewEngine[model.Person](reconcile.DefaultStrategy()),
		func(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
			return set.Contacts.Fetch(ctx, q, p)
		},
	)
	events := syncer.New(
		account.DomainCalendar, accounts, registry,
		repository.NewMemoryStore(
			func(e model.CalendarEvent) uuid.UUID { return e.ID },
			func(e model.CalendarEvent, id uuid.UUID) model.CalendarEvent { e.ID = id; return e },
			func(e model.CalendarEvent) model.Linkage { return e.Link },
		),
		reconcile.NewEngine[model.CalendarEvent](reconcile.DefaultStrategy()),
		func(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.CalendarEvent], error) {
			return set.Calendar.Fetch(ctx, q, p)
		},
	)
	tasks := syncer.New(
		account.DomainTasks, accounts, registry,
		repository.NewMemoryStore(
			func(task model.Task) uuid.UUID { return task.ID },
			func(task model.Task, id uuid.UUID) model.Task { task.ID = id; return task },
			func(task model.Task) model.Linkage { return task.Link },
		),
		reconcile.NewEngine[model.Task](reconcile.DefaultStrategy()),
		func(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Task], error) {
			return set.Tasks.Fetch(ctx, q, p)
		},
	)
	mail := syncer.New(
		account.DomainMail, accounts, registry,
		repository.NewMemoryStore(
			func(m model.EmailMessage) uuid.UUID { return m.ID },
			func(m model.EmailMessage, id uuid.UUID) model.EmailMessage { m.ID = id; return m },
			func(m model.EmailMessage) model.Linkage { return m.Link },
		),
		reconcile.NewEngine[model.EmailMessage](reconcile.DefaultStrategy()),
		func(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.EmailMessage], error) {
			return set.Mail.Fetch(ctx, q, p)
		},
	)

	return NewSyncService(people, events, tasks, mail)
}

func TestSyncDomainRejectsConcurrentRun(t *testing.T) {
	adapter := &blockingContacts{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, adapter)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncDomain(context.Background(), account.DomainContacts)
		done <- err
	}()

	<-adapter.started

	_, err := svc.SyncDomain(context.Background(), account.DomainContacts)
	var busy *ErrSyncInProgress
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, account.DomainContacts, busy.Domain)

	close(adapter.release)
	require.NoError(t, <-done)

	// After the run finishes the domain accepts triggers again; the
	// adapter's channels are spent so a fresh one backs the second run
	status := svc.Status()
	assert.False(t, status[account.DomainContacts].Running)
	require.NotNil(t, status[account.DomainContacts].LastResult)
	assert.Equal(t, 1, status[account.DomainContacts].LastResult.Inserted)
}

func TestSyncDomainUnknown(t *testing.T) {
	adapter := &blockingContacts{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, adapter)

	_, err := svc.SyncDomain(context.Background(), account.Domain("journals"))
	assert.Error(t, err)
}

func TestStatusBeforeAnyRun(t *testing.T) {
	adapter := &blockingContacts{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, adapter)

	status := svc.Status()
	require.Len(t, status, len(account.Domains))
	for _, domain := range account.Domains {
		assert.False(t, status[domain].Running)
		assert.Nil(t, status[domain].LastResult)
	}
}
