package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"
	"personal-organizer/backend/internal/reconcile"
	"personal-organizer/backend/internal/repository"
	"personal-organizer/backend/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContacts serves pre-canned pages for one account, optionally
// failing the fetch of a given page
type fakeContacts struct {
	pages    [][]model.Person
	failPage int
	failErr  error
}

func (f *fakeContacts) IsAuthenticated(ctx context.Context) bool { return true }
func (f *fakeContacts) Authenticate(ctx context.Context) error   { return nil }

func (f *fakeContacts) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
	if f.failErr != nil && p.Page == f.failPage {
		return nil, f.failErr
	}
	if p.Page >= len(f.pages) {
		return &provider.FetchResult[model.Person]{}, nil
	}
	return &provider.FetchResult[model.Person]{
		Items:   f.pages[p.Page],
		HasMore: p.Page < len(f.pages)-1,
	}, nil
}

func (f *fakeContacts) Create(ctx context.Context, p model.Person) (*model.Person, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeContacts) Update(ctx context.Context, p model.Person) (*model.Person, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeContacts) Delete(ctx context.Context, providerID string) error {
	return errors.New("not implemented")
}
func (f *fakeContacts) ListGroups(ctx context.Context) ([]provider.Collection, error) {
	return nil, nil
}

func newPersonStore() *repository.MemoryStore[model.Person] {
	return repository.NewMemoryStore(
		func(p model.Person) uuid.UUID { return p.ID },
		func(p model.Person, id uuid.UUID) model.Person { p.ID = id; return p },
		func(p model.Person) model.Linkage { return p.Link },
	)
}

func contactAccount(email string) *account.IntegrationAccount {
	expiry := time.Now().Add(time.Hour)
	return &account.IntegrationAccount{
		ID:           uuid.New(),
		Kind:         account.KindGoogle,
		DisplayEmail: email,
		Capabilities: account.Capabilities{SyncContacts: true},
		Credential: account.CredentialState{
			AccessToken:  "at",
			RefreshToken: "rt",
			TokenExpiry:  &expiry,
			Connected:    true,
		},
	}
}

func personPage(acct *account.IntegrationAccount, page, n int) []model.Person {
	items := make([]model.Person, n)
	for i := range items {
		items[i] = model.Person{
			Name:  fmt.Sprintf("%s person %d-%d", acct.DisplayEmail, page, i),
			Email: fmt.Sprintf("p%d-%d@%s", page, i, acct.DisplayEmail),
			Link: model.Linkage{
				ProviderID: fmt.Sprintf("%s/c%d-%d", acct.DisplayEmail, page, i),
				AccountID:  acct.ID.String(),
			},
			ProviderUpdatedAt: time.Now().Add(-time.Hour),
		}
	}
	return items
}

// newContactSyncer wires a syncer over the in-memory store with one
// fake adapter per account, keyed by account id
func newContactSyncer(t *testing.T, accounts *account.MemoryStore, adapters map[uuid.UUID]*fakeContacts) (*Syncer[model.Person], *repository.MemoryStore[model.Person]) {
	t.Helper()

	registry := provider.NewRegistry()
	registry.Register(account.KindGoogle, func(acct *account.IntegrationAccount) *provider.Set {
		return &provider.Set{Contacts: adapters[acct.ID]}
	})

	store := newPersonStore()
	engine := reconcile.NewEngine[model.Person](reconcile.DefaultStrategy())
	fetch := func(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
		return set.Contacts.Fetch(ctx, q, p)
	}
	s := New(account.DomainContacts, accounts, registry, store, engine, fetch).WithPageSize(10)
	return s, store
}

func TestRunDrainsAllPages(t *testing.T) {
	accounts := account.NewMemoryStore()
	acct := contactAccount("one@example.com")
	require.NoError(t, accounts.Save(context.Background(), acct))

	adapter := &fakeContacts{pages: [][]model.Person{
		personPage(acct, 0, 2),
		personPage(acct, 1, 2),
		personPage(acct, 2, 1),
	}}
	s, store := newContactSyncer(t, accounts, map[uuid.UUID]*fakeContacts{acct.ID: adapter})

	result, final, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Accounts, 1)
	assert.Equal(t, 5, result.Accounts[0].Fetched)
	assert.Empty(t, result.Accounts[0].Error)
	assert.Equal(t, 5, result.Inserted)
	assert.Equal(t, 5, result.Total)
	assert.Len(t, final, 5)
	assert.Equal(t, 5, store.Len())

	// Every persisted row got an id
	for _, p := range final {
		assert.NotEqual(t, uuid.Nil, p.ID)
	}
}

func TestRunIsolatesFailingAccount(t *testing.T) {
	accounts := account.NewMemoryStore()
	good := contactAccount("good@example.com")
	broken := contactAccount("broken@example.com")
	other := contactAccount("other@example.com")
	for _, a := range []*account.IntegrationAccount{good, broken, other} {
		require.NoError(t, accounts.Save(context.Background(), a))
	}

	adapters := map[uuid.UUID]*fakeContacts{
		good.ID: {pages: [][]model.Person{personPage(good, 0, 3)}},
		broken.ID: {
			pages:    [][]model.Person{personPage(broken, 0, 2), personPage(broken, 1, 2)},
			failPage: 1,
			failErr:  errors.New("listing truncated"),
		},
		other.ID: {pages: [][]model.Person{personPage(other, 0, 2)}},
	}

	s, store := newContactSyncer(t, accounts, adapters)
	result, final, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Accounts, 3)
	var brokenResult AccountResult
	for _, ar := range result.Accounts {
		if ar.AccountID == broken.ID {
			brokenResult = ar
		}
	}
	assert.Equal(t, "listing truncated", brokenResult.Error)
	assert.False(t, brokenResult.ReauthRequired)

	// The failing account's partial page is discarded, the healthy
	// accounts land in full
	assert.Equal(t, 5, result.Inserted)
	assert.Equal(t, 5, store.Len())
	for _, p := range final {
		assert.NotEqual(t, broken.ID.String(), p.Link.AccountID)
	}
}

func TestRunFlagsReauthRequired(t *testing.T) {
	accounts := account.NewMemoryStore()
	acct := contactAccount("expired@example.com")
	require.NoError(t, accounts.Save(context.Background(), acct))

	adapters := map[uuid.UUID]*fakeContacts{
		acct.ID: {failPage: 0, failErr: &token.ReauthRequiredError{Email: acct.DisplayEmail}},
	}
	s, _ := newContactSyncer(t, accounts, adapters)

	result, _, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Accounts, 1)
	assert.True(t, result.Accounts[0].ReauthRequired)
	assert.NotEmpty(t, result.Accounts[0].Error)
}

func TestRunSkipsIncapableAccounts(t *testing.T) {
	accounts := account.NewMemoryStore()

	noCap := contactAccount("nocap@example.com")
	noCap.Capabilities.SyncContacts = false
	disconnected := contactAccount("gone@example.com")
	disconnected.Credential.Connected = false
	for _, a := range []*account.IntegrationAccount{noCap, disconnected} {
		require.NoError(t, accounts.Save(context.Background(), a))
	}

	s, _ := newContactSyncer(t, accounts, map[uuid.UUID]*fakeContacts{})
	result, final, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Accounts)
	assert.Empty(t, final)
}

func TestRunLinkagePairsStayUnique(t *testing.T) {
	accounts := account.NewMemoryStore()
	first := contactAccount("first@example.com")
	second := contactAccount("second@example.com")
	for _, a := range []*account.IntegrationAccount{first, second} {
		require.NoError(t, accounts.Save(context.Background(), a))
	}

	// Both providers hand out the same remote ids and the second
	// account repeats one record across page boundaries
	sharedID := func(acct *account.IntegrationAccount, remote string) model.Person {
		return model.Person{
			Name:  "Shared " + remote,
			Email: fmt.Sprintf("%s@%s", remote, acct.DisplayEmail),
			Link: model.Linkage{
				ProviderID: remote,
				AccountID:  acct.ID.String(),
			},
			ProviderUpdatedAt: time.Now().Add(-time.Hour),
		}
	}
	adapters := map[uuid.UUID]*fakeContacts{
		first.ID: {pages: [][]model.Person{
			{sharedID(first, "people/c1"), sharedID(first, "people/c2")},
		}},
		second.ID: {pages: [][]model.Person{
			{sharedID(second, "people/c1")},
			{sharedID(second, "people/c1"), sharedID(second, "people/c2")},
		}},
	}

	s, _ := newContactSyncer(t, accounts, adapters)
	_, _, err := s.Run(context.Background())
	require.NoError(t, err)

	// A repeat run over the persisted state must not mint duplicates
	_, final, err := s.Run(context.Background())
	require.NoError(t, err)

	seen := make(map[model.Linkage]int)
	for _, p := range final {
		if p.Link.Zero() {
			continue
		}
		seen[p.Link]++
	}
	require.Len(t, seen, 4)
	for link, count := range seen {
		assert.Equalf(t, 1, count, "linkage %s/%s persisted %d times", link.AccountID, link.ProviderID, count)
	}
}

func TestRunSecondPassIsUnchanged(t *testing.T) {
	accounts := account.NewMemoryStore()
	acct := contactAccount("steady@example.com")
	require.NoError(t, accounts.Save(context.Background(), acct))

	adapters := map[uuid.UUID]*fakeContacts{
		acct.ID: {pages: [][]model.Person{personPage(acct, 0, 3)}},
	}
	s, _ := newContactSyncer(t, accounts, adapters)

	first, _, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, final, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Zero(t, second.Updated)
	assert.Equal(t, 3, second.Unchanged)
	assert.Len(t, final, 3)
}
