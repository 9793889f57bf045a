package account

import (
	"context"
	"sort"
	"sync"

	"personal-organizer/backend/internal/db"

	"github.com/google/uuid"
)

// Store is the account settings collaborator: the source of truth for
// linked accounts and their capability flags
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*IntegrationAccount, error)
	List(ctx context.Context) ([]IntegrationAccount, error)
	Save(ctx context.Context, acct *IntegrationAccount) error
	UpdateCredential(ctx context.Context, id uuid.UUID, cred CredentialState) error
	SetCapabilities(ctx context.Context, id uuid.UUID, caps Capabilities) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is an in-memory Store used by tests and the demo runner
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]IntegrationAccount
}

// NewMemoryStore creates an empty in-memory account store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]IntegrationAccount)}
}

// Get retrieves an account by id
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*IntegrationAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &acct, nil
}

// List returns all accounts ordered by display email
func (s *MemoryStore) List(ctx context.Context) ([]IntegrationAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accts := make([]IntegrationAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		accts = append(accts, a)
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].DisplayEmail < accts[j].DisplayEmail })
	return accts, nil
}

// Save inserts or replaces an account
func (s *MemoryStore) Save(ctx context.Context, acct *IntegrationAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	s.accounts[acct.ID] = *acct
	return nil
}

// UpdateCredential replaces the credential state for an account
func (s *MemoryStore) UpdateCredential(ctx context.Context, id uuid.UUID, cred CredentialState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return db.ErrNotFound
	}
	acct.Credential = cred
	s.accounts[id] = acct
	return nil
}

// SetCapabilities replaces the capability flags for an account
func (s *MemoryStore) SetCapabilities(ctx context.Context, id uuid.UUID, caps Capabilities) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return db.ErrNotFound
	}
	acct.Capabilities = caps
	s.accounts[id] = acct
	return nil
}

// Delete removes an account
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}
