package provider

import (
	"fmt"
	"sync"

	"personal-organizer/backend/internal/account"
)

// Factory builds the adapter set for one linked account. Adapter
// instances are per-account: they hold per-account pagination state.
type Factory func(acct *account.IntegrationAccount) *Set

// Registry maps account kinds to adapter constructors. Kind dispatch
// happens here, once, at the boundary; business logic never branches
// on provider kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[account.Kind]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[account.Kind]Factory)}
}

// Register adds a factory for an account kind, replacing any existing one
func (r *Registry) Register(kind account.Kind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// For resolves the adapter set for an account
func (r *Registry) For(acct *account.IntegrationAccount) (*Set, error) {
	r.mu.RLock()
	factory, ok := r.factories[acct.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no adapter registered for account kind %q", acct.Kind)
	}
	return factory(acct), nil
}

// Kinds returns the registered account kinds
func (r *Registry) Kinds() []account.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]account.Kind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	return kinds
}
