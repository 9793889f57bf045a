package repository

import (
	"context"
	"sync"

	"personal-organizer/backend/internal/db"
	"personal-organizer/backend/internal/model"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory stand-in for the Postgres repositories,
// used by tests and local development without a database. Key access
// is injected because the entity types share no ID accessor.
type MemoryStore[T any] struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]T

	id     func(T) uuid.UUID
	withID func(T, uuid.UUID) T
	link   func(T) model.Linkage
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore[T any](id func(T) uuid.UUID, withID func(T, uuid.UUID) T, link func(T) model.Linkage) *MemoryStore[T] {
	return &MemoryStore[T]{
		rows:   make(map[uuid.UUID]T),
		id:     id,
		withID: withID,
		link:   link,
	}
}

// ListAll returns every stored record
func (s *MemoryStore[T]) ListAll(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.rows))
	for _, rec := range s.rows {
		out = append(out, rec)
	}
	return out, nil
}

// FindByLinkage retrieves the record mirroring a provider record
func (s *MemoryStore[T]) FindByLinkage(ctx context.Context, link model.Linkage) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.rows {
		if s.link(rec) == link {
			found := rec
			return &found, nil
		}
	}
	return nil, db.ErrNotFound
}

// Upsert inserts or replaces a record and returns the stored copy
func (s *MemoryStore[T]) Upsert(ctx context.Context, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id(rec) == uuid.Nil {
		rec = s.withID(rec, uuid.New())
	}
	s.rows[s.id(rec)] = rec
	return rec, nil
}

// Delete removes a record
func (s *MemoryStore[T]) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Len reports the number of stored records
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
