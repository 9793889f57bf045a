// Package service holds the application services sitting between the
// HTTP handlers and the domain packages.
package service

import (
	"context"
	"fmt"
	"sync"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/logger"
	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/syncer"
)

// ErrSyncInProgress is returned when a domain sync is already running
type ErrSyncInProgress struct {
	Domain account.Domain
}

func (e *ErrSyncInProgress) Error() string {
	return fmt.Sprintf("%s sync already in progress", e.Domain)
}

// SyncService coordinates the four domain syncers. At most one run per
// domain may be in flight; triggers for a busy domain are rejected
// rather than queued.
type SyncService struct {
	people *syncer.Syncer[model.Person]
	events *syncer.Syncer[model.CalendarEvent]
	tasks  *syncer.Syncer[model.Task]
	mail   *syncer.Syncer[model.EmailMessage]

	mu      sync.Mutex
	running map[account.Domain]bool
	last    map[account.Domain]*syncer.Result
}

// NewSyncService creates the sync coordinator
func NewSyncService(
	people *syncer.Syncer[model.Person],
	events *syncer.Syncer[model.CalendarEvent],
	tasks *syncer.Syncer[model.Task],
	mail *syncer.Syncer[model.EmailMessage],
) *SyncService {
	return &SyncService{
		people:  people,
		events:  events,
		tasks:   tasks,
		mail:    mail,
		running: make(map[account.Domain]bool),
		last:    make(map[account.Domain]*syncer.Result),
	}
}

// SyncDomain runs one domain's sync pass
func (s *SyncService) SyncDomain(ctx context.Context, domain account.Domain) (*syncer.Result, error) {
	if err := s.begin(domain); err != nil {
		return nil, err
	}
	defer s.end(domain)

	var result *syncer.Result
	var err error
	switch domain {
	case account.DomainContacts:
		result, _, err = s.people.Run(ctx)
	case account.DomainCalendar:
		result, _, err = s.events.Run(ctx)
	case account.DomainTasks:
		result, _, err = s.tasks.Run(ctx)
	case account.DomainMail:
		result, _, err = s.mail.Run(ctx)
	default:
		return nil, fmt.Errorf("unknown sync domain: %q", domain)
	}
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", domain, err)
	}

	s.mu.Lock()
	s.last[domain] = result
	s.mu.Unlock()
	return result, nil
}

// SyncAll runs every domain in order; a failing domain is logged and
// does not stop the rest
func (s *SyncService) SyncAll(ctx context.Context) map[account.Domain]*syncer.Result {
	results := make(map[account.Domain]*syncer.Result, len(account.Domains))
	for _, domain := range account.Domains {
		result, err := s.SyncDomain(ctx, domain)
		if err != nil {
			logger.Error().Err(err).Str("domain", string(domain)).Msg("Domain sync failed")
			continue
		}
		results[domain] = result
	}
	return results
}

// Status reports whether each domain is running and its last result
type Status struct {
	Running    bool           `json:"running"`
	LastResult *syncer.Result `json:"last_result,omitempty"`
}

// Status returns the per-domain sync state
func (s *SyncService) Status() map[account.Domain]Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[account.Domain]Status, len(account.Domains))
	for _, domain := range account.Domains {
		out[domain] = Status{Running: s.running[domain], LastResult: s.last[domain]}
	}
	return out
}

func (s *SyncService) begin(domain account.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[domain] {
		return &ErrSyncInProgress{Domain: domain}
	}
	s.running[domain] = true
	return nil
}

func (s *SyncService) end(domain account.Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[domain] = false
}
