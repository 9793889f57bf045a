// Package syncer drives one domain's sync: it drains every linked
// account's provider listing into a batch, reconciles the batch against
// local state and executes the resulting plan. Account failures are
// isolated: one broken account never aborts its siblings.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/logger"
	"personal-organizer/backend/internal/provider"
	"personal-organizer/backend/internal/reconcile"
	"personal-organizer/backend/internal/remote"
	"personal-organizer/backend/internal/token"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 50
	defaultWorkers  = 4
)

// Store is the persistence surface a domain syncer writes through
type Store[T any] interface {
	ListAll(ctx context.Context) ([]T, error)
	Upsert(ctx context.Context, rec T) (T, error)
}

// Fetcher selects the domain adapter from a set and fetches one page
type Fetcher[T any] func(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[T], error)

// AccountResult records one account's outcome within a run
type AccountResult struct {
	AccountID      uuid.UUID `json:"account_id"`
	Email          string    `json:"email"`
	Fetched        int       `json:"fetched"`
	Error          string    `json:"error,omitempty"`
	ReauthRequired bool      `json:"reauth_required,omitempty"`
}

// Result is the outcome of one domain sync run
type Result struct {
	Domain     account.Domain  `json:"domain"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Accounts   []AccountResult `json:"accounts"`
	Inserted   int             `json:"inserted"`
	Updated    int             `json:"updated"`
	Skipped    int             `json:"skipped"`
	Unchanged  int             `json:"unchanged"`
	Total      int             `json:"total"`
}

// Syncer reconciles one domain across all linked accounts
type Syncer[T reconcile.Record[T]] struct {
	domain   account.Domain
	accounts account.Store
	registry *provider.Registry
	store    Store[T]
	engine   *reconcile.Engine[T]
	fetch    Fetcher[T]

	pageSize int
	workers  int
}

// New creates a domain syncer
func New[T reconcile.Record[T]](
	domain account.Domain,
	accounts account.Store,
	registry *provider.Registry,
	store Store[T],
	engine *reconcile.Engine[T],
	fetch Fetcher[T],
) *Syncer[T] {
	return &Syncer[T]{
		domain:   domain,
		accounts: accounts,
		registry: registry,
		store:    store,
		engine:   engine,
		fetch:    fetch,
		pageSize: defaultPageSize,
		workers:  defaultWorkers,
	}
}

// WithPageSize overrides the fetch page size
func (s *Syncer[T]) WithPageSize(n int) *Syncer[T] {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// Run executes one sync pass and returns the run result together with
// the full local entity set as persisted after the pass
func (s *Syncer[T]) Run(ctx context.Context) (*Result, []T, error) {
	result := &Result{Domain: s.domain, StartedAt: time.Now()}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}

	var batch []T
	for i := range accounts {
		acct := &accounts[i]
		if !acct.CanSync(s.domain) {
			continue
		}

		items, accountResult := s.drainAccount(ctx, acct)
		result.Accounts = append(result.Accounts, accountResult)
		if accountResult.Error == "" {
			batch = append(batch, items...)
		}
	}

	local, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list local %s records: %w", s.domain, err)
	}

	plan := s.engine.Plan(batch, local)
	result.Skipped = plan.Skipped
	result.Unchanged = plan.Unchanged

	if err := s.execute(ctx, plan, result); err != nil {
		return nil, nil, err
	}

	// One authoritative re-read; planned rows carried provisional
	// timestamps that the database has since replaced
	final, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reread %s records: %w", s.domain, err)
	}
	result.Total = len(final)
	result.FinishedAt = time.Now()

	logger.Info().
		Str("domain", string(s.domain)).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("unchanged", result.Unchanged).
		Int("total", result.Total).
		Msg("Sync pass complete")

	return result, final, nil
}

// drainAccount fetches every page of one account's listing. A failure
// mid-listing discards the partial batch: half an account is worse
// than none, and the next pass starts clean.
func (s *Syncer[T]) drainAccount(ctx context.Context, acct *account.IntegrationAccount) ([]T, AccountResult) {
	accountResult := AccountResult{AccountID: acct.ID, Email: acct.DisplayEmail}

	set, err := s.registry.For(acct)
	if err != nil {
		accountResult.Error = err.Error()
		return nil, accountResult
	}

	var items []T
	for page := 0; ; page++ {
		fetched, err := s.fetch(ctx, set, provider.Query{}, provider.PageRequest{Page: page, PageSize: s.pageSize})
		if err != nil {
			accountResult.Error = err.Error()
			accountResult.ReauthRequired = isReauth(err)
			logger.Warn().
				Err(err).
				Str("domain", string(s.domain)).
				Str("account", acct.DisplayEmail).
				Bool("reauth_required", accountResult.ReauthRequired).
				Msg("Account sync failed")
			return nil, accountResult
		}

		items = append(items, fetched.Items...)
		accountResult.Fetched = len(items)
		if !fetched.HasMore {
			break
		}
	}
	return items, accountResult
}

// execute writes the plan with bounded concurrency
func (s *Syncer[T]) execute(ctx context.Context, plan reconcile.Plan[T], result *Result) error {
	if plan.Empty() {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, rec := range plan.Inserts {
		rec := rec
		g.Go(func() error {
			if _, err := s.store.Upsert(gctx, rec); err != nil {
				return fmt.Errorf("insert %s record: %w", s.domain, err)
			}
			mu.Lock()
			result.Inserted++
			mu.Unlock()
			return nil
		})
	}
	for _, rec := range plan.Updates {
		rec := rec
		g.Go(func() error {
			if _, err := s.store.Upsert(gctx, rec); err != nil {
				return fmt.Errorf("update %s record: %w", s.domain, err)
			}
			mu.Lock()
			result.Updated++
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// isReauth reports whether an account error means the user must
// relink; only this class of failure changes account state
func isReauth(err error) bool {
	var reauth *token.ReauthRequiredError
	if errors.As(err, &reauth) {
		return true
	}
	var auth *remote.AuthenticationError
	return errors.As(err, &auth)
}
