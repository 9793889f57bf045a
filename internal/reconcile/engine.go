// Package reconcile merges provider-sourced records into the local
// entity set without creating duplicates or clobbering newer local
// edits. The engine performs no I/O: it returns a plan of inserts and
// updates for the orchestrator to execute.
package reconcile

import (
	"time"

	"personal-organizer/backend/internal/model"

	"github.com/google/uuid"
)

// Record is the contract a canonical entity must satisfy to be
// reconciled. Implemented by model.Person, model.Task,
// model.CalendarEvent and model.EmailMessage.
type Record[T any] interface {
	HasIdentity() bool
	NaturalKey() string
	Linkage() model.Linkage
	RemoteUpdatedAt() time.Time
	SyncStatus() string
	MergeFrom(incoming T) T
	Stamped(id uuid.UUID, at time.Time) T
}

// Plan is the reconciliation outcome: entities to insert, entities to
// update, and counters for everything left alone.
type Plan[T any] struct {
	Inserts   []T
	Updates   []T
	Skipped   int // records missing required identity fields
	Unchanged int // linked entities with nothing newer to write
}

// Empty reports whether the plan carries no writes
func (p Plan[T]) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0
}

// Engine reconciles one domain's provider batches against local state
type Engine[T Record[T]] struct {
	strategy Strategy
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewEngine creates an engine with the given merge strategy
func NewEngine[T Record[T]](strategy Strategy) *Engine[T] {
	if strategy == nil {
		strategy = DefaultStrategy()
	}
	return &Engine[T]{
		strategy: strategy,
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Plan computes the reconciliation plan for a batch of provider records
// against the current local entity set. Local entities with no provider
// linkage are purely local and are never touched. Absence of a local
// entity's counterpart from the batch never implies deletion.
func (e *Engine[T]) Plan(incoming []T, local []T) Plan[T] {
	var plan Plan[T]

	// Shared entries keep every alias of one entity (linkage pairs,
	// natural keys) pointing at the same planned slot, so two batch
	// records matching the same entity fold into one write instead of
	// racing two upserts against the same row.
	idx := newEntityIndex[T]()
	for _, entity := range local {
		if entity.Linkage().Zero() {
			continue
		}
		idx.add(&planEntry[T]{value: entity, slot: notPlanned})
	}

	// Dedupe the batch by linkage so one pass can never plan two writes
	// for the same remote record; later occurrences fold into earlier.
	incoming = dedupe(incoming)

	now := e.now()
	for _, record := range incoming {
		if !record.HasIdentity() {
			plan.Skipped++
			continue
		}

		ent := idx.lookup(record)
		if ent == nil {
			at := record.RemoteUpdatedAt()
			if at.IsZero() {
				// Provisional clock stamp; the persisted row's
				// authoritative timestamp replaces it on write-back
				at = now
			}
			created := record.Stamped(e.newID(), at)
			plan.Inserts = append(plan.Inserts, created)
			idx.add(&planEntry[T]{value: created, insert: true, slot: len(plan.Inserts) - 1})
			continue
		}

		if !e.strategy.ShouldWrite(ent.value.RemoteUpdatedAt(), record.RemoteUpdatedAt(), ent.value.SyncStatus(), record.SyncStatus()) {
			plan.Unchanged++
			continue
		}

		switch {
		case ent.slot == notPlanned:
			merged := ent.value.MergeFrom(record).Stamped(uuid.Nil, now)
			plan.Updates = append(plan.Updates, merged)
			ent.value = merged
			ent.slot = len(plan.Updates) - 1
		case ent.insert:
			// Fold into the pending insert; the merge keeps the newer
			// of the two provider timestamps
			merged := ent.value.MergeFrom(record)
			plan.Inserts[ent.slot] = merged
			ent.value = merged
		default:
			merged := ent.value.MergeFrom(record).Stamped(uuid.Nil, now)
			plan.Updates[ent.slot] = merged
			ent.value = merged
		}
		// Merging may have adopted a new linkage or natural key;
		// index the new aliases alongside the old ones
		idx.add(ent)
	}

	return plan
}

type naturalKey struct {
	account string
	key     string
}

// notPlanned marks an entry that exists locally but has no slot in the
// plan yet
const notPlanned = -1

// planEntry tracks one logical entity across the planning pass: its
// latest merged value and where in the plan it sits, if anywhere
type planEntry[T any] struct {
	value  T
	insert bool
	slot   int
}

// entityIndex resolves batch records to entities by natural key or
// linkage pair; all aliases of an entity share one entry
type entityIndex[T Record[T]] struct {
	byLinkage    map[model.Linkage]*planEntry[T]
	byNaturalKey map[naturalKey]*planEntry[T]
}

func newEntityIndex[T Record[T]]() *entityIndex[T] {
	return &entityIndex[T]{
		byLinkage:    make(map[model.Linkage]*planEntry[T]),
		byNaturalKey: make(map[naturalKey]*planEntry[T]),
	}
}

// add registers the entry's current linkage and natural key. Stale
// aliases from before a merge stay in place: they still name the same
// logical entity.
func (x *entityIndex[T]) add(ent *planEntry[T]) {
	link := ent.value.Linkage()
	if !link.Zero() {
		x.byLinkage[link] = ent
	}
	if key := ent.value.NaturalKey(); key != "" {
		x.byNaturalKey[naturalKey{account: link.AccountID, key: key}] = ent
	}
}

// lookup matches the stronger natural key first (within the same
// account), then falls back to the provider-id linkage pair
func (x *entityIndex[T]) lookup(record T) *planEntry[T] {
	link := record.Linkage()
	if key := record.NaturalKey(); key != "" {
		if ent, ok := x.byNaturalKey[naturalKey{account: link.AccountID, key: key}]; ok {
			return ent
		}
	}
	return x.byLinkage[link]
}

// dedupe collapses records sharing a linkage pair, merging later
// occurrences into the first so the freshest fields win
func dedupe[T Record[T]](records []T) []T {
	seen := make(map[model.Linkage]int, len(records))
	out := records[:0:0]
	for _, record := range records {
		link := record.Linkage()
		if link.Zero() {
			out = append(out, record)
			continue
		}
		if idx, ok := seen[link]; ok {
			out[idx] = out[idx].MergeFrom(record)
			continue
		}
		seen[link] = len(out)
		out = append(out, record)
	}
	return out
}
