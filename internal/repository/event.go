package repository

import (
	"context"
	"errors"
	"fmt"

	"personal-organizer/backend/internal/db"
	"personal-organizer/backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository persists calendar events
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `id, title, description, location, status,
	starts_at, ends_at, all_day, calendar_id, attendees,
	provider_id, provider_account_id, provider_updated_at,
	created_at, updated_at`

func scanEvent(row pgx.Row) (*model.CalendarEvent, error) {
	var (
		e                     model.CalendarEvent
		id                    pgtype.UUID
		description, location pgtype.Text
		status                string
		startsAt, endsAt      pgtype.Timestamptz
		calendarID            pgtype.Text
		attendees             []string
		providerID, accountID pgtype.Text
		providerUpdatedAt     pgtype.Timestamptz
		createdAt, updatedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &e.Title, &description, &location, &status,
		&startsAt, &endsAt, &e.AllDay, &calendarID, &attendees,
		&providerID, &accountID, &providerUpdatedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.Description = description.String
	e.Location = location.String
	e.Status = model.EventStatus(status)
	if startsAt.Valid {
		e.StartsAt = startsAt.Time
	}
	if endsAt.Valid {
		e.EndsAt = endsAt.Time
	}
	e.CalendarID = calendarID.String
	e.Attendees = attendees
	e.Link = linkage(providerID, accountID)
	if providerUpdatedAt.Valid {
		e.ProviderUpdatedAt = providerUpdatedAt.Time
	}
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time
	return &e, nil
}

// ListAll returns every stored event
func (r *EventRepository) ListAll(ctx context.Context) ([]model.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events ORDER BY starts_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// FindByLinkage retrieves the event mirroring a provider record
func (r *EventRepository) FindByLinkage(ctx context.Context, link model.Linkage) (*model.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events
		WHERE provider_id = $1 AND provider_account_id = $2`
	return scanEvent(r.pool.QueryRow(ctx, query, link.ProviderID, link.AccountID))
}

// Upsert inserts or replaces an event and returns the persisted row
func (r *EventRepository) Upsert(ctx context.Context, e model.CalendarEvent) (model.CalendarEvent, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO calendar_events (
			id, title, description, location, status,
			starts_at, ends_at, all_day, calendar_id, attendees,
			provider_id, provider_account_id, provider_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			status = EXCLUDED.status,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			all_day = EXCLUDED.all_day,
			calendar_id = EXCLUDED.calendar_id,
			attendees = EXCLUDED.attendees,
			provider_id = EXCLUDED.provider_id,
			provider_account_id = EXCLUDED.provider_account_id,
			provider_updated_at = EXCLUDED.provider_updated_at,
			updated_at = now()
		RETURNING ` + eventColumns

	row := r.pool.QueryRow(ctx, query,
		e.ID, e.Title, textOrNull(e.Description), textOrNull(e.Location), string(e.Status),
		tsValue(e.StartsAt), tsValue(e.EndsAt), e.AllDay,
		textOrNull(e.CalendarID), e.Attendees,
		textOrNull(e.Link.ProviderID), textOrNull(e.Link.AccountID),
		tsValue(e.ProviderUpdatedAt),
	)
	saved, err := scanEvent(row)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("upsert event: %w", err)
	}
	return *saved, nil
}

// Delete removes an event
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
