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

// EmailRepository persists mail messages
type EmailRepository struct {
	pool *pgxpool.Pool
}

// NewEmailRepository creates a new email repository
func NewEmailRepository(pool *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{pool: pool}
}

const emailColumns = `id, subject, sender, recipients, snippet, folder, read, sent_at,
	provider_id, provider_account_id, provider_updated_at,
	created_at, updated_at`

func scanEmail(row pgx.Row) (*model.EmailMessage, error) {
	var (
		m                     model.EmailMessage
		id                    pgtype.UUID
		sender, snippet       pgtype.Text
		recipients            []string
		folder                string
		sentAt                pgtype.Timestamptz
		providerID, accountID pgtype.Text
		providerUpdatedAt     pgtype.Timestamptz
		createdAt, updatedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &m.Subject, &sender, &recipients, &snippet, &folder, &m.Read, &sentAt,
		&providerID, &accountID, &providerUpdatedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}

	m.ID = uuid.UUID(id.Bytes)
	m.Sender = sender.String
	m.Recipients = recipients
	m.Snippet = snippet.String
	m.Folder = model.Folder(folder)
	if sentAt.Valid {
		m.SentAt = sentAt.Time
	}
	m.Link = linkage(providerID, accountID)
	if providerUpdatedAt.Valid {
		m.ProviderUpdatedAt = providerUpdatedAt.Time
	}
	m.CreatedAt = createdAt.Time
	m.UpdatedAt = updatedAt.Time
	return &m, nil
}

// ListAll returns every stored message
func (r *EmailRepository) ListAll(ctx context.Context) ([]model.EmailMessage, error) {
	query := `SELECT ` + emailColumns + ` FROM email_messages ORDER BY sent_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.EmailMessage
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// FindByLinkage retrieves the message mirroring a provider record
func (r *EmailRepository) FindByLinkage(ctx context.Context, link model.Linkage) (*model.EmailMessage, error) {
	query := `SELECT ` + emailColumns + ` FROM email_messages
		WHERE provider_id = $1 AND provider_account_id = $2`
	return scanEmail(r.pool.QueryRow(ctx, query, link.ProviderID, link.AccountID))
}

// Upsert inserts or replaces a message and returns the persisted row
func (r *EmailRepository) Upsert(ctx context.Context, m model.EmailMessage) (model.EmailMessage, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `
		INSERT INTO email_messages (
			id, subject, sender, recipients, snippet, folder, read, sent_at,
			provider_id, provider_account_id, provider_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject,
			sender = EXCLUDED.sender,
			recipients = EXCLUDED.recipients,
			snippet = EXCLUDED.snippet,
			folder = EXCLUDED.folder,
			read = EXCLUDED.read,
			sent_at = EXCLUDED.sent_at,
			provider_id = EXCLUDED.provider_id,
			provider_account_id = EXCLUDED.provider_account_id,
			provider_updated_at = EXCLUDED.provider_updated_at,
			updated_at = now()
		RETURNING ` + emailColumns

	row := r.pool.QueryRow(ctx, query,
		m.ID, m.Subject, textOrNull(m.Sender), m.Recipients,
		textOrNull(m.Snippet), string(m.Folder), m.Read, tsValue(m.SentAt),
		textOrNull(m.Link.ProviderID), textOrNull(m.Link.AccountID),
		tsValue(m.ProviderUpdatedAt),
	)
	saved, err := scanEmail(row)
	if err != nil {
		return model.EmailMessage{}, fmt.Errorf("upsert email: %w", err)
	}
	return *saved, nil
}

// Delete removes a message
func (r *EmailRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM email_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
