package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"personal-organizer/backend/internal/crypto"
	"personal-organizer/backend/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed account Store. Token material is
// stored AES-GCM sealed; rows never hold plaintext tokens.
type Repository struct {
	pool      *pgxpool.Pool
	encryptor *crypto.TokenEncryptor
}

// Ensure Repository implements Store
var _ Store = (*Repository)(nil)

// NewRepository creates a new account repository
func NewRepository(pool *pgxpool.Pool, encryptor *crypto.TokenEncryptor) *Repository {
	return &Repository{pool: pool, encryptor: encryptor}
}

const accountColumns = `id, kind, display_email,
	sync_mail, sync_calendar, sync_contacts, sync_tasks,
	access_token_sealed, refresh_token_sealed, token_expiry, scope, connected,
	created_at, updated_at`

type accountRow struct {
	ID                 pgtype.UUID
	Kind               string
	DisplayEmail       string
	SyncMail           bool
	SyncCalendar       bool
	SyncContacts       bool
	SyncTasks          bool
	AccessTokenSealed  []byte
	RefreshTokenSealed []byte
	TokenExpiry        pgtype.Timestamptz
	Scope              pgtype.Text
	Connected          bool
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
}

func (r *Repository) scanAccount(row pgx.Row) (*IntegrationAccount, error) {
	var rec accountRow
	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.DisplayEmail,
		&rec.SyncMail, &rec.SyncCalendar, &rec.SyncContacts, &rec.SyncTasks,
		&rec.AccessTokenSealed, &rec.RefreshTokenSealed, &rec.TokenExpiry, &rec.Scope, &rec.Connected,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return r.convertRow(&rec)
}

func (r *Repository) convertRow(rec *accountRow) (*IntegrationAccount, error) {
	acct := &IntegrationAccount{
		Kind:         Kind(rec.Kind),
		DisplayEmail: rec.DisplayEmail,
		Capabilities: Capabilities{
			SyncMail:     rec.SyncMail,
			SyncCalendar: rec.SyncCalendar,
			SyncContacts: rec.SyncContacts,
			SyncTasks:    rec.SyncTasks,
		},
		Credential: CredentialState{Connected: rec.Connected},
	}

	if rec.ID.Valid {
		acct.ID = uuid.UUID(rec.ID.Bytes)
	}
	if rec.Scope.Valid {
		acct.Credential.Scope = rec.Scope.String
	}
	if rec.TokenExpiry.Valid {
		expiry := rec.TokenExpiry.Time
		acct.Credential.TokenExpiry = &expiry
	}
	if rec.CreatedAt.Valid {
		acct.CreatedAt = rec.CreatedAt.Time
	}
	if rec.UpdatedAt.Valid {
		acct.UpdatedAt = rec.UpdatedAt.Time
	}

	if len(rec.AccessTokenSealed) > 0 {
		token, err := r.encryptor.Open(rec.AccessTokenSealed)
		if err != nil {
			return nil, fmt.Errorf("open access token: %w", err)
		}
		acct.Credential.AccessToken = token
	}
	if len(rec.RefreshTokenSealed) > 0 {
		token, err := r.encryptor.Open(rec.RefreshTokenSealed)
		if err != nil {
			return nil, fmt.Errorf("open refresh token: %w", err)
		}
		acct.Credential.RefreshToken = token
	}

	return acct, nil
}

func (r *Repository) sealCredential(cred CredentialState) (access, refresh []byte, err error) {
	if cred.AccessToken != "" {
		access, err = r.encryptor.Seal(cred.AccessToken)
		if err != nil {
			return nil, nil, fmt.Errorf("seal access token: %w", err)
		}
	}
	if cred.RefreshToken != "" {
		refresh, err = r.encryptor.Seal(cred.RefreshToken)
		if err != nil {
			return nil, nil, fmt.Errorf("seal refresh token: %w", err)
		}
	}
	return access, refresh, nil
}

// Get retrieves an account by id
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*IntegrationAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM integration_accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// List returns all linked accounts ordered by display email
func (r *Repository) List(ctx context.Context) ([]IntegrationAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM integration_accounts ORDER BY display_email`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []IntegrationAccount
	for rows.Next() {
		var rec accountRow
		if err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.DisplayEmail,
			&rec.SyncMail, &rec.SyncCalendar, &rec.SyncContacts, &rec.SyncTasks,
			&rec.AccessTokenSealed, &rec.RefreshTokenSealed, &rec.TokenExpiry, &rec.Scope, &rec.Connected,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		acct, err := r.convertRow(&rec)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

// Save inserts or replaces an account (upsert on kind + display email)
func (r *Repository) Save(ctx context.Context, acct *IntegrationAccount) error {
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}

	access, refresh, err := r.sealCredential(acct.Credential)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO integration_accounts (
			id, kind, display_email,
			sync_mail, sync_calendar, sync_contacts, sync_tasks,
			access_token_sealed, refresh_token_sealed, token_expiry, scope, connected
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (kind, display_email) DO UPDATE SET
			sync_mail = EXCLUDED.sync_mail,
			sync_calendar = EXCLUDED.sync_calendar,
			sync_contacts = EXCLUDED.sync_contacts,
			sync_tasks = EXCLUDED.sync_tasks,
			access_token_sealed = EXCLUDED.access_token_sealed,
			refresh_token_sealed = EXCLUDED.refresh_token_sealed,
			token_expiry = EXCLUDED.token_expiry,
			scope = EXCLUDED.scope,
			connected = EXCLUDED.connected,
			updated_at = now()
		RETURNING id`

	var expiry pgtype.Timestamptz
	if acct.Credential.TokenExpiry != nil {
		expiry = pgtype.Timestamptz{Time: *acct.Credential.TokenExpiry, Valid: true}
	}

	var id pgtype.UUID
	err = r.pool.QueryRow(ctx, query,
		acct.ID, string(acct.Kind), acct.DisplayEmail,
		acct.Capabilities.SyncMail, acct.Capabilities.SyncCalendar,
		acct.Capabilities.SyncContacts, acct.Capabilities.SyncTasks,
		access, refresh, expiry,
		pgtype.Text{String: acct.Credential.Scope, Valid: acct.Credential.Scope != ""},
		acct.Credential.Connected,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	if id.Valid {
		acct.ID = uuid.UUID(id.Bytes)
	}
	return nil
}

// UpdateCredential replaces only the credential state for an account.
// This is the write path used after a token refresh.
func (r *Repository) UpdateCredential(ctx context.Context, id uuid.UUID, cred CredentialState) error {
	access, refresh, err := r.sealCredential(cred)
	if err != nil {
		return err
	}

	var expiry pgtype.Timestamptz
	if cred.TokenExpiry != nil {
		expiry = pgtype.Timestamptz{Time: *cred.TokenExpiry, Valid: true}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE integration_accounts SET
			access_token_sealed = $2,
			refresh_token_sealed = $3,
			token_expiry = $4,
			scope = $5,
			connected = $6,
			updated_at = now()
		WHERE id = $1`,
		id, access, refresh, expiry,
		pgtype.Text{String: cred.Scope, Valid: cred.Scope != ""},
		cred.Connected,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// SetCapabilities replaces the capability flags for an account
func (r *Repository) SetCapabilities(ctx context.Context, id uuid.UUID, caps Capabilities) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE integration_accounts SET
			sync_mail = $2, sync_calendar = $3, sync_contacts = $4, sync_tasks = $5,
			updated_at = now()
		WHERE id = $1`,
		id, caps.SyncMail, caps.SyncCalendar, caps.SyncContacts, caps.SyncTasks,
	)
	if err != nil {
		return fmt.Errorf("update capabilities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete unlinks an account
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM integration_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Touch bumps updated_at; used when only derived fields changed
func (r *Repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE integration_accounts SET updated_at = $2 WHERE id = $1`, id, at)
	return err
}
