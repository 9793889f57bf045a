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

// PersonRepository persists contacts
type PersonRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(pool *pgxpool.Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

const personColumns = `id, name, first_name, last_name, email, phone,
	company, job_title, photo_url, notes, birthday,
	provider_id, provider_account_id, provider_updated_at,
	created_at, updated_at`

func scanPerson(row pgx.Row) (*model.Person, error) {
	var (
		p                     model.Person
		id                    pgtype.UUID
		firstName, lastName   pgtype.Text
		email, phone          pgtype.Text
		company, jobTitle     pgtype.Text
		photoURL, notes       pgtype.Text
		birthday              pgtype.Timestamptz
		providerID, accountID pgtype.Text
		providerUpdatedAt     pgtype.Timestamptz
		createdAt, updatedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &p.Name, &firstName, &lastName, &email, &phone,
		&company, &jobTitle, &photoURL, &notes, &birthday,
		&providerID, &accountID, &providerUpdatedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.Email = email.String
	p.Phone = phone.String
	p.Company = company.String
	p.JobTitle = jobTitle.String
	p.PhotoURL = photoURL.String
	p.Notes = notes.String
	if birthday.Valid {
		bd := birthday.Time
		p.Birthday = &bd
	}
	p.Link = linkage(providerID, accountID)
	if providerUpdatedAt.Valid {
		p.ProviderUpdatedAt = providerUpdatedAt.Time
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return &p, nil
}

// ListAll returns every stored contact
func (r *PersonRepository) ListAll(ctx context.Context) ([]model.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

// FindByLinkage retrieves the contact mirroring a provider record
func (r *PersonRepository) FindByLinkage(ctx context.Context, link model.Linkage) (*model.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people
		WHERE provider_id = $1 AND provider_account_id = $2`
	return scanPerson(r.pool.QueryRow(ctx, query, link.ProviderID, link.AccountID))
}

// Upsert inserts or replaces a contact and returns the persisted row
func (r *PersonRepository) Upsert(ctx context.Context, p model.Person) (model.Person, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO people (
			id, name, first_name, last_name, email, phone,
			company, job_title, photo_url, notes, birthday,
			provider_id, provider_account_id, provider_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			company = EXCLUDED.company,
			job_title = EXCLUDED.job_title,
			photo_url = EXCLUDED.photo_url,
			notes = EXCLUDED.notes,
			birthday = EXCLUDED.birthday,
			provider_id = EXCLUDED.provider_id,
			provider_account_id = EXCLUDED.provider_account_id,
			provider_updated_at = EXCLUDED.provider_updated_at,
			updated_at = now()
		RETURNING ` + personColumns

	row := r.pool.QueryRow(ctx, query,
		p.ID, p.Name, textOrNull(p.FirstName), textOrNull(p.LastName),
		textOrNull(p.Email), textOrNull(p.Phone),
		textOrNull(p.Company), textOrNull(p.JobTitle),
		textOrNull(p.PhotoURL), textOrNull(p.Notes), tsOrNull(p.Birthday),
		textOrNull(p.Link.ProviderID), textOrNull(p.Link.AccountID),
		tsValue(p.ProviderUpdatedAt),
	)
	saved, err := scanPerson(row)
	if err != nil {
		return model.Person{}, fmt.Errorf("upsert person: %w", err)
	}
	return *saved, nil
}

// Delete removes a contact
func (r *PersonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
