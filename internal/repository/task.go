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

// TaskRepository persists tasks
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskColumns = `id, title, notes, status, due_at, list_id,
	provider_id, provider_account_id, provider_updated_at,
	created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t                     model.Task
		id                    pgtype.UUID
		notes, listID         pgtype.Text
		status                string
		dueAt                 pgtype.Timestamptz
		providerID, accountID pgtype.Text
		providerUpdatedAt     pgtype.Timestamptz
		createdAt, updatedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &t.Title, &notes, &status, &dueAt, &listID,
		&providerID, &accountID, &providerUpdatedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.Notes = notes.String
	t.Status = model.TaskStatus(status)
	t.ListID = listID.String
	if dueAt.Valid {
		due := dueAt.Time
		t.DueAt = &due
	}
	t.Link = linkage(providerID, accountID)
	if providerUpdatedAt.Valid {
		t.ProviderUpdatedAt = providerUpdatedAt.Time
	}
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

// ListAll returns every stored task
func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY due_at NULLS LAST, title`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// FindByLinkage retrieves the task mirroring a provider record
func (r *TaskRepository) FindByLinkage(ctx context.Context, link model.Linkage) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE provider_id = $1 AND provider_account_id = $2`
	return scanTask(r.pool.QueryRow(ctx, query, link.ProviderID, link.AccountID))
}

// Upsert inserts or replaces a task and returns the persisted row
func (r *TaskRepository) Upsert(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `
		INSERT INTO tasks (
			id, title, notes, status, due_at, list_id,
			provider_id, provider_account_id, provider_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			notes = EXCLUDED.notes,
			status = EXCLUDED.status,
			due_at = EXCLUDED.due_at,
			list_id = EXCLUDED.list_id,
			provider_id = EXCLUDED.provider_id,
			provider_account_id = EXCLUDED.provider_account_id,
			provider_updated_at = EXCLUDED.provider_updated_at,
			updated_at = now()
		RETURNING ` + taskColumns

	row := r.pool.QueryRow(ctx, query,
		t.ID, t.Title, textOrNull(t.Notes), string(t.Status),
		tsOrNull(t.DueAt), textOrNull(t.ListID),
		textOrNull(t.Link.ProviderID), textOrNull(t.Link.AccountID),
		tsValue(t.ProviderUpdatedAt),
	)
	saved, err := scanTask(row)
	if err != nil {
		return model.Task{}, fmt.Errorf("upsert task: %w", err)
	}
	return *saved, nil
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
