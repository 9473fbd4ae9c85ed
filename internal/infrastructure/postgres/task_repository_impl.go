package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

const taskColumns = "id, title, description, status, user_id, created_at, updated_at"

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	t := &entity.Task{}
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, t.Title, t.Description, string(t.Status), t.UserID)

	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id)
	return scanTask(row)
}

func (r *TaskRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

// UpdateOwned applies the merged fields in one statement keyed on both id and
// owner. Zero rows means either the task is absent or it belongs to someone
// else; callers disambiguate.
func (r *TaskRepository) UpdateOwned(ctx context.Context, id, ownerID string, upd repository.TaskUpdate) (*entity.Task, error) {
	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title       = COALESCE($3, title),
		    description = COALESCE($4, description),
		    status      = COALESCE($5, status),
		    updated_at  = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns+`
	`, id, ownerID, upd.Title, upd.Description, status)
	return scanTask(row)
}

// DeleteOwned removes the task in one statement keyed on both id and owner.
func (r *TaskRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters so a search term only ever
// matches as a literal substring.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// buildTaskFilter composes the WHERE clause: the owner predicate is always
// present, search and status predicates only when set.
func buildTaskFilter(f repository.TaskFilter) (string, []interface{}) {
	where := []string{"user_id = $1"}
	args := []interface{}{f.OwnerID}

	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

// List returns the filtered page ordered newest first, plus the total match
// count computed independently of the window.
func (r *TaskRepository) List(ctx context.Context, f repository.TaskFilter) ([]entity.Task, int64, error) {
	where, args := buildTaskFilter(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT `+taskColumns+`
		FROM tasks
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]entity.Task, 0)
	for rows.Next() {
		var t entity.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
