package repository

import (
	"context"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// TaskFilter restricts a task listing. OwnerID is mandatory; Search and
// Status only add predicates when non-empty.
type TaskFilter struct {
	OwnerID string
	Search  string
	Status  entity.TaskStatus
	Limit   int
	Offset  int
}

// TaskUpdate carries the fields a task update may change. Nil pointers leave
// the stored value untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *entity.TaskStatus
}

// TaskRepository defines task persistence operations.
//
// UpdateOwned and DeleteOwned must be applied as single conditional writes
// matching both id and owner, never as separate check-then-write steps, so
// that two concurrent requests cannot race between the ownership check and
// the mutation.
type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateOwned(ctx context.Context, id, ownerID string, upd TaskUpdate) (*entity.Task, error)
	DeleteOwned(ctx context.Context, id, ownerID string) error
	List(ctx context.Context, f TaskFilter) ([]entity.Task, int64, error)
}
