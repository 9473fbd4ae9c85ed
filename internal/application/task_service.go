package application

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotOwner          = errors.New("not authorized")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrEmptyTitle        = errors.New("title is required")
	ErrEmptyDescription  = errors.New("description is required")
	ErrInvalidPagination = errors.New("page and limit must be positive")
)

// maxPageSize bounds a single listing window.
const maxPageSize = 100

// TaskService enforces ownership on every task operation. Reads compare the
// fetched task's owner against the caller; mutations are pushed down to the
// repository as conditional writes on (id, owner) so no check-then-write
// window exists.
type TaskService struct {
	Repo   repo.TaskRepository
	Logger *logrus.Logger
}

func NewTaskService(repo repo.TaskRepository, logger *logrus.Logger) *TaskService {
	return &TaskService{Repo: repo, Logger: logger}
}

func assertOwner(t *entity.Task, requesterID string) error {
	if t.UserID != requesterID {
		return ErrNotOwner
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, ownerID, title, description string, status entity.TaskStatus) (*entity.Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if status == "" {
		status = entity.StatusPending
	}
	if !entity.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	t := &entity.Task{
		Title:       title,
		Description: description,
		Status:      status,
		UserID:      ownerID,
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns a task after confirming the requester owns it. Absence wins
// over ownership: a missing task is ErrTaskNotFound even for a caller who
// never owned it.
func (s *TaskService) Get(ctx context.Context, id, requesterID string) (*entity.Task, error) {
	t, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if err := assertOwner(t, requesterID); err != nil {
		return nil, err
	}
	return t, nil
}

type UpdateTaskInput struct {
	Title       string
	Description string
	Status      entity.TaskStatus
}

// Update applies a conditional write keyed on (id, owner). A miss is
// disambiguated afterwards: the probe only picks the error, the mutation
// already didn't happen.
func (s *TaskService) Update(ctx context.Context, id, ownerID string, in UpdateTaskInput) (*entity.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if description == "" {
		return nil, ErrEmptyDescription
	}
	upd := repo.TaskUpdate{Title: &title, Description: &description}
	if in.Status != "" {
		if !entity.ValidStatus(in.Status) {
			return nil, ErrInvalidStatus
		}
		status := in.Status
		upd.Status = &status
	}

	t, err := s.Repo.UpdateOwned(ctx, id, ownerID, upd)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, s.missingOrForeign(ctx, id)
		}
		return nil, err
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id, ownerID string) error {
	err := s.Repo.DeleteOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return s.missingOrForeign(ctx, id)
		}
		return err
	}
	return nil
}

// missingOrForeign resolves a zero-row conditional write: the task either
// never existed (not found) or belongs to someone else (not owner).
func (s *TaskService) missingOrForeign(ctx context.Context, id string) error {
	exists, err := s.Repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return ErrNotOwner
	}
	return ErrTaskNotFound
}

type ListQuery struct {
	Search string
	Status entity.TaskStatus
	Page   int
	Limit  int
}

type ListResult struct {
	Tasks []entity.Task
	Page  int
	Limit int
	Total int64
	Pages int
}

// List returns the caller's tasks filtered by search/status, newest first,
// windowed by a 1-based page and limit. Total and page count are computed
// over the whole filtered set, not the window.
func (s *TaskService) List(ctx context.Context, ownerID string, q ListQuery) (*ListResult, error) {
	if q.Page <= 0 || q.Limit <= 0 {
		return nil, ErrInvalidPagination
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Status != "" && !entity.ValidStatus(q.Status) {
		return nil, ErrInvalidStatus
	}

	f := repo.TaskFilter{
		OwnerID: ownerID,
		Search:  strings.TrimSpace(q.Search),
		Status:  q.Status,
		Limit:   q.Limit,
		Offset:  (q.Page - 1) * q.Limit,
	}
	tasks, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &ListResult{
		Tasks: tasks,
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
		Pages: pages,
	}, nil
}
