package handlers

import (
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// userView is the public shape of a user record. The password hash never
// leaves the domain layer.
type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserView(u *entity.User) userView {
	return userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type taskView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	User        string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskView(t *entity.Task) taskView {
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		User:        t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskViews(tasks []entity.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskView(&tasks[i]))
	}
	return out
}
