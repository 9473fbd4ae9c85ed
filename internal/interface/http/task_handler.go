package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/response"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger *logrus.Logger
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
}

type updateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
}

// List GET /api/tasks?search=&status=&page=&limit=
func (h *TaskHandler) List(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		response.FailValidation(c, []validation.FieldError{{Field: "page", Message: "must be a valid number"}})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		response.FailValidation(c, []validation.FieldError{{Field: "limit", Message: "must be a valid number"}})
		return
	}

	res, err := h.Svc.List(c.Request.Context(), uid, application.ListQuery{
		Search: c.Query("search"),
		Status: entity.TaskStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidPagination):
			response.FailValidation(c, []validation.FieldError{{Field: "page", Message: "page and limit must be positive"}})
		case errors.Is(err, application.ErrInvalidStatus):
			response.FailValidation(c, []validation.FieldError{{Field: "status", Message: "must be one of: pending, in-progress, completed"}})
		default:
			h.serverError(c, err, "task list failed")
		}
		return
	}

	response.List(c, toTaskViews(res.Tasks), response.Pagination{
		Page:  res.Page,
		Limit: res.Limit,
		Total: res.Total,
		Pages: res.Pages,
	})
}

// Get GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	t, err := h.Svc.Get(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		h.taskError(c, err, "task get failed")
		return
	}
	response.Data(c, http.StatusOK, toTaskView(t))
}

// Create POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, validation.ToFieldErrors(err))
		return
	}

	t, err := h.Svc.Create(c.Request.Context(), uid, req.Title, req.Description, entity.TaskStatus(req.Status))
	if err != nil {
		h.taskError(c, err, "task create failed")
		return
	}
	response.Data(c, http.StatusCreated, toTaskView(t))
}

// Update PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, validation.ToFieldErrors(err))
		return
	}

	t, err := h.Svc.Update(c.Request.Context(), c.Param("id"), uid, application.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      entity.TaskStatus(req.Status),
	})
	if err != nil {
		h.taskError(c, err, "task update failed")
		return
	}
	response.Data(c, http.StatusOK, toTaskView(t))
}

// Delete DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), uid); err != nil {
		h.taskError(c, err, "task delete failed")
		return
	}
	response.Data(c, http.StatusOK, gin.H{})
}

// taskError maps service errors to the response taxonomy. Absence is 404;
// an existing task owned by someone else is 401 with a distinct message.
func (h *TaskHandler) taskError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, application.ErrTaskNotFound):
		response.Fail(c, http.StatusNotFound, "Task not found")
	case errors.Is(err, application.ErrNotOwner):
		response.Fail(c, http.StatusUnauthorized, "Not authorized")
	case errors.Is(err, application.ErrEmptyTitle):
		response.FailValidation(c, []validation.FieldError{{Field: "title", Message: "is required"}})
	case errors.Is(err, application.ErrEmptyDescription):
		response.FailValidation(c, []validation.FieldError{{Field: "description", Message: "is required"}})
	case errors.Is(err, application.ErrInvalidStatus):
		response.FailValidation(c, []validation.FieldError{{Field: "status", Message: "must be one of: pending, in-progress, completed"}})
	default:
		h.serverError(c, err, logMsg)
	}
}

func (h *TaskHandler) serverError(c *gin.Context, err error, msg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
	}
	response.Fail(c, http.StatusInternalServerError, "Server error")
}
