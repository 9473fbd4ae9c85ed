package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/response"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

type ProfileHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewProfileHandler(svc *application.UserService, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// Get GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, "User not found")
			return
		}
		h.serverError(c, err, "profile lookup failed")
		return
	}
	response.Data(c, http.StatusOK, toUserView(u))
}

// Update PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, validation.ToFieldErrors(err))
		return
	}

	u, err := h.Svc.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrEmailTaken):
			response.Fail(c, http.StatusBadRequest, "Email already in use")
		case errors.Is(err, application.ErrUserNotFound):
			response.Fail(c, http.StatusNotFound, "User not found")
		default:
			h.serverError(c, err, "profile update failed")
		}
		return
	}
	response.Data(c, http.StatusOK, toUserView(u))
}

func (h *ProfileHandler) serverError(c *gin.Context, err error, msg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
	}
	response.Fail(c, http.StatusInternalServerError, "Server error")
}
