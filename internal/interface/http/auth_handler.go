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

// AuthHandler serves registration, login, and the current-user lookup.
type AuthHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.UserService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, validation.ToFieldErrors(err))
		return
	}

	u, token, err := h.Svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Fail(c, http.StatusBadRequest, "User already exists")
			return
		}
		h.serverError(c, err, "register failed")
		return
	}
	response.Auth(c, http.StatusCreated, token, toUserView(u))
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, validation.ToFieldErrors(err))
		return
	}

	u, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.serverError(c, err, "login failed")
		return
	}
	response.Auth(c, http.StatusOK, token, toUserView(u))
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, "User not found")
			return
		}
		h.serverError(c, err, "me lookup failed")
		return
	}
	response.Data(c, http.StatusOK, toUserView(u))
}

func (h *AuthHandler) serverError(c *gin.Context, err error, msg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
	}
	response.Fail(c, http.StatusInternalServerError, "Server error")
}
