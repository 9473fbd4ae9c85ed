package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/container"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// TaskModule registers the task CRUD and listing routes. Everything here is
// behind the auth gate; per-IP and per-user limits apply on top.
type TaskModule struct {
	Handler *handlers.TaskHandler
	JWT     *helpers.JWTManager
}

func NewTaskModule(h *handlers.TaskHandler, jwt *helpers.JWTManager) *TaskModule {
	return &TaskModule{Handler: h, JWT: jwt}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/tasks", m.Handler.List)
		auth.POST("/tasks", m.Handler.Create)
		auth.GET("/tasks/:id", m.Handler.Get)
		auth.PUT("/tasks/:id", m.Handler.Update)
		auth.DELETE("/tasks/:id", m.Handler.Delete)
	}
}
