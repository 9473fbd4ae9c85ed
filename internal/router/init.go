package router

import (
	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/container"
	pginfra "github.com/oksasatya/go-task-manager/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	pool := container.GetPGPool()
	logger := container.GetLogger()
	jwt := container.GetJWT()

	userRepo := pginfra.NewUserRepository(pool)
	taskRepo := pginfra.NewTaskRepository(pool)

	userSvc := application.NewUserService(userRepo, jwt, logger)
	taskSvc := application.NewTaskService(taskRepo, logger)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(userSvc, logger), jwt))
	r.Add(modules.NewProfileModule(handlers.NewProfileHandler(userSvc, logger), jwt))
	r.Add(modules.NewTaskModule(handlers.NewTaskHandler(taskSvc, logger), jwt))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
