package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/taskvault/backend/api/handler"
	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/middleware"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Task   *apiHandler.TaskHandler
	Admin  *apiHandler.AdminHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, guard *middleware.Guard) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", guard.Authenticate(handlers.Auth.Logout))

	// Protected routes
	r.GET("/api/v1/me", guard.Authenticate(handlers.Auth.Me))

	r.GET("/api/v1/tasks", guard.Authenticate(handlers.Task.List))
	r.POST("/api/v1/tasks", guard.Authenticate(handlers.Task.Create))
	r.GET("/api/v1/tasks/{id}", guard.Authenticate(handlers.Task.Get))
	r.PATCH("/api/v1/tasks/{id}", guard.Authenticate(handlers.Task.Update))
	r.DELETE("/api/v1/tasks/{id}", guard.Authenticate(handlers.Task.Delete))

	// Admin routes
	adminOnly := guard.RequireRoles(domain.RoleAdmin)
	r.GET("/api/v1/admin/stats", guard.Authenticate(adminOnly(handlers.Admin.Stats)))
	r.GET("/api/v1/admin/audit", guard.Authenticate(adminOnly(handlers.Admin.Audit)))
	r.PATCH("/api/v1/admin/users/{id}/active", guard.Authenticate(adminOnly(handlers.Admin.SetUserActive)))

	return r
}
