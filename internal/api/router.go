package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/projecthub/portal/internal/api/handler"
	"github.com/projecthub/portal/internal/api/middleware"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
	"github.com/projecthub/portal/internal/core/service"

	_ "github.com/projecthub/portal/docs"
)

// Dependencies are the services the portal routes are built on.
type Dependencies struct {
	Sessions  *service.SessionStore
	Auth      ports.AuthService
	Stats     ports.StatsService
	Workspace ports.WorkspaceService
	Audit     ports.AuditRecorder
	Cookie    middleware.SessionConfig
	Log       zerolog.Logger
	// Registerer receives the HTTP metrics. Nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: deps.Registerer,
	}))
	e.Use(middleware.Session(deps.Cookie))
	e.Use(middleware.RequestLogger(deps.Log))

	guards := middleware.NewGuards(deps.Sessions, deps.Audit, deps.Log)
	requireAuth := guards.RequireAuth()
	admins := guards.RequireRole(domain.RoleAdmin)
	managers := guards.RequireRole(domain.RoleAdmin, domain.RoleManager)

	pages := handler.NewPageHandler(deps.Sessions, deps.Stats, deps.Log)
	auth := handler.NewAuthHandler(deps.Auth)
	workspace := handler.NewWorkspaceHandler(deps.Workspace, deps.Sessions)

	// --- Public ---
	e.GET("/", pages.Home)
	e.GET(domain.LoginRoute, pages.LoginView)
	e.POST(domain.LoginRoute, auth.Login)
	e.POST("/logout", auth.Logout)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Any logged-in user ---
	e.GET("/me", auth.Me, requireAuth)
	e.GET("/dashboard", pages.Dashboard, requireAuth)

	// --- Role dashboards ---
	e.GET(domain.AdminDashboardRoute, pages.RoleDashboard, guards.RequireRole(domain.RoleAdmin))
	e.GET(domain.ManagerDashboardRoute, pages.RoleDashboard, guards.RequireRole(domain.RoleManager))
	e.GET(domain.MemberDashboardRoute, pages.RoleDashboard, guards.RequireRole(domain.RoleMember))

	// --- Workspace ---
	e.GET("/teams", workspace.Teams, requireAuth)
	e.POST("/teams", workspace.CreateTeam, admins)
	e.GET("/projects", workspace.Projects, requireAuth)
	e.POST("/projects", workspace.CreateProject, managers)
	e.GET("/tasks", workspace.Tasks, requireAuth)
	e.GET("/tasks/:id", workspace.Task, requireAuth)
	e.PUT("/tasks/:id", workspace.UpdateTask, requireAuth)
	e.GET("/tasks/:id/comments", workspace.Comments, requireAuth)
	e.POST("/tasks/:id/comments", workspace.AddComment, requireAuth)

	return e
}
