package api

import (
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/adminkit/admin-console/docs"
	"github.com/adminkit/admin-console/internal/api/handler"
	"github.com/adminkit/admin-console/internal/api/middleware"
	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/core/service"
	"github.com/adminkit/admin-console/internal/infrastructure/http/handlers"
	"github.com/adminkit/admin-console/internal/pkg/validation"
)

// Deps are the console services the router exposes.
type Deps struct {
	Session     *service.SessionManager
	Guard       *service.NavigationGuard
	Users       *service.UserListController
	Panel       *service.EditPanel
	Directory   ports.UserAPI
	Groups      *service.GroupAdmin
	Audit       *service.AuditLogList
	Profile     *service.ProfileService
	Preferences *service.PreferencesService
	Readiness   []handlers.Dependency
}

// httpMetrics is built once: echoprometheus registers its collectors on the
// default registry.
var httpMetrics = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("console")
})

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(httpMetrics())

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Session, d.Guard)
	userHandler := handler.NewUserHandler(d.Users)
	panelHandler := handler.NewEditPanelHandler(d.Panel, d.Directory)
	groupHandler := handler.NewGroupHandler(d.Groups)
	accountHandler := handler.NewAccountHandler(d.Audit, d.Profile, d.Preferences)
	d.Session.OnChange(groupHandler.Reset)

	guard := middleware.Auth(d.Guard)
	can := func(perms ...string) echo.MiddlewareFunc {
		return middleware.RBAC(d.Session, perms...)
	}

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.GET("/login", authHandler.LoginPage)
	e.GET("/me", authHandler.Me, guard)

	// --- Users ---
	users := e.Group("/users", guard, can(domain.PermUserRead))
	users.GET("", userHandler.List)
	users.POST("/refresh", userHandler.Refresh)
	users.PUT("/search", userHandler.Search)
	users.PUT("/filters", userHandler.Filters)
	users.POST("/sort", userHandler.Sort)
	users.PUT("/page-size", userHandler.PageSize)
	users.PUT("/page", userHandler.GoToPage)
	users.POST("/page/next", userHandler.NextPage)
	users.POST("/page/previous", userHandler.PreviousPage)
	users.POST("/selection/page", userHandler.ToggleAll)
	users.POST("/selection/:id", userHandler.ToggleSelection)
	users.DELETE("/selection", userHandler.ClearSelection)
	users.POST("/bulk/delete", userHandler.BulkDelete, can(domain.PermUserDelete))
	users.POST("/bulk/status", userHandler.BulkStatus, can(domain.PermUserUpdate))
	users.DELETE("/:id", userHandler.Delete, can(domain.PermUserDelete))
	users.POST("/:id/restore", userHandler.Restore, can(domain.PermUserUpdate))
	users.POST("/:id/purge", userHandler.Purge, can(domain.PermUserDelete))

	// --- Edit panel ---
	users.GET("/roles", panelHandler.Roles)
	users.GET("/panel", panelHandler.State)
	users.POST("/panel/create", panelHandler.OpenCreate, can(domain.PermUserCreate))
	users.POST("/:id/edit", panelHandler.OpenEdit, can(domain.PermUserUpdate))
	users.PUT("/panel", panelHandler.Update, can(domain.PermUserCreate, domain.PermUserUpdate))
	users.POST("/panel/roles/:roleId", panelHandler.ToggleRole, can(domain.PermUserCreate, domain.PermUserUpdate))
	users.POST("/panel/submit", panelHandler.Submit, can(domain.PermUserCreate, domain.PermUserUpdate))
	users.DELETE("/panel", panelHandler.Cancel)

	// --- Groups ---
	groups := e.Group("/groups", guard, can(domain.PermSystemManage))
	groups.GET("", groupHandler.List)
	groups.POST("", groupHandler.Create)
	groups.PUT("/:id", groupHandler.Update)
	groups.DELETE("/:id", groupHandler.Delete)
	groups.GET("/:id/members", groupHandler.Members)
	groups.POST("/:id/members", groupHandler.AddSelected)
	groups.POST("/:id/members/reload", groupHandler.Reload)
	groups.POST("/:id/members/selection/:userId", groupHandler.ToggleCandidate)
	groups.DELETE("/:id/members/selection", groupHandler.ClearCandidates)
	groups.DELETE("/:id/members/:userId", groupHandler.RemoveMember)

	// --- Audit, profile, preferences ---
	e.GET("/audit-logs", accountHandler.AuditLogs, guard, can(domain.PermSystemManage))
	e.GET("/profile", accountHandler.Profile, guard)
	e.PUT("/profile", accountHandler.UpdateProfile, guard)
	e.GET("/preferences", accountHandler.Preferences, guard)
	e.POST("/preferences/dark-mode", accountHandler.ToggleDarkMode, guard)
	e.POST("/preferences/sidebar", accountHandler.ToggleSidebar, guard)

	// --- Health probes, metrics, docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Readiness...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness) // store and admin API reachable
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
