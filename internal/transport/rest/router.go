package rest

import (
	"net/http"
	"time"

	"github.com/frahmantamala/access-control/internal/auth"
	"github.com/frahmantamala/access-control/internal/core/metrics"
	"github.com/frahmantamala/access-control/internal/permission"
	"github.com/frahmantamala/access-control/internal/transport/middleware"
	"github.com/frahmantamala/access-control/internal/transport/swagger"
	"github.com/frahmantamala/access-control/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type RouterConfig struct {
	Production     bool
	AllowedOrigins string
	RateLimit      int
	RateWindow     time.Duration
	MetricsPath    string
}

// Handlers bundles everything the router mounts. Nil handlers leave their
// routes unregistered.
type Handlers struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	Guard       *auth.Guard
	Permissions *permission.Handler
	Users       *user.Handler
	OpenAPI     http.Handler
	Metrics     *metrics.Metrics
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers) {
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.SecureHeaders(cfg.Production))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(h.Metrics.Middleware)

	if h.OpenAPI != nil {
		router.Method(http.MethodGet, swagger.DocumentPath, h.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}
	if h.Metrics != nil && cfg.MetricsPath != "" {
		router.Method(http.MethodGet, cfg.MetricsPath, h.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Auth == nil || h.Guard == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateWindow))
			pr.Use(h.Auth.Authenticate)

			pr.Route("/auth", func(ar chi.Router) {
				ar.Get("/me", h.Auth.Me)
				ar.Post("/logout", h.Auth.Logout)
			})

			if h.Permissions != nil {
				registerPermissionRoutes(pr, h.Guard, h.Permissions)
			}
			if h.Users != nil {
				registerUserRoutes(pr, h.Guard, h.Users)
			}
		})
	})
}

func registerPermissionRoutes(r chi.Router, guard *auth.Guard, h *permission.Handler) {
	require := guard.RequirePermissions
	r.Route("/permissions", func(pr chi.Router) {
		pr.With(require(permission.PermissionsRead)).Get("/", h.ListPermissions)
		pr.With(require(permission.PermissionsWrite)).Post("/", h.CreatePermission)
		pr.With(require(permission.PermissionsRead)).Get("/{id}", h.GetPermission)
		pr.With(require(permission.PermissionsWrite)).Patch("/{id}", h.UpdatePermission)
		pr.With(require(permission.PermissionsWrite)).Delete("/{id}", h.DeletePermission)
	})

	r.Route("/roles", func(rr chi.Router) {
		rr.With(require(permission.RolesRead)).Get("/", h.ListRoles)
		rr.With(require(permission.RolesWrite)).Post("/", h.CreateRole)
		rr.With(require(permission.RolesRead)).Get("/{id}", h.GetRole)
		rr.With(require(permission.RolesWrite)).Patch("/{id}", h.UpdateRole)
		rr.With(require(permission.RolesWrite)).Delete("/{id}", h.DeleteRole)
		rr.With(require(permission.RolesRead)).Get("/{id}/permissions", h.GetRolePermissions)
		rr.With(require(permission.RolesWrite)).Patch("/{id}/permissions", h.SetRolePermissions)
	})
}

func registerUserRoutes(r chi.Router, guard *auth.Guard, h *user.Handler) {
	r.Route("/users", func(ur chi.Router) {
		ur.With(guard.RequirePermissions(permission.UsersRead)).Get("/", h.ListUsers)
		ur.With(guard.RequirePermissions(permission.UsersWrite)).Post("/", h.CreateUser)
		ur.With(guard.RequirePermissions(permission.UsersRead)).Get("/{id}", h.GetUser)
		ur.With(guard.RequirePermissions(permission.UsersWrite)).Patch("/{id}", h.UpdateUser)
		ur.With(guard.RequirePermissions(permission.UsersWrite)).Delete("/{id}", h.DeleteUser)
	})
}
