package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/internal/core/metrics"
	"github.com/frahmantamala/access-control/internal/transport"
	"github.com/frahmantamala/access-control/pkg/logger"
)

// UserLookup finds the role of the user registered under email.
type UserLookup interface {
	FindRoleByEmail(ctx context.Context, email string) (role string, found bool, err error)
}

// PermissionResolver returns the effective permission names of a role and
// decides membership in them.
type PermissionResolver interface {
	GetPermissionsForRole(ctx context.Context, role string) ([]string, error)
	HasPermission(permissions []string, required string) bool
}

// Guard decides whether an identity holds at least one of a set of
// permissions. The role is always taken from the user record, never from the
// token.
type Guard struct {
	*transport.BaseHandler
	users    UserLookup
	resolver PermissionResolver
	metrics  *metrics.Metrics
}

func NewGuard(users UserLookup, resolver PermissionResolver, m *metrics.Metrics, lg *slog.Logger) *Guard {
	return &Guard{
		BaseHandler: transport.NewBaseHandler(lg),
		users:       users,
		resolver:    resolver,
		metrics:     m,
	}
}

func (g *Guard) Authorize(ctx context.Context, identity *Identity, required []string) error {
	if len(required) == 0 {
		g.metrics.ObserveDecision("allow", "no_requirement")
		return nil
	}

	if !identity.Valid() {
		g.deny(ctx, identity, required, "not_authenticated")
		return internal.ErrNotAuthenticated
	}

	role, found, err := g.users.FindRoleByEmail(ctx, identity.Subject)
	if err != nil {
		g.metrics.ObserveDecision("error", "user_lookup")
		return internal.NewInternalError("Failed to load user", err)
	}
	if !found {
		g.deny(ctx, identity, required, "user_not_found")
		return internal.ErrGuardUserNotFound
	}

	granted, err := g.resolver.GetPermissionsForRole(ctx, role)
	if err != nil {
		g.metrics.ObserveDecision("error", "resolve")
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("Failed to resolve permissions", err)
	}

	for _, p := range required {
		if g.resolver.HasPermission(granted, p) {
			g.metrics.ObserveDecision("allow", "granted")
			return nil
		}
	}

	g.deny(ctx, identity, required, "insufficient_permissions")
	return internal.ErrInsufficientPermissions
}

// RequirePermissions lets a request through when the caller holds any of perms.
func (g *Guard) RequirePermissions(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())
			if err := g.Authorize(r.Context(), identity, perms); err != nil {
				g.HandleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) deny(ctx context.Context, identity *Identity, required []string, reason string) {
	g.metrics.ObserveDecision("deny", reason)

	subject := ""
	if identity != nil {
		subject = identity.Subject
	}
	logger.From(ctx).Warn("access denied", "subject", subject, "required", required, "reason", reason)
}
