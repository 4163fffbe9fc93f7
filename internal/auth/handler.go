package auth

import (
	"net/http"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/internal/transport"
	"github.com/frahmantamala/access-control/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Tokens     TokenValidator
	Revocation *RevocationService
	Users      UserLookup
	Resolver   PermissionResolver
}

func NewHandler(base *transport.BaseHandler, tokens TokenValidator, revocation *RevocationService, users UserLookup, resolver PermissionResolver) *Handler {
	return &Handler{
		BaseHandler: base,
		Tokens:      tokens,
		Revocation:  revocation,
		Users:       users,
		Resolver:    resolver,
	}
}

// Authenticate verifies the bearer token and attaches the caller identity.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.ErrMissingToken)
			return
		}

		claims, err := h.Tokens.ValidateToken(token)
		if err != nil {
			logger.From(r.Context()).Debug("token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		if err := h.Revocation.Check(r.Context(), token); err != nil {
			h.HandleServiceError(w, err)
			return
		}

		identity := claims.Identity()
		ctx := WithIdentity(r.Context(), identity)
		session := Session{Token: token}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
		ctx = WithSession(ctx, session)
		ctx = logger.With(ctx, "subject", identity.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}
	identity, _ := IdentityFromContext(r.Context())

	subject := ""
	if identity != nil {
		subject = identity.Subject
	}
	if err := h.Revocation.Revoke(r.Context(), session.Token, subject, session.ExpiresAt); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok || !identity.Valid() {
		h.WriteAppError(w, internal.ErrNotAuthenticated)
		return
	}

	role, found, err := h.Users.FindRoleByEmail(r.Context(), identity.Subject)
	if err != nil {
		h.HandleServiceError(w, internal.NewInternalError("Failed to load user", err))
		return
	}
	if !found {
		h.WriteAppError(w, internal.ErrGuardUserNotFound)
		return
	}

	perms, err := h.Resolver.GetPermissionsForRole(r.Context(), role)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}

	h.WriteJSON(w, http.StatusOK, MeResponse{
		Email:       identity.Subject,
		Role:        role,
		Permissions: perms,
	})
}
