package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
	sessionKey  ctxKey = "session"
)

// Identity is the authenticated caller. Subject is the user's email; Role is
// the optional role claim carried by the token.
type Identity struct {
	Subject string `json:"subject"`
	Role    string `json:"role,omitempty"`
}

func (i *Identity) Valid() bool {
	return i != nil && strings.TrimSpace(i.Subject) != ""
}

// Session is the raw bearer token that authenticated the current request.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity builds the caller identity from verified claims.
func (c *Claims) Identity() *Identity {
	subject := c.Email
	if subject == "" {
		subject = c.Subject
	}
	return &Identity{Subject: strings.TrimSpace(subject), Role: c.Role}
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	return session, ok
}

type MeResponse struct {
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}
