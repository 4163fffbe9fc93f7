package auth

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/internal/core/events"
	"github.com/frahmantamala/access-control/internal/core/metrics"
	"golang.org/x/crypto/blake2b"
)

// RevocationStore persists revoked token digests until the token would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, digest string, revokedAt, expiresAt time.Time) error
	IsRevoked(ctx context.Context, digest string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenDigest is the hex BLAKE2b-256 of a raw token. Only digests are stored.
func TokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type RevocationService struct {
	store     RevocationStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewRevocationService(store RevocationStore, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *RevocationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevocationService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *RevocationService) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	revoked, err := s.store.IsRevoked(ctx, TokenDigest(token))
	if err != nil {
		return false, internal.NewInternalError("Failed to check token revocation", err)
	}
	return revoked, nil
}

// Check rejects revoked tokens. An empty token means the caller was not
// authenticated by bearer token and nothing is looked up.
func (s *RevocationService) Check(ctx context.Context, token string) error {
	if token == "" {
		s.metrics.ObserveRevocationCheck("skipped")
		return nil
	}

	revoked, err := s.IsRevoked(ctx, token)
	if err != nil {
		s.metrics.ObserveRevocationCheck("error")
		return err
	}
	if revoked {
		s.metrics.ObserveRevocationCheck("revoked")
		return internal.ErrTokenRevoked
	}

	s.metrics.ObserveRevocationCheck("valid")
	return nil
}

// Revoke invalidates token for the rest of its lifetime. Revoking the same
// token twice is not an error.
func (s *RevocationService) Revoke(ctx context.Context, token, subject string, expiresAt time.Time) error {
	if token == "" {
		return internal.ErrMissingToken
	}

	now := s.now().UTC()
	if err := s.store.Revoke(ctx, TokenDigest(token), now, expiresAt.UTC()); err != nil {
		return internal.NewInternalError("Failed to revoke token", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewTokenRevokedEvent(subject, expiresAt)); err != nil {
			s.logger.Error("failed to publish token revoked event", "subject", subject, "error", err)
		}
	}
	return nil
}

// PurgeExpired drops revocations whose tokens have expired.
func (s *RevocationService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, internal.NewInternalError("Failed to purge revoked tokens", err)
	}
	return n, nil
}
