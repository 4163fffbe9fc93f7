package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/access-control/internal/core/datamodel/token"
	"github.com/jmoiron/sqlx"
)

// RevocationStore keeps revoked token digests in the revoked_tokens table.
type RevocationStore struct {
	db *sqlx.DB
}

func NewRevocationStore(db *sqlx.DB) *RevocationStore {
	return &RevocationStore{db: db}
}

func (s *RevocationStore) Revoke(ctx context.Context, digest string, revokedAt, expiresAt time.Time) error {
	const query = `INSERT INTO revoked_tokens (token_digest, revoked_at, expires_at)
		VALUES (:token_digest, :revoked_at, :expires_at)
		ON CONFLICT (token_digest) DO NOTHING`

	row := token.RevokedToken{
		TokenDigest: digest,
		RevokedAt:   revokedAt,
		ExpiresAt:   expiresAt,
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, digest string) (bool, error) {
	var count int
	query := s.db.Rebind(`SELECT COUNT(1) FROM revoked_tokens WHERE token_digest = ?`)
	if err := s.db.GetContext(ctx, &count, query, digest); err != nil {
		return false, fmt.Errorf("query revoked token: %w", err)
	}
	return count > 0, nil
}

func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM revoked_tokens WHERE expires_at < ?`), now)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return res.RowsAffected()
}

