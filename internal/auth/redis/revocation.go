package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore keeps one key per revoked token digest. Keys expire with
// the token, so there is nothing to purge.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

func NewRevocationStore(client *redis.Client, prefix string) *RevocationStore {
	return &RevocationStore{client: client, prefix: prefix}
}

func (s *RevocationStore) key(digest string) string {
	return s.prefix + digest
}

func (s *RevocationStore) Revoke(ctx context.Context, digest string, revokedAt, expiresAt time.Time) error {
	ttl := expiresAt.Sub(revokedAt)
	if ttl <= 0 {
		return nil
	}
	value := strconv.FormatInt(revokedAt.Unix(), 10)
	if err := s.client.SetNX(ctx, s.key(digest), value, ttl).Err(); err != nil {
		return fmt.Errorf("store revoked token: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, digest string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(digest)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return n > 0, nil
}

func (s *RevocationStore) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
