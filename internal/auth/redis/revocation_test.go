package redis_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	authredis "github.com/frahmantamala/access-control/internal/auth/redis"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("RevocationStore", func() {
	var (
		mr    *miniredis.Miniredis
		store *authredis.RevocationStore
		ctx   context.Context
		now   time.Time
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		store = authredis.NewRevocationStore(client, "revoked:")
		ctx = context.Background()
		now = time.Now()
	})

	It("stores the digest under the prefix with the remaining lifetime", func() {
		Expect(store.Revoke(ctx, "digest-a", now, now.Add(time.Hour))).To(Succeed())

		Expect(mr.Exists("revoked:digest-a")).To(BeTrue())
		Expect(mr.TTL("revoked:digest-a")).To(Equal(time.Hour))
	})

	It("reports revoked digests until they expire", func() {
		Expect(store.Revoke(ctx, "digest-a", now, now.Add(time.Minute))).To(Succeed())

		revoked, err := store.IsRevoked(ctx, "digest-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())

		mr.FastForward(2 * time.Minute)
		revoked, err = store.IsRevoked(ctx, "digest-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())
	})

	It("skips tokens that already expired", func() {
		Expect(store.Revoke(ctx, "digest-a", now, now.Add(-time.Minute))).To(Succeed())
		Expect(mr.Exists("revoked:digest-a")).To(BeFalse())
	})

	It("has nothing to purge", func() {
		n, err := store.PurgeExpired(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("fails when redis is unreachable", func() {
		mr.Close()
		_, err := store.IsRevoked(ctx, "digest-a")
		Expect(err).To(HaveOccurred())
	})
})
