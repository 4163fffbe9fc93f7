package postgres_test

import (
	"context"
	"time"

	"github.com/frahmantamala/access-control/internal/auth/postgres"
	"github.com/frahmantamala/access-control/internal/testutil"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RevocationStore", func() {
	var (
		store *postgres.RevocationStore
		ctx   context.Context
		now   time.Time
	)

	BeforeEach(func() {
		gdb, err := testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := gdb.DB()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(sqlDB.Close)

		store = postgres.NewRevocationStore(sqlx.NewDb(sqlDB, "sqlite3"))
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	It("reports unknown digests as not revoked", func() {
		revoked, err := store.IsRevoked(ctx, "unknown")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())
	})

	It("remembers revoked digests", func() {
		Expect(store.Revoke(ctx, "digest-a", now, now.Add(time.Hour))).To(Succeed())

		revoked, err := store.IsRevoked(ctx, "digest-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())

		revoked, err = store.IsRevoked(ctx, "digest-b")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())
	})

	It("ignores a second revocation of the same digest", func() {
		Expect(store.Revoke(ctx, "digest-a", now, now.Add(time.Hour))).To(Succeed())
		Expect(store.Revoke(ctx, "digest-a", now.Add(time.Minute), now.Add(time.Hour))).To(Succeed())
	})

	It("purges expired rows only", func() {
		Expect(store.Revoke(ctx, "expired", now, now.Add(time.Hour))).To(Succeed())
		Expect(store.Revoke(ctx, "live", now, now.Add(5*time.Hour))).To(Succeed())

		n, err := store.PurgeExpired(ctx, now.Add(2*time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		revoked, err := store.IsRevoked(ctx, "expired")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())

		revoked, err = store.IsRevoked(ctx, "live")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())
	})
})
