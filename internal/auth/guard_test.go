package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/internal/core/metrics"
	"github.com/frahmantamala/access-control/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = ginkgo.Describe("Guard", func() {
	var (
		users    *mockUsers
		resolver *mockResolver
		m        *metrics.Metrics
		guard    *Guard
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		users = &mockUsers{roles: map[string]string{
			"student@example.com": "student",
			"teacher@example.com": "teacher",
			"nobody@example.com":  "ghost",
		}}
		resolver = &mockResolver{perms: map[string][]string{
			"student": {"words:read", "progress:read"},
			"teacher": {"words:read", "words:write", "users:read"},
		}}
		m = metrics.New(prometheus.NewRegistry())
		guard = NewGuard(users, resolver, m, logger.Discard())
		ctx = context.Background()
	})

	ginkgo.Describe("Authorize", func() {
		ginkgo.It("allows anything when nothing is required", func() {
			gomega.Expect(guard.Authorize(ctx, nil, nil)).To(gomega.Succeed())
			gomega.Expect(users.lookups).To(gomega.BeZero())
			gomega.Expect(resolver.calls).To(gomega.BeZero())
		})

		ginkgo.It("denies a missing identity", func() {
			err := guard.Authorize(ctx, nil, []string{"words:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAuthenticated))
			gomega.Expect(users.lookups).To(gomega.BeZero())
		})

		ginkgo.It("denies an identity without subject", func() {
			err := guard.Authorize(ctx, &Identity{Subject: "  "}, []string{"words:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAuthenticated))
		})

		ginkgo.It("denies an unknown user", func() {
			err := guard.Authorize(ctx, &Identity{Subject: "stranger@example.com"}, []string{"words:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrGuardUserNotFound))
			gomega.Expect(resolver.calls).To(gomega.BeZero())
		})

		ginkgo.It("allows when any required permission is held", func() {
			err := guard.Authorize(ctx, &Identity{Subject: "student@example.com"}, []string{"words:write", "progress:read"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(testutil.ToFloat64(m.AuthorizationDecisions.WithLabelValues("allow", "granted"))).To(gomega.Equal(1.0))
		})

		ginkgo.It("asks the resolver for each requirement until one is held", func() {
			err := guard.Authorize(ctx, &Identity{Subject: "teacher@example.com"}, []string{"roles:write", "users:read", "words:write"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resolver.checked).To(gomega.Equal([]string{"roles:write", "users:read"}))
		})

		ginkgo.It("denies when none is held without naming the permission", func() {
			err := guard.Authorize(ctx, &Identity{Subject: "student@example.com"}, []string{"words:write"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInsufficientPermissions))
			gomega.Expect(err.Error()).NotTo(gomega.ContainSubstring("words:write"))
			gomega.Expect(testutil.ToFloat64(m.AuthorizationDecisions.WithLabelValues("deny", "insufficient_permissions"))).To(gomega.Equal(1.0))
		})

		ginkgo.It("uses the stored role rather than the token claim", func() {
			identity := &Identity{Subject: "student@example.com", Role: "teacher"}
			err := guard.Authorize(ctx, identity, []string{"words:write"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInsufficientPermissions))
		})

		ginkgo.It("denies a user whose role resolves to nothing", func() {
			err := guard.Authorize(ctx, &Identity{Subject: "nobody@example.com"}, []string{"words:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInsufficientPermissions))
		})

		ginkgo.It("reports user store failures as internal errors", func() {
			users.fail = true
			err := guard.Authorize(ctx, &Identity{Subject: "student@example.com"}, []string{"words:read"})
			gomega.Expect(internal.IsErrorType(err, internal.ErrorTypeInternal)).To(gomega.BeTrue())
		})

		ginkgo.It("reports resolver failures as internal errors", func() {
			resolver.err = errors.New("db down")
			err := guard.Authorize(ctx, &Identity{Subject: "student@example.com"}, []string{"words:read"})
			gomega.Expect(internal.IsErrorType(err, internal.ErrorTypeInternal)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("RequirePermissions", func() {
		var next http.Handler

		ginkgo.BeforeEach(func() {
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})
		})

		serve := func(identity *Identity, perms ...string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/words", nil)
			if identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), identity))
			}
			rec := httptest.NewRecorder()
			guard.RequirePermissions(perms...)(next).ServeHTTP(rec, req)
			return rec
		}

		ginkgo.It("passes authorized requests through", func() {
			rec := serve(&Identity{Subject: "teacher@example.com"}, "words:write")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusTeapot))
		})

		ginkgo.It("answers 403 for unauthorized requests", func() {
			rec := serve(&Identity{Subject: "student@example.com"}, "words:write")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeInsufficientPermissions)))
		})

		ginkgo.It("answers 403 without identity", func() {
			rec := serve(nil, "words:read")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeNotAuthenticated)))
		})

		ginkgo.It("answers 500 when lookups fail", func() {
			users.fail = true
			rec := serve(&Identity{Subject: "teacher@example.com"}, "words:read")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
		})
	})
})
