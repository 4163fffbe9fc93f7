package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("RequestID", func() {
	It("mints a trace id when none is sent", func() {
		rec := httptest.NewRecorder()
		RequestID(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(rec.Header().Get(TraceIDHeader))
		Expect(err).NotTo(HaveOccurred())
	})

	It("propagates a valid incoming trace id", func() {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceIDHeader, id)
		rec := httptest.NewRecorder()
		RequestID(ok).ServeHTTP(rec, req)

		Expect(rec.Header().Get(TraceIDHeader)).To(Equal(id))
	})

	It("replaces a malformed trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceIDHeader, "<script>")
		rec := httptest.NewRecorder()
		RequestID(ok).ServeHTTP(rec, req)

		Expect(rec.Header().Get(TraceIDHeader)).NotTo(Equal("<script>"))
	})
})

var _ = Describe("Recovery", func() {
	It("answers 500 with the error envelope", func() {
		panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
		rec := httptest.NewRecorder()
		Recovery(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring(`"code":"INTERNAL_ERROR"`))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})
})

var _ = Describe("Logging", func() {
	It("passes the body through untouched", func() {
		var seen string
		echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(r.Body)
			seen = buf.String()
			w.WriteHeader(http.StatusCreated)
		})

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"words:read"}`))
		rec := httptest.NewRecorder()
		Logging(echo).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(seen).To(Equal(`{"name":"words:read"}`))
	})

	It("filters sensitive headers", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("Content-Type", "application/json")

		filtered := filterSensitiveHeaders(h)
		Expect(filtered["Authorization"]).To(Equal("[FILTERED]"))
		Expect(filtered["Content-Type"]).To(Equal("application/json"))
	})

	It("filters nested sensitive JSON fields", func() {
		out := filterSensitiveBody([]byte(`{"email":"a@example.com","nested":{"access_token":"abc"},"list":[{"password":"x"}]}`))
		Expect(out).To(ContainSubstring(`"email":"a@example.com"`))
		Expect(out).NotTo(ContainSubstring("abc"))
		Expect(out).NotTo(ContainSubstring(`"x"`))
	})
})

var _ = Describe("SecureHeaders", func() {
	It("sets hardening headers", func() {
		rec := httptest.NewRecorder()
		SecureHeaders(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get("X-Frame-Options")).To(Equal("DENY"))
		Expect(rec.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
	})
})

var _ = Describe("RateLimit", func() {
	It("rejects requests beyond the limit", func() {
		h := RateLimit(2, time.Minute)(ok)
		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))
	})

	It("is a no-op when disabled", func() {
		h := RateLimit(0, time.Minute)(ok)
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		}
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight for allowed origins", func() {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		CORS("https://app.example.com")(ok).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
	})

	It("ignores other origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		CORS("https://app.example.com")(ok).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})
