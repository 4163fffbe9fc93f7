package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/pkg/logger"
)

// Recovery turns a panic into a 500 with the standard error envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.From(r.Context()).Error("panic recovered",
				"error", fmt.Sprint(rec),
				"method", r.Method,
				"url", r.URL.String(),
				"stack", string(debug.Stack()))

			status, body := internal.NewInternalError("Internal server error", nil).ToHTTPResponse()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}
