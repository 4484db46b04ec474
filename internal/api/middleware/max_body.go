package middleware

import (
	"net/http"

	"github.com/cloo-solutions/mailsense/internal/api"
)

// MaxBodyBytes rejects requests whose declared Content-Length exceeds limit
// and caps reads on the body for requests without one. A limit of zero or
// less disables the check.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
