package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
)

// DefaultRetryAfterSeconds is the value of the Retry-After header when
// a rate limit is exceeded.
const DefaultRetryAfterSeconds = 1

// Middleware creates HTTP middleware that enforces per-owner rate
// limits. getOwnerID extracts the owner from the request; requests
// without an owner pass through and are rejected by the handler's own
// identity check.
//
// Requests under /api/pipelines/ draw from the tighter pipeline
// budget; everything else uses the standard one.
func Middleware(limiter *Limiter, getOwnerID func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := getOwnerID(r)
			if ownerID == "" {
				next.ServeHTTP(w, r)
				return
			}

			class := ClassStandard
			if strings.HasPrefix(r.URL.Path, "/api/pipelines/") {
				class = ClassPipeline
			}

			rl := limiter.Get(ownerID, class)
			if !rl.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("Too Many Requests"))
				return
			}

			remaining := int(rl.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
