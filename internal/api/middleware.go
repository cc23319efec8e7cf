package api

import (
	"net/http"
	"time"

	"github.com/impetus-notes/note-service/internal/obs"
)

// RequestID attaches a request id and the caller's identity to the
// request context so downstream log lines correlate, and logs one line
// per request on completion.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = obs.NewRequestID()
		}

		ctx := obs.WithCorrelation(r.Context(), obs.Correlation{
			RequestID: requestID,
			OwnerID:   r.Header.Get(OwnerHeader),
		})
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))

		obs.From(ctx).Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
