package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/allstar-forge/forge/pkg/auth"
)

// WithAttribution resolves the caller's identity from the Authorization
// header and attaches it to the request context. Requests without a
// usable token proceed as the anonymous system actor; gating and
// approval decisions never depend on this identity, only audit records
// do.
func WithAttribution(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			principal, err := auth.FromBearer(header)
			if err == nil {
				r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
			} else {
				slog.Debug("bearer token ignored", "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithRequestLog logs one line per request.
func WithRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"actor", auth.ActorID(r.Context()),
		)
	})
}
