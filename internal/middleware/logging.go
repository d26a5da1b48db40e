package middleware

import (
	"net/http"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

// Logging writes one debug line per request. Only mounted outside production.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.WithRequest(GetRequestID(r.Context()), r.Method, r.URL.Path)
		logger.Debugw("→ request", "query", r.URL.RawQuery)

		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(lw, r)

		logger.Debugw("← response",
			"status_code", lw.statusCode,
			"status", http.StatusText(lw.statusCode),
			"duration", time.Since(start).String(),
		)
	})
}
