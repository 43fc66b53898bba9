package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
)

// ipRateLimit limits each client IP to perMinute requests.
// Returns 429 Too Many Requests when the limit is exceeded.
func ipRateLimit(perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RateLimitHits.WithLabelValues("ip").Inc()
			logger.Warn("Rate limit exceeded",
				"ip", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeError(w, http.StatusTooManyRequests, domainerrors.CodeRateLimited, "Too many requests. Please try again later.")
		}),
	)
}

// writeError renders an APIError outside huma.
func writeError(w http.ResponseWriter, status int, code domainerrors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.MarshalWrite(w, &APIError{ //nolint:errcheck // client went away
		status:  status,
		Code:    string(code),
		Message: message,
	})
}
