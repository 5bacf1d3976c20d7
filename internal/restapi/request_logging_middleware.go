package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/logging"
)

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// NewRequestLoggingMiddleware emits one structured access log line per
// request and stores a request-scoped logger on the context for handlers
// downstream.
func NewRequestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			requestLogger := logger
			if reqID := RequestIDFromContext(r.Context()); reqID != "" {
				requestLogger = logger.With(slog.String("request_id", reqID))
			}
			ctx := logging.WithLogger(r.Context(), requestLogger)

			next.ServeHTTP(rec, r.WithContext(ctx))

			requestLogger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
