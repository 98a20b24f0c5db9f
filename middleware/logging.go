package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedactedPlaceholder replaces credential header values in log output
const RedactedPlaceholder = "[REDACTED]"

// sensitiveHeaders are logged with a placeholder value, never their real
// one. Keys are in canonical MIME header form.
var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"X-Api-Key":     true,
}

// RequestID assigns each inbound request a UUID, exposed on the response
// and through the request context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// RequestLogger logs every request with method, path, status, duration
// and the full inbound header set. Credential headers are redacted before
// anything reaches the sink. The wrapped writer preserves http.Flusher,
// so streaming handlers work through this middleware.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.Any("headers", RedactHeaders(r.Header)),
			)
		})
	}
}

// RedactHeaders copies a header set for logging, substituting the fixed
// placeholder for sensitive values
func RedactHeaders(h http.Header) map[string][]string {
	redacted := make(map[string][]string, len(h))
	for key, values := range h {
		if sensitiveHeaders[key] {
			redacted[key] = []string{RedactedPlaceholder}
			continue
		}
		redacted[key] = values
	}
	return redacted
}
