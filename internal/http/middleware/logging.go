package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmylchreest/streamfold/internal/observability"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for middleware compatibility.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// probePaths are logged at debug level when they succeed.
var probePaths = []string{"/health", "/livez", "/readyz"}

// RequestLogger attaches a request-scoped logger to the context and logs
// every completed request. Must run after RequestID.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			reqLogger := observability.WithRequestID(logger, observability.RequestIDFromContext(ctx))
			if correlationID := observability.CorrelationIDFromContext(ctx); correlationID != "" {
				reqLogger = observability.WithCorrelationID(reqLogger, correlationID)
			}
			ctx = observability.ContextWithLogger(ctx, reqLogger)

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case wrapped.status >= 500:
				level = slog.LevelError
			case wrapped.status >= 400:
				level = slog.LevelWarn
			case isProbe(r.URL.Path):
				level = slog.LevelDebug
			}

			// The path is logged without the Stremio config segment, which
			// embeds the user's addon URLs.
			reqLogger.Log(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", redactPath(r.URL.Path)),
				slog.Int("status", wrapped.status),
				slog.Int("size", wrapped.size),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

func isProbe(path string) bool {
	for _, p := range probePaths {
		if path == p {
			return true
		}
	}
	return false
}

// redactPath masks the config segment of /stremio/{config}/... paths.
func redactPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/stremio/")
	if !ok {
		return path
	}
	_, tail, found := strings.Cut(rest, "/")
	if !found {
		return "/stremio/{config}"
	}
	return "/stremio/{config}/" + tail
}
