package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/streamfold/internal/observability"
)

// Request correlation headers.
const (
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// RequestID stores a request id in the context and echoes it in the
// response. An incoming X-Request-ID is reused, otherwise a UUID is generated.
// A caller-supplied X-Correlation-ID is carried through unchanged.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := observability.ContextWithRequestID(r.Context(), requestID)
		if correlationID := r.Header.Get(CorrelationIDHeader); correlationID != "" {
			w.Header().Set(CorrelationIDHeader, correlationID)
			ctx = observability.ContextWithCorrelationID(ctx, correlationID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
