package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// TraceIDHeader carries the trace ID in both directions.
const TraceIDHeader = "X-Trace-ID"

type startTimeKey struct{}

// Trace reuses the caller's X-Trace-ID or generates a UUID, echoes it in
// the response and stores it under chi's request ID key, where request
// scoped loggers find it. It also records the start time for Took.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceIDHeader, traceID)

		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, traceID)
		ctx = context.WithValue(ctx, startTimeKey{}, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceID returns the ID stored by Trace.
func TraceID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// Took returns the milliseconds elapsed since Trace saw the request, or 0.
func Took(ctx context.Context) int64 {
	if start, ok := ctx.Value(startTimeKey{}).(time.Time); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}
