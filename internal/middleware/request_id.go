package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
	// TraceIDHeader is echoed back unchanged when a caller sends one.
	TraceIDHeader = "X-Trace-ID"
)

// maxRequestIDLen caps client-supplied request IDs.
const maxRequestIDLen = 128

type requestIDsKey struct{}

type requestIDs struct {
	request string
	trace   string
}

// WithRequestID returns a copy of ctx carrying the given ids.
func WithRequestID(ctx context.Context, requestID, traceID string) context.Context {
	return context.WithValue(ctx, requestIDsKey{}, requestIDs{request: requestID, trace: traceID})
}

// RequestID injects a request ID into each request. A client-supplied
// X-Request-ID is kept when it is short printable ASCII; otherwise a new
// UUID is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := requestIDs{
			request: r.Header.Get(RequestIDHeader),
			trace:   r.Header.Get(TraceIDHeader),
		}
		if !validRequestID(ids.request) {
			ids.request = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, ids.request)
		if ids.trace != "" {
			w.Header().Set(TraceIDHeader, ids.trace)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDsKey{}, ids)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func idsFrom(ctx context.Context) requestIDs {
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string { return idsFrom(ctx).request }

// GetTraceID retrieves the trace ID from context, or "" if none was sent.
func GetTraceID(ctx context.Context) string { return idsFrom(ctx).trace }
