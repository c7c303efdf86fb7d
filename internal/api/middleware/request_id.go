package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	RequestIDKey ctxKey = iota
	snapshotKey
)

// RequestIDHeader echoes the request ID back to the client.
const RequestIDHeader = "X-Request-Id"

// RequestID copies chi's request ID under our own context key so that
// handlers and loggers do not depend on chi directly.
// It must run after chimw.RequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimw.GetReqID(r.Context())
		if requestID == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID)))
	})
}

// GetRequestID returns the request ID, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
