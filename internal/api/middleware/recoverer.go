package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a handler panic into a JSON 500 and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
