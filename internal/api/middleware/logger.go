package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Logger logs one line per request. The route pattern is read after the
// handler ran, so it reflects chi's final match.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			defer func() {
				attrs := []any{
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", wrapped.status),
					slog.Int("bytes", wrapped.bytes),
					slog.Duration("duration", time.Since(start)),
					slog.String("remote_addr", r.RemoteAddr),
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						attrs = append(attrs, slog.String("route", pattern))
					}
					if channelID := rctx.URLParam("channelID"); channelID != "" {
						attrs = append(attrs, slog.String("channel_id", channelID))
					}
				}
				if wrapped.Header().Get(StaleHeader) == "true" {
					attrs = append(attrs, slog.Bool("stale", true))
				}

				level := slog.LevelInfo
				if wrapped.status >= http.StatusInternalServerError {
					level = slog.LevelWarn
				}
				logger.Log(r.Context(), level, "request completed", attrs...)
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}
