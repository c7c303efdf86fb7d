package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/ytfeed/internal/domain/model"
	"github.com/hszk-dev/ytfeed/internal/domain/repository"
	"github.com/hszk-dev/ytfeed/internal/usecase"
)

// StaleHeader is set to "true" on responses served from a snapshot whose refresh failed.
const StaleHeader = "X-Snapshot-Stale"

// ChannelSnapshot resolves the {channelID} URL parameter to its SnapshotService,
// accesses the snapshot and attaches it to the request context.
//
// A stale snapshot returned alongside a refresh failure is still attached.
// The request fails only when no snapshot is available at all.
func ChannelSnapshot(services map[string]usecase.SnapshotService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			channelID := chi.URLParam(r, "channelID")
			svc, ok := services[channelID]
			if !ok {
				writeError(w, http.StatusNotFound, "channel_not_found", "Channel is not monitored")
				return
			}

			snapshot, err := svc.Access(r.Context())
			if err != nil {
				var staleErr *usecase.StaleError
				if !errors.As(err, &staleErr) {
					logger.Error("snapshot unavailable",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.String("channel_id", channelID),
						slog.String("error", err.Error()),
					)
					writeAccessError(w, err)
					return
				}

				logger.Warn("serving stale snapshot",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("channel_id", channelID),
					slog.Time("fetched_at", staleErr.Snapshot.FetchedAt),
					slog.String("error", staleErr.Err.Error()),
				)
				w.Header().Set(StaleHeader, "true")
				snapshot = staleErr.Snapshot
			}

			ctx := context.WithValue(r.Context(), snapshotKey, snapshot)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSnapshot retrieves the snapshot attached by ChannelSnapshot. Nil if absent.
func GetSnapshot(ctx context.Context) *model.ChannelSnapshot {
	if snapshot, ok := ctx.Value(snapshotKey).(*model.ChannelSnapshot); ok {
		return snapshot
	}
	return nil
}

func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrNoSnapshot) && errors.Is(err, repository.ErrParse):
		writeError(w, http.StatusServiceUnavailable, "invalid_feed", "Upstream feed could not be parsed")
	case errors.Is(err, usecase.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "feed_unavailable", "Upstream feed could not be fetched")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "Timed out waiting for feed refresh")
	case errors.Is(err, context.Canceled):
		// Client closed request.
		w.WriteHeader(499)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}
