package usecase

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/ytfeed/internal/domain/repository"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/metrics"
)

// ErrInvalidEvent is returned for events that lack a channel ID or revision.
var ErrInvalidEvent = errors.New("invalid snapshot event")

// EventOutcome describes how UploadWatcher treated an event.
type EventOutcome string

const (
	OutcomeBaseline  EventOutcome = "BASELINE"
	OutcomeNewUpload EventOutcome = "NEW_UPLOAD"
	OutcomeUnchanged EventOutcome = "UNCHANGED"
	OutcomeDuplicate EventOutcome = "DUPLICATE"
	OutcomeOutdated  EventOutcome = "OUTDATED"
	OutcomeIgnored   EventOutcome = "IGNORED"
)

// UploadWatcher consumes snapshot events and detects when a channel's
// latest upload changes between successive snapshots.
type UploadWatcher interface {
	// HandleEvent records event and reports what it meant.
	// Only malformed events return an error.
	HandleEvent(event repository.SnapshotEvent) (EventOutcome, error)
}

type seenSnapshot struct {
	revision      uuid.UUID
	fetchedAt     time.Time
	latestVideoID string
}

type uploadWatcher struct {
	// monitored restricts handling to these channels; empty accepts all.
	monitored map[string]struct{}

	mu   sync.Mutex
	seen map[string]seenSnapshot
}

// NewUploadWatcher creates an UploadWatcher for channelIDs.
// With no channel IDs every channel is watched.
func NewUploadWatcher(channelIDs []string) UploadWatcher {
	monitored := make(map[string]struct{}, len(channelIDs))
	for _, id := range channelIDs {
		monitored[id] = struct{}{}
	}
	return &uploadWatcher{
		monitored: monitored,
		seen:      make(map[string]seenSnapshot),
	}
}

func (w *uploadWatcher) HandleEvent(event repository.SnapshotEvent) (EventOutcome, error) {
	if event.ChannelID == "" || event.Revision == uuid.Nil {
		return "", ErrInvalidEvent
	}

	if len(w.monitored) > 0 {
		if _, ok := w.monitored[event.ChannelID]; !ok {
			return OutcomeIgnored, nil
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := w.seen[event.ChannelID]
	switch {
	case !ok:
		w.record(event)
		slog.Info("baseline snapshot recorded",
			"channel_id", event.ChannelID,
			"revision", event.Revision,
			"latest_video_id", event.LatestVideoID,
		)
		return OutcomeBaseline, nil
	case prev.revision == event.Revision:
		return OutcomeDuplicate, nil
	case event.FetchedAt.Before(prev.fetchedAt):
		// Queues may redeliver out of order.
		return OutcomeOutdated, nil
	}

	w.record(event)
	if event.LatestVideoID == prev.latestVideoID {
		return OutcomeUnchanged, nil
	}

	metrics.UploadsDetectedTotal.WithLabelValues(event.ChannelID).Inc()
	slog.Info("new upload detected",
		"channel_id", event.ChannelID,
		"video_id", event.LatestVideoID,
		"previous_video_id", prev.latestVideoID,
		"revision", event.Revision,
	)
	return OutcomeNewUpload, nil
}

func (w *uploadWatcher) record(event repository.SnapshotEvent) {
	w.seen[event.ChannelID] = seenSnapshot{
		revision:      event.Revision,
		fetchedAt:     event.FetchedAt,
		latestVideoID: event.LatestVideoID,
	}
}
