package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotEvent announces that a channel snapshot was refreshed.
type SnapshotEvent struct {
	ChannelID     string    `json:"channel_id"`
	Revision      uuid.UUID `json:"revision"`
	FetchedAt     time.Time `json:"fetched_at"`
	VideoCount    int       `json:"video_count"`
	LatestVideoID string    `json:"latest_video_id,omitempty"`
}

// SnapshotNotifier publishes SnapshotEvents to downstream consumers.
// Implementations should be provided by the infrastructure layer (e.g., Redis, RabbitMQ).
type SnapshotNotifier interface {
	PublishSnapshotEvent(ctx context.Context, event SnapshotEvent) error
	Close() error
}
