package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/ytfeed/internal/domain/repository"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/metrics"
)

const (
	// snapshotChannelPrefix is the prefix for snapshot event pub/sub channels.
	snapshotChannelPrefix = "ytfeed:snapshots:"
)

// RedisNotifier publishes snapshot events over Redis pub/sub.
// Nothing is stored in Redis; events reach only currently connected subscribers.
type RedisNotifier struct {
	client *redis.Client
}

// Compile-time verification that RedisNotifier implements repository.SnapshotNotifier.
var _ repository.SnapshotNotifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a new Redis-backed notifier.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{
		client: client,
	}
}

// PublishSnapshotEvent publishes the event on the channel's pub/sub topic.
func (n *RedisNotifier) PublishSnapshotEvent(ctx context.Context, event repository.SnapshotEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.BackendRedis, metrics.StatusError).Inc()
		return fmt.Errorf("serialize event: %w", err)
	}

	if err := n.client.Publish(ctx, ChannelName(event.ChannelID), data).Err(); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.BackendRedis, metrics.StatusError).Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(metrics.BackendRedis, metrics.StatusSuccess).Inc()
	return nil
}

// Subscribe returns a subscription to the snapshot events of channelIDs.
// Callers must Close the returned PubSub.
func (n *RedisNotifier) Subscribe(ctx context.Context, channelIDs ...string) *redis.PubSub {
	names := make([]string, len(channelIDs))
	for i, id := range channelIDs {
		names[i] = ChannelName(id)
	}
	return n.client.Subscribe(ctx, names...)
}

// ConsumeSnapshotEvents calls handler for each event published for channelIDs.
// Returns when ctx is cancelled or the subscription closes.
// Pub/sub has no redelivery: malformed payloads and handler errors are logged and dropped.
func (n *RedisNotifier) ConsumeSnapshotEvents(ctx context.Context, channelIDs []string, handler func(event repository.SnapshotEvent) error) error {
	sub := n.Subscribe(ctx, channelIDs...)
	defer sub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("subscription closed unexpectedly")
			}

			event, err := DecodeEvent(msg.Payload)
			if err != nil {
				slog.Warn("dropping malformed snapshot event",
					"channel", msg.Channel,
					"error", err,
				)
				continue
			}

			if err := handler(event); err != nil {
				slog.Error("failed to handle snapshot event",
					"channel_id", event.ChannelID,
					"revision", event.Revision,
					"error", err,
				)
			}
		}
	}
}

// DecodeEvent parses a pub/sub payload published by PublishSnapshotEvent.
func DecodeEvent(payload string) (repository.SnapshotEvent, error) {
	var event repository.SnapshotEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return repository.SnapshotEvent{}, fmt.Errorf("deserialize event: %w", err)
	}
	return event, nil
}

// Close closes the underlying Redis client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// ChannelName returns the pub/sub channel for a monitored channel's events.
func ChannelName(channelID string) string {
	return snapshotChannelPrefix + channelID
}
