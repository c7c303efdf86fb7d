package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/ytfeed/internal/domain/model"
	"github.com/hszk-dev/ytfeed/internal/domain/repository"
)

// mockFeedFetcher is a mock implementation of FeedFetcher for testing.
type mockFeedFetcher struct {
	fetchFn    func(ctx context.Context, feedURL string) ([]byte, error)
	fetchCount atomic.Int32
}

func (m *mockFeedFetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	m.fetchCount.Add(1)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, feedURL)
	}
	return []byte("<feed/>"), nil
}

// mockFeedParser is a mock implementation of FeedParser for testing.
type mockFeedParser struct {
	parseFn func(data []byte) (*model.ChannelSnapshot, error)
}

func (m *mockFeedParser) Parse(data []byte) (*model.ChannelSnapshot, error) {
	if m.parseFn != nil {
		return m.parseFn(data)
	}
	return &model.ChannelSnapshot{
		Name:      "Example",
		ChannelID: "UC123",
		Videos:    []model.VideoEntry{{VideoID: "v1"}, {VideoID: "v0"}},
	}, nil
}

// mockNotifier is a mock implementation of SnapshotNotifier for testing.
type mockNotifier struct {
	mu        sync.Mutex
	events    []repository.SnapshotEvent
	publishFn func(ctx context.Context, event repository.SnapshotEvent) error
}

func (m *mockNotifier) PublishSnapshotEvent(ctx context.Context, event repository.SnapshotEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, event)
	}
	return nil
}

func (m *mockNotifier) Close() error {
	return nil
}

func (m *mockNotifier) published() []repository.SnapshotEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.SnapshotEvent(nil), m.events...)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
