package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/ytfeed/internal/domain/model"
	"github.com/hszk-dev/ytfeed/internal/domain/repository"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/metrics"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/youtube"
)

var (
	// ErrNoSnapshot is returned when a refresh failed and no snapshot has ever been stored.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrStaleSnapshot is matched by StaleError.
	ErrStaleSnapshot = errors.New("refresh failed, stale snapshot available")
)

// StaleError is returned when a refresh failed but an earlier snapshot exists.
// Snapshot holds that earlier snapshot, unchanged.
type StaleError struct {
	Snapshot *model.ChannelSnapshot
	Err      error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%v (snapshot fetched at %s): %v",
		ErrStaleSnapshot, e.Snapshot.FetchedAt.Format(time.RFC3339), e.Err)
}

func (e *StaleError) Unwrap() []error {
	return []error{ErrStaleSnapshot, e.Err}
}

// CacheState is the lifecycle state of a channel's snapshot cache.
type CacheState string

const (
	StateEmpty      CacheState = "EMPTY"
	StateFresh      CacheState = "FRESH"
	StateStale      CacheState = "STALE"
	StateRefreshing CacheState = "REFRESHING"
)

func (s CacheState) String() string {
	return string(s)
}

// SnapshotService serves the latest snapshot of one channel's feed.
type SnapshotService interface {
	// ChannelID returns the monitored channel.
	ChannelID() string

	// Access returns the cached snapshot, refreshing it first when it is
	// missing or has reached the freshness interval. Concurrent callers
	// share a single in-flight refresh.
	//
	// On refresh failure the error is *StaleError when an earlier snapshot
	// exists, and wraps ErrNoSnapshot otherwise. Either way it also wraps
	// the fetch or parse cause.
	//
	// ctx bounds only the caller's wait; a started refresh always runs to completion.
	Access(ctx context.Context) (*model.ChannelSnapshot, error)

	// Peek returns the stored snapshot without refreshing. Nil when empty.
	Peek() *model.ChannelSnapshot

	// State reports the current cache state.
	State() CacheState
}

// SnapshotServiceConfig holds configuration for SnapshotService.
type SnapshotServiceConfig struct {
	// ChannelID identifies the channel. It is not validated.
	ChannelID string
	// FeedURL is the fully interpolated feed URL for ChannelID.
	FeedURL string
	// Freshness is the maximum age a snapshot may reach before it is refreshed.
	Freshness time.Duration
}

// DefaultSnapshotServiceConfig returns the default configuration for channelID.
func DefaultSnapshotServiceConfig(channelID string) SnapshotServiceConfig {
	return SnapshotServiceConfig{
		ChannelID: channelID,
		FeedURL:   youtube.FeedURL(youtube.DefaultFeedURLTemplate, channelID),
		Freshness: time.Hour,
	}
}

// cacheState is the only mutable state of a snapshotService.
// It is replaced wholesale when a refresh succeeds.
type cacheState struct {
	snapshot *model.ChannelSnapshot
}

type snapshotService struct {
	fetcher  repository.FeedFetcher
	parser   repository.FeedParser
	notifier repository.SnapshotNotifier
	sfGroup  singleflight.Group

	channelID string
	feedURL   string
	freshness time.Duration
	now       func() time.Time

	mu         sync.RWMutex
	state      cacheState
	refreshing atomic.Bool
}

// NewSnapshotService creates a SnapshotService for a single channel.
// notifier may be nil.
func NewSnapshotService(
	fetcher repository.FeedFetcher,
	parser repository.FeedParser,
	notifier repository.SnapshotNotifier,
	cfg SnapshotServiceConfig,
) SnapshotService {
	return newSnapshotService(fetcher, parser, notifier, cfg)
}

func newSnapshotService(
	fetcher repository.FeedFetcher,
	parser repository.FeedParser,
	notifier repository.SnapshotNotifier,
	cfg SnapshotServiceConfig,
) *snapshotService {
	return &snapshotService{
		fetcher:   fetcher,
		parser:    parser,
		notifier:  notifier,
		channelID: cfg.ChannelID,
		feedURL:   cfg.FeedURL,
		freshness: cfg.Freshness,
		now:       time.Now,
	}
}

func (s *snapshotService) ChannelID() string {
	return s.channelID
}

func (s *snapshotService) Access(ctx context.Context) (*model.ChannelSnapshot, error) {
	if snapshot := s.freshSnapshot(); snapshot != nil {
		metrics.SnapshotAccessesTotal.WithLabelValues(s.channelID, metrics.AccessFresh).Inc()
		return snapshot, nil
	}

	// Coalesce concurrent refreshes. The flight runs detached from the
	// caller's cancellation so that waiters giving up never abort it.
	refreshCtx := context.WithoutCancel(ctx)
	ch := s.sfGroup.DoChan(s.channelID, func() (any, error) {
		return s.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}

		if res.Err != nil {
			if errors.Is(res.Err, ErrStaleSnapshot) {
				metrics.SnapshotAccessesTotal.WithLabelValues(s.channelID, metrics.AccessStale).Inc()
			} else {
				metrics.SnapshotAccessesTotal.WithLabelValues(s.channelID, metrics.AccessError).Inc()
			}
			return nil, res.Err
		}

		metrics.SnapshotAccessesTotal.WithLabelValues(s.channelID, metrics.AccessRefreshed).Inc()
		return res.Val.(*model.ChannelSnapshot), nil
	}
}

func (s *snapshotService) Peek() *model.ChannelSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot
}

func (s *snapshotService) State() CacheState {
	if s.refreshing.Load() {
		return StateRefreshing
	}

	snapshot := s.Peek()
	switch {
	case snapshot == nil:
		return StateEmpty
	case snapshot.IsStale(s.now(), s.freshness):
		return StateStale
	default:
		return StateFresh
	}
}

// freshSnapshot returns the stored snapshot if it is younger than the freshness interval.
func (s *snapshotService) freshSnapshot() *model.ChannelSnapshot {
	snapshot := s.Peek()
	if snapshot == nil || snapshot.IsStale(s.now(), s.freshness) {
		return nil
	}
	return snapshot
}

// refresh runs at most once at a time per service.
func (s *snapshotService) refresh(ctx context.Context) (*model.ChannelSnapshot, error) {
	// A flight that finished between the caller's staleness check and
	// this one starting has already stored a fresh snapshot.
	if snapshot := s.freshSnapshot(); snapshot != nil {
		return snapshot, nil
	}

	s.refreshing.Store(true)
	defer s.refreshing.Store(false)

	start := time.Now()
	parsed, err := s.fetchAndParse(ctx)
	metrics.FeedFetchDuration.WithLabelValues(s.channelID).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("snapshot refresh failed",
			"channel_id", s.channelID,
			"error", err,
		)
		return nil, s.refreshError(err)
	}

	snapshot := parsed.Stamped(uuid.New(), s.now())

	s.mu.Lock()
	s.state = cacheState{snapshot: snapshot}
	s.mu.Unlock()

	metrics.FeedFetchesTotal.WithLabelValues(s.channelID, metrics.FetchSuccess).Inc()
	slog.Info("snapshot refreshed",
		"channel_id", s.channelID,
		"revision", snapshot.Revision,
		"videos", len(snapshot.Videos),
		"duration", time.Since(start),
	)

	s.notify(ctx, snapshot)
	return snapshot, nil
}

func (s *snapshotService) fetchAndParse(ctx context.Context) (*model.ChannelSnapshot, error) {
	data, err := s.fetcher.Fetch(ctx, s.feedURL)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(s.channelID, metrics.FetchNetworkError).Inc()
		return nil, err
	}

	snapshot, err := s.parser.Parse(data)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(s.channelID, metrics.FetchParseError).Inc()
		return nil, err
	}

	return snapshot, nil
}

// refreshError wraps a failed refresh. The stored state is left untouched.
func (s *snapshotService) refreshError(err error) error {
	if prior := s.Peek(); prior != nil {
		return &StaleError{Snapshot: prior, Err: err}
	}
	return fmt.Errorf("%w: %w", ErrNoSnapshot, err)
}

// notify publishes a SnapshotEvent. Failures are logged, never returned.
func (s *snapshotService) notify(ctx context.Context, snapshot *model.ChannelSnapshot) {
	if s.notifier == nil {
		return
	}

	event := repository.SnapshotEvent{
		ChannelID:     s.channelID,
		Revision:      snapshot.Revision,
		FetchedAt:     snapshot.FetchedAt,
		VideoCount:    len(snapshot.Videos),
		LatestVideoID: snapshot.LatestVideoID(),
	}
	if err := s.notifier.PublishSnapshotEvent(ctx, event); err != nil {
		slog.Warn("failed to publish snapshot event",
			"channel_id", s.channelID,
			"revision", snapshot.Revision,
			"error", err,
		)
	}
}
