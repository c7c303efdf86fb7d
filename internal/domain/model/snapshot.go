package model

import (
	"time"

	"github.com/google/uuid"
)

// ChannelSnapshot is one normalized capture of a channel's feed.
// A snapshot is never mutated after it has been handed to callers;
// a refresh always produces a new value.
type ChannelSnapshot struct {
	Name      string
	ChannelID string
	Author    string
	AuthorURL string
	Published time.Time
	Videos    []VideoEntry

	// Revision and FetchedAt are stamped by the snapshot cache when the
	// snapshot is stored. They are zero for a freshly parsed snapshot.
	Revision  uuid.UUID
	FetchedAt time.Time
}

// VideoEntry is a single upload within a snapshot.
type VideoEntry struct {
	VideoID     string
	Title       string
	Published   time.Time
	Updated     time.Time
	URL         string
	Content     MediaContent
	Thumbnail   Thumbnail
	Description string
	Rating      StarRating
	Views       int64
}

// MediaContent holds the media:content attributes verbatim (url, type, width, height, ...).
type MediaContent map[string]string

// Thumbnail describes the media:thumbnail element.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// StarRating describes the media:starRating element.
type StarRating struct {
	Count   int64
	Average float64
	Min     int
	Max     int
}

// Age returns how old the snapshot is at now.
// A snapshot that was never stored reports zero.
func (s *ChannelSnapshot) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// IsStale reports whether the snapshot has reached the freshness interval.
func (s *ChannelSnapshot) IsStale(now time.Time, freshness time.Duration) bool {
	return s.Age(now) >= freshness
}

// LatestVideoID returns the ID of the first entry, which the feed orders most-recent-first.
func (s *ChannelSnapshot) LatestVideoID() string {
	if len(s.Videos) == 0 {
		return ""
	}
	return s.Videos[0].VideoID
}

// Stamped returns a copy of s carrying the given revision and fetch time.
// The video slice is shared; entries are treated as read-only.
func (s *ChannelSnapshot) Stamped(revision uuid.UUID, fetchedAt time.Time) *ChannelSnapshot {
	stamped := *s
	stamped.Revision = revision
	stamped.FetchedAt = fetchedAt
	return &stamped
}
