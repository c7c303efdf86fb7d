package repository

import (
	"context"

	"github.com/hszk-dev/ytfeed/internal/domain/model"
)

// FeedFetcher retrieves a raw feed document.
// Implementations make exactly one attempt per call and return the full body.
type FeedFetcher interface {
	// Fetch issues a single GET for feedURL.
	// Returns an error satisfying errors.Is(err, ErrNetwork) on failure.
	Fetch(ctx context.Context, feedURL string) ([]byte, error)
}

// FeedParser turns a raw feed document into a ChannelSnapshot.
type FeedParser interface {
	// Parse returns an error satisfying errors.Is(err, ErrParse) if any
	// expected node is missing. No partial snapshot is ever returned.
	Parse(data []byte) (*model.ChannelSnapshot, error)
}
