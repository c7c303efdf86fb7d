package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hszk-dev/ytfeed/internal/domain/repository"
)

// DefaultFeedURLTemplate is the public channel feed endpoint; %s is the channel ID.
const DefaultFeedURLTemplate = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// FeedURL interpolates channelID into template. The ID is not validated.
func FeedURL(template, channelID string) string {
	return fmt.Sprintf(template, channelID)
}

// FetchError describes a failed feed retrieval.
// StatusCode is zero when the transport itself failed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets callers match any FetchError with errors.Is(err, repository.ErrNetwork).
func (e *FetchError) Is(target error) bool {
	return target == repository.ErrNetwork
}

// HTTPFetcher implements repository.FeedFetcher over net/http.
// It imposes no timeout of its own; configure one on the supplied client.
type HTTPFetcher struct {
	client *http.Client
}

// Compile-time verification that HTTPFetcher implements repository.FeedFetcher.
var _ repository.FeedFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher. A nil client falls back to a zero http.Client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client}
}

// Fetch performs a single GET and reads the full body before returning.
func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{
			URL:        feedURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}
