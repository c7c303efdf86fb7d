package youtube

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hszk-dev/ytfeed/internal/domain/model"
	"github.com/hszk-dev/ytfeed/internal/domain/repository"
)

var errMissing = errors.New("missing node")

// ParseError describes where a feed document diverged from the expected schema.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets callers match any ParseError with errors.Is(err, repository.ErrParse).
func (e *ParseError) Is(target error) bool {
	return target == repository.ErrParse
}

// Element names are matched on their local part only, so documents that
// omit the yt:/media: namespace declarations decode the same way.

type atomFeed struct {
	Title     *string     `xml:"title"`
	ChannelID *string     `xml:"channelId"`
	Author    *atomAuthor `xml:"author"`
	Published *string     `xml:"published"`
	Entries   []atomEntry `xml:"entry"`
}

type atomAuthor struct {
	Name *string `xml:"name"`
	URI  *string `xml:"uri"`
}

type atomEntry struct {
	VideoID   *string     `xml:"videoId"`
	Title     *string     `xml:"title"`
	Published *string     `xml:"published"`
	Updated   *string     `xml:"updated"`
	Links     []atomLink  `xml:"link"`
	Group     *mediaGroup `xml:"group"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type mediaGroup struct {
	Content     *mediaContent   `xml:"content"`
	Thumbnail   *mediaThumbnail `xml:"thumbnail"`
	Description *string         `xml:"description"`
	Community   *mediaCommunity `xml:"community"`
}

type mediaContent struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type mediaThumbnail struct {
	URL    string `xml:"url,attr"`
	Width  string `xml:"width,attr"`
	Height string `xml:"height,attr"`
}

type mediaCommunity struct {
	StarRating *mediaStarRating `xml:"starRating"`
	Statistics *mediaStatistics `xml:"statistics"`
}

type mediaStarRating struct {
	Count   string `xml:"count,attr"`
	Average string `xml:"average,attr"`
	Min     string `xml:"min,attr"`
	Max     string `xml:"max,attr"`
}

type mediaStatistics struct {
	Views string `xml:"views,attr"`
}

// AtomParser implements repository.FeedParser for the channel Atom feed.
type AtomParser struct{}

// Compile-time verification that AtomParser implements repository.FeedParser.
var _ repository.FeedParser = (*AtomParser)(nil)

// NewAtomParser creates a new AtomParser.
func NewAtomParser() *AtomParser {
	return &AtomParser{}
}

// Parse decodes data and maps it onto a ChannelSnapshot.
// Entry order is preserved exactly as it appears in the document.
func (p *AtomParser) Parse(data []byte) (*model.ChannelSnapshot, error) {
	if t := gofeed.DetectFeedType(bytes.NewReader(data)); t != gofeed.FeedTypeAtom {
		return nil, &ParseError{Path: "feed", Err: fmt.Errorf("not an atom feed (detected type %d)", t)}
	}

	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, &ParseError{Path: "feed", Err: err}
	}

	return mapFeed(&feed)
}

func mapFeed(feed *atomFeed) (*model.ChannelSnapshot, error) {
	if feed.Title == nil {
		return nil, missing("feed/title")
	}
	if feed.ChannelID == nil {
		return nil, missing("feed/yt:channelId")
	}
	if feed.Author == nil {
		return nil, missing("feed/author")
	}
	if feed.Author.Name == nil {
		return nil, missing("feed/author/name")
	}
	if feed.Author.URI == nil {
		return nil, missing("feed/author/uri")
	}
	published, err := parseTime("feed/published", feed.Published)
	if err != nil {
		return nil, err
	}

	snapshot := &model.ChannelSnapshot{
		Name:      *feed.Title,
		ChannelID: *feed.ChannelID,
		Author:    *feed.Author.Name,
		AuthorURL: *feed.Author.URI,
		Published: published,
		Videos:    make([]model.VideoEntry, 0, len(feed.Entries)),
	}

	for i := range feed.Entries {
		entry, err := mapEntry(fmt.Sprintf("feed/entry[%d]", i), &feed.Entries[i])
		if err != nil {
			return nil, err
		}
		snapshot.Videos = append(snapshot.Videos, entry)
	}

	return snapshot, nil
}

func mapEntry(path string, e *atomEntry) (model.VideoEntry, error) {
	var v model.VideoEntry

	if e.VideoID == nil {
		return v, missing(path + "/yt:videoId")
	}
	if e.Title == nil {
		return v, missing(path + "/title")
	}
	published, err := parseTime(path+"/published", e.Published)
	if err != nil {
		return v, err
	}
	updated, err := parseTime(path+"/updated", e.Updated)
	if err != nil {
		return v, err
	}
	href, ok := alternateLink(e.Links)
	if !ok {
		return v, missing(path + "/link")
	}

	group := path + "/media:group"
	g := e.Group
	switch {
	case g == nil:
		return v, missing(group)
	case g.Content == nil:
		return v, missing(group + "/media:content")
	case g.Thumbnail == nil:
		return v, missing(group + "/media:thumbnail")
	case g.Description == nil:
		return v, missing(group + "/media:description")
	case g.Community == nil:
		return v, missing(group + "/media:community")
	case g.Community.StarRating == nil:
		return v, missing(group + "/media:community/media:starRating")
	case g.Community.Statistics == nil:
		return v, missing(group + "/media:community/media:statistics")
	}

	thumbnail, err := mapThumbnail(group+"/media:thumbnail", g.Thumbnail)
	if err != nil {
		return v, err
	}
	rating, err := mapStarRating(group+"/media:community/media:starRating", g.Community.StarRating)
	if err != nil {
		return v, err
	}
	views, err := parseInt64(group+"/media:community/media:statistics@views", g.Community.Statistics.Views)
	if err != nil {
		return v, err
	}

	content := make(model.MediaContent, len(g.Content.Attrs))
	for _, attr := range g.Content.Attrs {
		content[attr.Name.Local] = attr.Value
	}

	return model.VideoEntry{
		VideoID:     *e.VideoID,
		Title:       *e.Title,
		Published:   published,
		Updated:     updated,
		URL:         href,
		Content:     content,
		Thumbnail:   thumbnail,
		Description: *g.Description,
		Rating:      rating,
		Views:       views,
	}, nil
}

func mapThumbnail(path string, t *mediaThumbnail) (model.Thumbnail, error) {
	width, err := parseInt(path+"@width", t.Width)
	if err != nil {
		return model.Thumbnail{}, err
	}
	height, err := parseInt(path+"@height", t.Height)
	if err != nil {
		return model.Thumbnail{}, err
	}
	return model.Thumbnail{URL: t.URL, Width: width, Height: height}, nil
}

func mapStarRating(path string, r *mediaStarRating) (model.StarRating, error) {
	count, err := parseInt64(path+"@count", r.Count)
	if err != nil {
		return model.StarRating{}, err
	}
	average, err := strconv.ParseFloat(r.Average, 64)
	if err != nil {
		return model.StarRating{}, &ParseError{Path: path + "@average", Err: err}
	}
	lo, err := parseInt(path+"@min", r.Min)
	if err != nil {
		return model.StarRating{}, err
	}
	hi, err := parseInt(path+"@max", r.Max)
	if err != nil {
		return model.StarRating{}, err
	}
	return model.StarRating{Count: count, Average: average, Min: lo, Max: hi}, nil
}

// alternateLink prefers rel="alternate" and falls back to the first link.
func alternateLink(links []atomLink) (string, bool) {
	for _, l := range links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href, true
		}
	}
	if len(links) > 0 && links[0].Href != "" {
		return links[0].Href, true
	}
	return "", false
}

func parseTime(path string, s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, missing(path)
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}, &ParseError{Path: path, Err: err}
	}
	return t, nil
}

func parseInt(path, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Path: path, Err: err}
	}
	return n, nil
}

func parseInt64(path, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Path: path, Err: err}
	}
	return n, nil
}

func missing(path string) error {
	return &ParseError{Path: path, Err: errMissing}
}
