package handler

import (
	"net/http"
	"time"

	"github.com/hszk-dev/ytfeed/internal/api/middleware"
	"github.com/hszk-dev/ytfeed/internal/domain/model"
	"github.com/hszk-dev/ytfeed/internal/usecase"
)

// Request/Response types

type ChannelSummary struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Name       string `json:"name,omitempty"`
	VideoCount int    `json:"video_count"`
	FetchedAt  string `json:"fetched_at,omitempty"`
	Revision   string `json:"revision,omitempty"`
}

type ListChannelsResponse struct {
	Channels []ChannelSummary `json:"channels"`
}

// SnapshotResponse keeps the field names of the public channel JSON format.
type SnapshotResponse struct {
	Name          string           `json:"name"`
	ID            string           `json:"id"`
	Author        string           `json:"author"`
	URL           string           `json:"url"`
	Published     string           `json:"published"`
	LatestUploads []UploadResponse `json:"latest_uploads"`
	FetchedAt     string           `json:"fetched_at"`
	Revision      string           `json:"revision"`
}

type UploadResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Published   string            `json:"published"`
	Updates     string            `json:"updates"`
	URL         string            `json:"url"`
	Content     map[string]string `json:"content"`
	Thumbnail   ThumbnailResponse `json:"thumbnail"`
	Description string            `json:"description"`
	Rating      RatingResponse    `json:"rating"`
	Views       int64             `json:"views"`
}

type ThumbnailResponse struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type RatingResponse struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// ChannelHandler serves monitored channels and their snapshots.
type ChannelHandler struct {
	services []usecase.SnapshotService
}

// NewChannelHandler creates a ChannelHandler. services are listed in the given order.
func NewChannelHandler(services []usecase.SnapshotService) *ChannelHandler {
	return &ChannelHandler{services: services}
}

// List handles GET /v1/channels. It never triggers a refresh.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := ListChannelsResponse{Channels: make([]ChannelSummary, 0, len(h.services))}
	for _, svc := range h.services {
		summary := ChannelSummary{
			ID:    svc.ChannelID(),
			State: svc.State().String(),
		}
		if snapshot := svc.Peek(); snapshot != nil {
			summary.Name = snapshot.Name
			summary.VideoCount = len(snapshot.Videos)
			summary.FetchedAt = formatTime(snapshot.FetchedAt)
			summary.Revision = snapshot.Revision.String()
		}
		resp.Channels = append(resp.Channels, summary)
	}

	JSON(w, http.StatusOK, resp)
}

// Videos handles GET /v1/channels/{channelID}/videos.
// It must be mounted behind middleware.ChannelSnapshot.
func (h *ChannelHandler) Videos(w http.ResponseWriter, r *http.Request) {
	snapshot := middleware.GetSnapshot(r.Context())
	if snapshot == nil {
		Error(w, http.StatusInternalServerError, "internal_error", "Snapshot missing from request")
		return
	}

	JSON(w, http.StatusOK, toSnapshotResponse(snapshot))
}

func toSnapshotResponse(s *model.ChannelSnapshot) SnapshotResponse {
	uploads := make([]UploadResponse, 0, len(s.Videos))
	for _, v := range s.Videos {
		uploads = append(uploads, UploadResponse{
			ID:        v.VideoID,
			Title:     v.Title,
			Published: formatTime(v.Published),
			Updates:   formatTime(v.Updated),
			URL:       v.URL,
			Content:   v.Content,
			Thumbnail: ThumbnailResponse{
				URL:    v.Thumbnail.URL,
				Width:  v.Thumbnail.Width,
				Height: v.Thumbnail.Height,
			},
			Description: v.Description,
			Rating: RatingResponse{
				Count:   v.Rating.Count,
				Average: v.Rating.Average,
				Min:     v.Rating.Min,
				Max:     v.Rating.Max,
			},
			Views: v.Views,
		})
	}

	return SnapshotResponse{
		Name:          s.Name,
		ID:            s.ChannelID,
		Author:        s.Author,
		URL:           s.AuthorURL,
		Published:     formatTime(s.Published),
		LatestUploads: uploads,
		FetchedAt:     formatTime(s.FetchedAt),
		Revision:      s.Revision.String(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
