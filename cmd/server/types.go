package main

import (
	"fmt"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// MaxUploadBytes caps scan and ingest uploads.
const MaxUploadBytes = 50 << 20

// ScanResponse is the response for POST /api/scan.
type ScanResponse struct {
	ScanID          string                     `json:"scan_id"`
	Matches         []models.MatchCandidate    `json:"matches"`
	Count           int                        `json:"count"`
	Metrics         models.ScanMetrics         `json:"metrics"`
	Characteristics models.BeatCharacteristics `json:"characteristics"`
	Thresholds      models.AdaptiveThresholds  `json:"thresholds"`
	FromCache       bool                       `json:"from_cache"`
	Message         string                     `json:"message,omitempty"`
	ElapsedMs       int64                      `json:"elapsed_ms"`
}

// IngestYouTubeRequest is the request body for POST /api/songs/youtube.
type IngestYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	ISRC       string `json:"isrc,omitempty"`
}

func (r *IngestYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	return nil
}

// IngestResponse is the response for successful ingestion.
type IngestResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

// SongDTO represents a stored fingerprint entry in API responses.
type SongDTO struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Artist      string             `json:"artist"`
	Album       string             `json:"album,omitempty"`
	ISRC        string             `json:"isrc,omitempty"`
	PlatformIDs models.PlatformIDs `json:"platform_ids"`
	DurationMs  int                `json:"duration_ms"`
	Popularity  int                `json:"popularity,omitempty"`
}

// ListSongsResponse is the response for GET /api/songs.
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// MetricsResponse provides server health and store metrics.
type MetricsResponse struct {
	Status       string      `json:"status"`
	DatabasePath string      `json:"database_path"`
	SongCount    int         `json:"song_count"`
	SampleRate   int         `json:"sample_rate"`
	ScanStats    interface{} `json:"scan_stats,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
