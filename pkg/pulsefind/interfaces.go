package pulsefind

import (
	"context"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/match"
)

// Service is the public surface of the identification engine.
type Service interface {
	Scan(ctx context.Context, req ScanRequest) (*ScanResult, error)
	Ingest(ctx context.Context, req IngestRequest) (string, error)
	ListEntries() ([]models.StoredSong, error)
	Close() error
}

// Storage is the persistent fingerprint store.
type Storage interface {
	UpsertSong(song models.StoredSong) (string, error)
	ListSongs() ([]models.StoredSong, error)
	Close() error
}

// AnalyticsSink receives per-scan analytics records. Implementations may
// fail; the scan pipeline treats writes as best-effort.
type AnalyticsSink interface {
	RecordScan(rec models.ScanAnalytics) error
}

// Logger matches the process logger; callers can inject their own.
type Logger = match.Logger

// ScanRequest carries one identification request.
type ScanRequest struct {
	Audio    []byte
	DeepScan bool
	Mode     models.MatchingMode
}

// ScanResult is the ranked outcome of one scan.
type ScanResult struct {
	ScanID          string                     `json:"scan_id"`
	Matches         []models.MatchCandidate    `json:"matches"`
	Metrics         models.ScanMetrics         `json:"metrics"`
	Characteristics models.BeatCharacteristics `json:"characteristics"`
	Thresholds      models.AdaptiveThresholds  `json:"thresholds"`
	FromCache       bool                       `json:"from_cache"`
	Message         string                     `json:"message,omitempty"`
	ElapsedMs       int64                      `json:"elapsed_ms"`
}

// IngestRequest registers one known song so the local fast path has content.
// Exactly one of FilePath or YouTubeURL must be set.
type IngestRequest struct {
	FilePath   string
	YouTubeURL string

	Title  string
	Artist string
	Album  string
	ISRC   string
}
