package models

import "strings"

// MatchingMode selects which adaptive threshold is active for a scan.
type MatchingMode string

const (
	ModeStrict MatchingMode = "strict"
	ModeLoose  MatchingMode = "loose"
)

// Genre is the coarse production-style hint derived from beat characteristics.
type Genre string

const (
	GenreTrap    Genre = "trap"
	GenreDrill   Genre = "drill"
	GenreMelodic Genre = "melodic"
	GenreBoomBap Genre = "boom-bap"
	GenreUnknown Genre = "unknown"
)

// Priority orders planned audio segments; it is a ranking tie-break, not a filter.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// MatchQuality buckets a candidate by the provider's confidence score.
type MatchQuality string

const (
	QualityHigh   MatchQuality = "high"
	QualityMedium MatchQuality = "medium"
	QualityLow    MatchQuality = "low"
)

// SourceKind is the closed set of origins a candidate can be confirmed by.
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceRecognition
	SourcePlatform
)

func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceRecognition:
		return "recognition"
	case SourcePlatform:
		return "platform"
	default:
		return "unknown"
	}
}

// Source is one service that independently confirmed a candidate.
type Source struct {
	Kind SourceKind `json:"kind"`
	Name string     `json:"name"` // e.g. "Local", "AudioScout", "Spotify"
}

// AudioSample is a decoded PCM signal. It is produced once per scan request
// and treated as immutable for the duration of the pipeline.
type AudioSample struct {
	Samples    []float64
	SampleRate int
	ByteLen    int
}

// DurationMs returns the sample's play time in milliseconds.
func (a *AudioSample) DurationMs() int {
	if a.SampleRate <= 0 {
		return 0
	}
	return int(float64(len(a.Samples)) / float64(a.SampleRate) * 1000.0)
}

// FingerprintRecord is the deterministic signature of an AudioSample.
// Two byte-identical samples always yield byte-identical records.
type FingerprintRecord struct {
	Binary           string      `json:"binary"`            // hex-concatenated 32-bit band-rise codes
	QuickHash        string      `json:"quick_hash"`        // coarse RMS profile, used as an upsert key
	SpectralFeatures [][]float64 `json:"spectral_features"` // 13 log-energy coefficients per frame
	DurationMs       int         `json:"duration_ms"`
}

// BeatCharacteristics summarizes the musical profile of a scan's audio.
type BeatCharacteristics struct {
	TempoBPM           int     `json:"tempo_bpm"`           // 60-180
	Energy             float64 `json:"energy"`              // 0-1
	SpectralComplexity float64 `json:"spectral_complexity"` // 0-1
	Genre              Genre   `json:"genre"`
}

// DefaultCharacteristics is the fallback profile when analysis fails on
// malformed audio; the scan proceeds with it rather than aborting.
func DefaultCharacteristics() BeatCharacteristics {
	return BeatCharacteristics{
		TempoBPM:           120,
		Energy:             0.5,
		SpectralComplexity: 0.5,
		Genre:              GenreUnknown,
	}
}

// AdaptiveThresholds holds the per-scan confidence cutoffs.
// Invariant: Strict > Loose, Strict in [75,95], Loose in [30,60].
type AdaptiveThresholds struct {
	Strict      int    `json:"strict"`
	Loose       int    `json:"loose"`
	Explanation string `json:"explanation"`
}

// Active returns the cutoff selected by the requested matching mode.
func (t AdaptiveThresholds) Active(mode MatchingMode) int {
	if mode == ModeLoose {
		return t.Loose
	}
	return t.Strict
}

// AudioSegment is a planned scan window over the raw audio bytes. Segments
// are planning artifacts and are discarded once scanning completes.
type AudioSegment struct {
	Offset          int      `json:"offset"`
	LengthBytes     int      `json:"length_bytes"`
	Label           string   `json:"label"`
	EstimatedEnergy float64  `json:"estimated_energy"`
	Uniqueness      float64  `json:"uniqueness"`
	Priority        Priority `json:"priority"`
}

// PlatformIDs collects per-platform identifiers for one recording.
type PlatformIDs struct {
	Spotify    string `json:"spotify,omitempty"`
	AppleMusic string `json:"apple_music,omitempty"`
	YouTube    string `json:"youtube,omitempty"`
	Deezer     string `json:"deezer,omitempty"`
}

// Merge copies identifiers from other into ids where ids lacks them.
func (ids *PlatformIDs) Merge(other PlatformIDs) {
	if ids.Spotify == "" {
		ids.Spotify = other.Spotify
	}
	if ids.AppleMusic == "" {
		ids.AppleMusic = other.AppleMusic
	}
	if ids.YouTube == "" {
		ids.YouTube = other.YouTube
	}
	if ids.Deezer == "" {
		ids.Deezer = other.Deezer
	}
}

// SharesAny reports whether any identifier is present in both sets.
func (ids PlatformIDs) SharesAny(other PlatformIDs) bool {
	return (ids.Spotify != "" && ids.Spotify == other.Spotify) ||
		(ids.AppleMusic != "" && ids.AppleMusic == other.AppleMusic) ||
		(ids.YouTube != "" && ids.YouTube == other.YouTube) ||
		(ids.Deezer != "" && ids.Deezer == other.Deezer)
}

// MatchCandidate is one possible identification of the scanned beat. It is
// mutable while the aggregation stage folds platform batches, and immutable
// once returned to the caller.
type MatchCandidate struct {
	Title        string       `json:"title"`
	Artist       string       `json:"artist"`
	Album        string       `json:"album,omitempty"`
	Confidence   int          `json:"confidence"` // 0-100
	ISRC         string       `json:"isrc,omitempty"`
	PlatformIDs  PlatformIDs  `json:"platform_ids"`
	Sources      []Source     `json:"sources"`
	SegmentLabel string       `json:"segment_label,omitempty"`
	MatchQuality MatchQuality `json:"match_quality"`
	Cached       bool         `json:"cached"`
	Popularity   int          `json:"popularity,omitempty"` // 0-100
	ArtworkURL   string       `json:"artwork_url,omitempty"`
	PreviewURL   string       `json:"preview_url,omitempty"`
	URL          string       `json:"url,omitempty"`
}

// AddSource appends src unless a source with the same name is already present.
func (c *MatchCandidate) AddSource(src Source) {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, src.Name) {
			return
		}
	}
	c.Sources = append(c.Sources, src)
}

// HasSource reports whether the named service already confirmed this candidate.
func (c *MatchCandidate) HasSource(name string) bool {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// QualityForConfidence buckets a 0-100 confidence score.
func QualityForConfidence(confidence int) MatchQuality {
	switch {
	case confidence >= 85:
		return QualityHigh
	case confidence >= 60:
		return QualityMedium
	default:
		return QualityLow
	}
}

// StoredSong is one persistent fingerprint store entry: a FingerprintRecord
// plus song metadata and platform identifiers. Entries are upserted, keyed
// by FingerprintHash, and never deleted by the scan pipeline.
type StoredSong struct {
	ID               string      `json:"id"`
	FingerprintHash  string      `json:"fingerprint_hash"`
	Title            string      `json:"title"`
	Artist           string      `json:"artist"`
	Album            string      `json:"album,omitempty"`
	ISRC             string      `json:"isrc,omitempty"`
	PlatformIDs      PlatformIDs `json:"platform_ids"`
	Binary           string      `json:"binary"`
	QuickHash        string      `json:"quick_hash"`
	SpectralFeatures [][]float64 `json:"spectral_features,omitempty"`
	DurationMs       int         `json:"duration_ms"`
	Popularity       int         `json:"popularity,omitempty"`
}

// ScanMetrics is the aggregate observability record returned with each scan.
type ScanMetrics struct {
	SegmentsScanned     int   `json:"segments_scanned"`
	ResultsBeforeFilter int   `json:"results_before_filter"`
	ResultsAfterFilter  int   `json:"results_after_filter"`
	ConfidenceScores    []int `json:"confidence_scores"`
}

// ScanAnalytics is the per-scan record handed to the analytics sink.
// Sink failures must never fail the scan.
type ScanAnalytics struct {
	ScanID            string              `json:"scan_id"`
	Mode              MatchingMode        `json:"mode"`
	DeepScan          bool                `json:"deep_scan"`
	Characteristics   BeatCharacteristics `json:"characteristics"`
	Thresholds        AdaptiveThresholds  `json:"thresholds"`
	SegmentsPlanned   int                 `json:"segments_planned"`
	SegmentsSucceeded int                 `json:"segments_succeeded"`
	SegmentsFailed    int                 `json:"segments_failed"`
	Metrics           ScanMetrics         `json:"metrics"`
	SourceBreakdown   map[string]int      `json:"source_breakdown,omitempty"`
	Anomalies         []string            `json:"anomalies,omitempty"`
	FromCache         bool                `json:"from_cache"`
	ElapsedMs         int64               `json:"elapsed_ms"`
}
