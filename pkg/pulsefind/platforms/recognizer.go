package platforms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// ErrNotConfigured is returned by constructors when the required credentials
// are absent from the environment. Callers treat the provider as disabled.
var ErrNotConfigured = errors.New("provider not configured")

const (
	audioScoutName    = "AudioScout"
	defaultScoutURL   = "https://api.audioscout.example/v1/recognize"
	defaultHTTPExpiry = 20 * time.Second
)

// AudioScout is the primary audio-recognition provider. Each call submits
// one audio segment and parses the provider's match list.
type AudioScout struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAudioScout reads AUDIOSCOUT_API_KEY and AUDIOSCOUT_URL from the
// environment. Returns ErrNotConfigured when the key is missing so the scan
// pipeline can run on the local store alone.
func NewAudioScout(httpClient *http.Client) (*AudioScout, error) {
	apiKey := os.Getenv("AUDIOSCOUT_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("audioscout: %w", ErrNotConfigured)
	}
	baseURL := os.Getenv("AUDIOSCOUT_URL")
	if baseURL == "" {
		baseURL = defaultScoutURL
	}
	return NewAudioScoutWithURL(httpClient, baseURL, apiKey), nil
}

func NewAudioScoutWithURL(httpClient *http.Client, baseURL, apiKey string) *AudioScout {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPExpiry}
	}
	return &AudioScout{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (s *AudioScout) Name() string { return audioScoutName }

type scoutRequest struct {
	Audio   string `json:"audio"` // base64 raw bytes
	Label   string `json:"label,omitempty"`
	ByteLen int    `json:"byte_len"`
}

type scoutMatch struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Confidence float64 `json:"confidence"` // 0-1 on the wire
	ISRC       string  `json:"isrc"`
	SpotifyID  string  `json:"spotify_id"`
	AppleID    string  `json:"apple_music_id"`
	YouTubeID  string  `json:"youtube_id"`
	DeezerID   string  `json:"deezer_id"`
	ArtworkURL string  `json:"artwork_url"`
	PreviewURL string  `json:"preview_url"`
}

type scoutResponse struct {
	Matches []scoutMatch `json:"matches"`
}

// Recognize submits one segment's bytes and maps the provider matches to
// candidates. An empty match list is a valid, empty result, not an error.
func (s *AudioScout) Recognize(ctx context.Context, segment models.AudioSegment, audio []byte) ([]models.MatchCandidate, error) {
	if len(audio) == 0 {
		return nil, errors.New("audioscout: empty segment audio")
	}

	payload := scoutRequest{
		Audio:   base64.StdEncoding.EncodeToString(audio),
		Label:   segment.Label,
		ByteLen: len(audio),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("audioscout: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("audioscout: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := doWithRetry(s.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("audioscout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audioscout: status %d", resp.StatusCode)
	}

	var parsed scoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("audioscout: decoding response: %w", err)
	}

	candidates := make([]models.MatchCandidate, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		candidates = append(candidates, models.MatchCandidate{
			Title:      m.Title,
			Artist:     m.Artist,
			Album:      m.Album,
			Confidence: clampConfidence(m.Confidence),
			ISRC:       m.ISRC,
			PlatformIDs: models.PlatformIDs{
				Spotify:    m.SpotifyID,
				AppleMusic: m.AppleID,
				YouTube:    m.YouTubeID,
				Deezer:     m.DeezerID,
			},
			ArtworkURL: m.ArtworkURL,
			PreviewURL: m.PreviewURL,
		})
	}
	return candidates, nil
}

// clampConfidence maps a 0-1 wire confidence onto the 0-100 scale; values
// already above 1 are assumed to be on the 0-100 scale.
func clampConfidence(raw float64) int {
	if raw <= 1.0 {
		raw *= 100
	}
	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return int(raw + 0.5)
}
