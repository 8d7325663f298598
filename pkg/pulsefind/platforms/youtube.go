package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

const (
	youtubeName   = "YouTube"
	youtubeAPIURL = "https://www.googleapis.com/youtube/v3"
	youtubeLimit  = 5
)

// YouTube searches the YouTube Data API for video identifiers. Titles and
// channel names on YouTube are noisy; the aggregator's normalized matching
// decides whether a result confirms an existing candidate.
type YouTube struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewYouTube reads YOUTUBE_API_KEY from the environment. Returns
// ErrNotConfigured when it is missing.
func NewYouTube(httpClient *http.Client) (*YouTube, error) {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: %w", ErrNotConfigured)
	}
	return NewYouTubeWithURL(httpClient, youtubeAPIURL, apiKey), nil
}

func NewYouTubeWithURL(httpClient *http.Client, baseURL, apiKey string) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTube{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (y *YouTube) Name() string { return youtubeName }

type youtubeItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

// Search queries video search by "title artist" and maps results.
func (y *YouTube) Search(ctx context.Context, title, artist string) ([]models.MatchCandidate, error) {
	searchURL, err := url.Parse(y.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("youtube: invalid search url: %w", err)
	}

	query := searchURL.Query()
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("videoCategoryId", "10") // Music
	query.Set("q", strings.TrimSpace(title+" "+artist))
	query.Set("maxResults", fmt.Sprintf("%d", youtubeLimit))
	query.Set("key", y.apiKey)
	searchURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: creating search request: %w", err)
	}

	resp, err := doWithRetry(y.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("youtube: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube: search status %d", resp.StatusCode)
	}

	var body struct {
		Items []youtubeItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("youtube: search decode error: %w", err)
	}

	candidates := make([]models.MatchCandidate, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.VideoID == "" {
			continue
		}
		candidates = append(candidates, models.MatchCandidate{
			Title:       item.Snippet.Title,
			Artist:      item.Snippet.ChannelTitle,
			PlatformIDs: models.PlatformIDs{YouTube: item.ID.VideoID},
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			ArtworkURL:  item.Snippet.Thumbnails.High.URL,
		})
	}
	return candidates, nil
}
