package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

const (
	itunesName   = "iTunes"
	itunesAPIURL = "https://itunes.apple.com"
)

// ITunes is the fallback catalog resolver. The iTunes Search API needs no
// credentials, so it is always available to fill in a missing Apple Music
// identifier after aggregation.
type ITunes struct {
	httpClient *http.Client
	baseURL    string
}

func NewITunes(httpClient *http.Client) *ITunes {
	return NewITunesWithURL(httpClient, itunesAPIURL)
}

func NewITunesWithURL(httpClient *http.Client, baseURL string) *ITunes {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ITunes{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (i *ITunes) Name() string { return itunesName }

type itunesResult struct {
	TrackID      int64  `json:"trackId"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	ArtworkURL   string `json:"artworkUrl100"`
	PreviewURL   string `json:"previewUrl"`
	TrackViewURL string `json:"trackViewUrl"`
}

// Lookup searches for one song and returns the first hit, or nil when the
// catalog has nothing.
func (i *ITunes) Lookup(ctx context.Context, title, artist string) (*models.MatchCandidate, error) {
	lookupURL, err := url.Parse(i.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("itunes: invalid search url: %w", err)
	}

	query := lookupURL.Query()
	query.Set("term", strings.TrimSpace(title+" "+artist))
	query.Set("media", "music")
	query.Set("entity", "song")
	query.Set("limit", "1")
	lookupURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("itunes: creating search request: %w", err)
	}

	resp, err := doWithRetry(i.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("itunes: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes: search status %d", resp.StatusCode)
	}

	var body struct {
		Results []itunesResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("itunes: search decode error: %w", err)
	}

	if len(body.Results) == 0 {
		return nil, nil
	}

	hit := body.Results[0]
	return &models.MatchCandidate{
		Title:       hit.TrackName,
		Artist:      hit.ArtistName,
		PlatformIDs: models.PlatformIDs{AppleMusic: strconv.FormatInt(hit.TrackID, 10)},
		ArtworkURL:  hit.ArtworkURL,
		PreviewURL:  hit.PreviewURL,
		URL:         hit.TrackViewURL,
	}, nil
}
