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
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyName     = "Spotify"
	spotifyAPIURL   = "https://api.spotify.com/v1"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyLimit    = 5
)

// Spotify searches the Spotify catalog for platform identifiers. Auth uses
// the client-credentials flow; the oauth2 client refreshes tokens itself.
type Spotify struct {
	httpClient *http.Client
	baseURL    string
}

// NewSpotify reads SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET from the
// environment. Returns ErrNotConfigured when either is missing.
func NewSpotify(ctx context.Context) (*Spotify, error) {
	clientID := os.Getenv("SPOTIFY_CLIENT_ID")
	clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify: %w", ErrNotConfigured)
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}
	return &Spotify{
		httpClient: conf.Client(ctx),
		baseURL:    spotifyAPIURL,
	}, nil
}

// NewSpotifyWithClient wires an explicit HTTP client and base URL.
func NewSpotifyWithClient(httpClient *http.Client, baseURL string) *Spotify {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Spotify{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (s *Spotify) Name() string { return spotifyName }

type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	PreviewURL string `json:"preview_url"`
	Popularity int    `json:"popularity"`
}

// Search queries the catalog by title and artist and maps the top results.
func (s *Spotify) Search(ctx context.Context, title, artist string) ([]models.MatchCandidate, error) {
	searchURL, err := url.Parse(s.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("spotify: invalid search url: %w", err)
	}

	query := searchURL.Query()
	query.Set("q", fmt.Sprintf("track:%s artist:%s", title, artist))
	query.Set("type", "track")
	query.Set("limit", fmt.Sprintf("%d", spotifyLimit))
	searchURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("spotify: creating search request: %w", err)
	}

	resp, err := doWithRetry(s.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("spotify: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify: search status %d", resp.StatusCode)
	}

	var body struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("spotify: search decode error: %w", err)
	}

	candidates := make([]models.MatchCandidate, 0, len(body.Tracks.Items))
	for _, track := range body.Tracks.Items {
		cand := models.MatchCandidate{
			Title:       track.Name,
			Artist:      joinArtistNames(track),
			Album:       track.Album.Name,
			ISRC:        track.ExternalIDs.ISRC,
			PlatformIDs: models.PlatformIDs{Spotify: track.ID},
			PreviewURL:  track.PreviewURL,
			URL:         track.ExternalURLs.Spotify,
			Popularity:  track.Popularity,
		}
		if len(track.Album.Images) > 0 {
			cand.ArtworkURL = track.Album.Images[0].URL
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func joinArtistNames(track spotifyTrack) string {
	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
