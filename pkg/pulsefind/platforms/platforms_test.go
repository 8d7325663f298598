package platforms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

func TestAudioScoutRecognize(t *testing.T) {
	var gotAuth string
	var gotReq scoutRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(scoutResponse{Matches: []scoutMatch{
			{
				Title:      "The Box",
				Artist:     "Roddy Ricch",
				Confidence: 0.92,
				ISRC:       "USAT22000001",
				SpotifyID:  "sp-box",
			},
			{Title: "Other", Artist: "Someone", Confidence: 0.41},
		}})
	}))
	defer srv.Close()

	scout := NewAudioScoutWithURL(srv.Client(), srv.URL, "test-key")
	audio := []byte{1, 2, 3, 4}
	segment := models.AudioSegment{Label: "full", Offset: 0, LengthBytes: 4}

	got, err := scout.Recognize(context.Background(), segment, audio)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Label != "full" || gotReq.ByteLen != 4 {
		t.Errorf("request payload = %+v", gotReq)
	}
	if decoded, _ := base64.StdEncoding.DecodeString(gotReq.Audio); string(decoded) != string(audio) {
		t.Error("audio bytes not round-tripped")
	}

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Confidence != 92 {
		t.Errorf("confidence = %d, want 92", got[0].Confidence)
	}
	if got[0].ISRC != "USAT22000001" || got[0].PlatformIDs.Spotify != "sp-box" {
		t.Errorf("identifiers not mapped: %+v", got[0])
	}
	if got[1].Confidence != 41 {
		t.Errorf("second confidence = %d, want 41", got[1].Confidence)
	}
}

func TestAudioScoutEmptyMatchesIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoutResponse{})
	}))
	defer srv.Close()

	scout := NewAudioScoutWithURL(srv.Client(), srv.URL, "k")
	got, err := scout.Recognize(context.Background(), models.AudioSegment{Label: "full"}, []byte{1})
	if err != nil {
		t.Fatalf("empty match list must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestAudioScoutEmptyAudioErrors(t *testing.T) {
	scout := NewAudioScoutWithURL(nil, "http://unused.example", "k")
	if _, err := scout.Recognize(context.Background(), models.AudioSegment{}, nil); err == nil {
		t.Error("expected error for empty segment audio")
	}
}

func TestAudioScoutServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	scout := NewAudioScoutWithURL(srv.Client(), srv.URL, "bad-key")
	if _, err := scout.Recognize(context.Background(), models.AudioSegment{Label: "full"}, []byte{1}); err == nil {
		t.Error("expected error for 401 response")
	}
}

func TestNewAudioScoutUnconfigured(t *testing.T) {
	old := os.Getenv("AUDIOSCOUT_API_KEY")
	os.Unsetenv("AUDIOSCOUT_API_KEY")
	defer func() {
		if old != "" {
			os.Setenv("AUDIOSCOUT_API_KEY", old)
		}
	}()

	_, err := NewAudioScout(nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSpotifySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("type") != "track" {
			t.Errorf("type = %q", q.Get("type"))
		}
		w.Write([]byte(`{
			"tracks": {"items": [{
				"id": "sp-suge",
				"name": "Suge",
				"artists": [{"name": "DaBaby"}],
				"album": {"name": "Baby on Baby", "images": [{"url": "https://img.example/a.jpg"}]},
				"external_ids": {"isrc": "USUM71903596"},
				"external_urls": {"spotify": "https://open.spotify.com/track/sp-suge"},
				"popularity": 79
			}]}
		}`))
	}))
	defer srv.Close()

	client := NewSpotifyWithClient(srv.Client(), srv.URL)
	got, err := client.Search(context.Background(), "Suge", "DaBaby")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	cand := got[0]
	if cand.PlatformIDs.Spotify != "sp-suge" {
		t.Errorf("spotify ID = %q", cand.PlatformIDs.Spotify)
	}
	if cand.Artist != "DaBaby" || cand.Album != "Baby on Baby" {
		t.Errorf("metadata not mapped: %+v", cand)
	}
	if cand.ISRC != "USUM71903596" || cand.Popularity != 79 {
		t.Errorf("identifiers not mapped: %+v", cand)
	}
	if cand.ArtworkURL != "https://img.example/a.jpg" {
		t.Errorf("artwork = %q", cand.ArtworkURL)
	}
}

func TestSpotifySearchMultipleArtistsJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tracks": {"items": [{
			"id": "x", "name": "Collab",
			"artists": [{"name": "A"}, {"name": "B"}]
		}]}}`))
	}))
	defer srv.Close()

	got, err := NewSpotifyWithClient(srv.Client(), srv.URL).Search(context.Background(), "Collab", "A")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got[0].Artist != "A, B" {
		t.Errorf("artist = %q, want joined names", got[0].Artist)
	}
}

func TestYouTubeSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "yt-key" {
			t.Errorf("key = %q", q.Get("key"))
		}
		if q.Get("videoCategoryId") != "10" {
			t.Errorf("category = %q", q.Get("videoCategoryId"))
		}
		w.Write([]byte(`{"items": [
			{"id": {"videoId": "abc123"}, "snippet": {"title": "Suge (Official Video)", "channelTitle": "DaBaby"}},
			{"id": {}, "snippet": {"title": "channel result"}}
		]}`))
	}))
	defer srv.Close()

	client := NewYouTubeWithURL(srv.Client(), srv.URL, "yt-key")
	got, err := client.Search(context.Background(), "Suge", "DaBaby")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1 (non-video results skipped)", len(got))
	}
	if got[0].PlatformIDs.YouTube != "abc123" {
		t.Errorf("video ID = %q", got[0].PlatformIDs.YouTube)
	}
	if got[0].URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("URL = %q", got[0].URL)
	}
}

func TestITunesLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("entity") != "song" || q.Get("limit") != "1" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"results": [{
			"trackId": 1440841766,
			"trackName": "Mask Off",
			"artistName": "Future",
			"artworkUrl100": "https://art.example/m.jpg"
		}]}`))
	}))
	defer srv.Close()

	resolver := NewITunesWithURL(srv.Client(), srv.URL)
	got, err := resolver.Lookup(context.Background(), "Mask Off", "Future")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.PlatformIDs.AppleMusic != "1440841766" {
		t.Errorf("apple music ID = %q", got.PlatformIDs.AppleMusic)
	}
}

func TestITunesLookupNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	got, err := NewITunesWithURL(srv.Client(), srv.URL).Lookup(context.Background(), "Nothing", "Nobody")
	if err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil result, got %+v", got)
	}
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	_, err := NewITunesWithURL(srv.Client(), srv.URL).Lookup(context.Background(), "x", "y")
	if err != nil {
		t.Fatalf("expected retries to recover, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryGivesUp(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewITunesWithURL(srv.Client(), srv.URL).Lookup(context.Background(), "x", "y")
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if attempts != defaultMaxRetries {
		t.Errorf("attempts = %d, want %d", attempts, defaultMaxRetries)
	}
}
