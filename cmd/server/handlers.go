package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/logger"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/audio"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/storage"
)

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	service pulsefind.Service
	stats   *storage.DBClient // optional, for the metrics endpoint
	config  *ServerConfig
	log     pulsefind.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

func NewServer(service pulsefind.Service, stats *storage.DBClient, config *ServerConfig) *Server {
	return &Server{
		service: service,
		stats:   stats,
		config:  config,
		log:     logger.GetLogger(),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "PulseFind API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"songs":         "GET /api/songs",
			"ingestFile":    "POST /api/songs",
			"ingestYouTube": "POST /api/songs/youtube",
			"scan":          "POST /api/scan",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListEntries()
	if err != nil {
		s.log.Errorf("Failed to get song count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	resp := MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		SongCount:    len(songs),
		SampleRate:   s.config.SampleRate,
	}
	if s.stats != nil {
		if scanStats, err := s.stats.Stats(); err == nil {
			resp.ScanStats = scanStats
		} else {
			s.log.Warnf("Failed to load scan stats: %v", err)
		}
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleScan handles POST /api/scan (multipart audio + flags).
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audioBytes, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes))
	if err != nil {
		s.log.Errorf("Failed to read upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	mode := models.MatchingMode(r.FormValue("mode"))
	if mode != models.ModeLoose {
		mode = models.ModeStrict
	}
	deep := r.FormValue("deep_scan") == "true"

	s.log.Infof("Scanning %s (%d bytes, mode=%s, deep=%v)", header.Filename, len(audioBytes), mode, deep)

	result, err := s.service.Scan(ctx, pulsefind.ScanRequest{
		Audio:    audioBytes,
		DeepScan: deep,
		Mode:     mode,
	})
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrNoAudio), errors.Is(err, audio.ErrUnreadableAudio):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Errorf("Scan failed: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Scan failed")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, ScanResponse{
		ScanID:          result.ScanID,
		Matches:         result.Matches,
		Count:           len(result.Matches),
		Metrics:         result.Metrics,
		Characteristics: result.Characteristics,
		Thresholds:      result.Thresholds,
		FromCache:       result.FromCache,
		Message:         result.Message,
		ElapsedMs:       result.ElapsedMs,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListEntries()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	songDTOs := make([]SongDTO, len(songs))
	for i, song := range songs {
		songDTOs[i] = SongDTO{
			ID:          song.ID,
			Title:       song.Title,
			Artist:      song.Artist,
			Album:       song.Album,
			ISRC:        song.ISRC,
			PlatformIDs: song.PlatformIDs,
			DurationMs:  song.DurationMs,
			Popularity:  song.Popularity,
		}
	}

	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: songDTOs,
		Count: len(songDTOs),
	})
}

// handleIngestFile handles POST /api/songs (multipart file upload).
func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("upload_%d_%s", time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer out.Close()
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Ingesting song from file: %s by %s", title, artist)
	id, err := s.service.Ingest(ctx, pulsefind.IngestRequest{
		FilePath: tempFile,
		Title:    title,
		Artist:   artist,
		Album:    r.FormValue("album"),
		ISRC:     r.FormValue("isrc"),
	})
	if err != nil {
		s.log.Errorf("Failed to ingest song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to ingest song: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, IngestResponse{
		Message: "Song ingested successfully",
		ID:      id,
		Title:   title,
		Artist:  artist,
	})
}

// handleIngestYouTube handles POST /api/songs/youtube
func (s *Server) handleIngestYouTube(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req IngestYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Ingesting song from YouTube URL: %s", req.YouTubeURL)
	id, err := s.service.Ingest(ctx, pulsefind.IngestRequest{
		YouTubeURL: req.YouTubeURL,
		Title:      req.Title,
		Artist:     req.Artist,
		Album:      req.Album,
		ISRC:       req.ISRC,
	})
	if err != nil {
		s.log.Errorf("Failed to ingest from YouTube: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to ingest from YouTube: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, IngestResponse{
		Message: "Song ingested successfully from YouTube",
		ID:      id,
		Title:   req.Title,
		Artist:  req.Artist,
	})
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleIngestFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleScanRoute routes requests to /api/scan
func (s *Server) handleScanRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleScan(w, r)
}

// handleIngestYouTubeRoute routes requests to /api/songs/youtube
func (s *Server) handleIngestYouTubeRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleIngestYouTube(w, r)
}
