package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/logger"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/match"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/platforms"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/storage"
)

var (
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("PULSEFIND_DB_PATH", "pulsefind.sqlite3"), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("PULSEFIND_TEMP_DIR", "/tmp"), "Temporary directory")
	flag.IntVar(&sampleRate, "rate", 11025, "Audio sample rate")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	flag.Parse()

	appLog := logger.GetLogger()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	store, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	opts := []pulsefind.Option{
		pulsefind.WithStorage(store),
		pulsefind.WithTempDir(tempDir),
		pulsefind.WithSampleRate(sampleRate),
		pulsefind.WithAnalytics(store),
		pulsefind.WithResolver(platforms.NewITunes(nil)),
	}

	// Providers without credentials stay disabled; the scan then runs on
	// the local store alone.
	if scout, err := platforms.NewAudioScout(nil); err == nil {
		opts = append(opts, pulsefind.WithRecognizer(scout))
	} else if errors.Is(err, platforms.ErrNotConfigured) {
		appLog.Warnf("AudioScout disabled: no API key configured")
	}

	var searchers []match.PlatformSearcher
	if spotify, err := platforms.NewSpotify(context.Background()); err == nil {
		searchers = append(searchers, spotify)
	} else if errors.Is(err, platforms.ErrNotConfigured) {
		appLog.Warnf("Spotify search disabled: no credentials configured")
	}
	if youtube, err := platforms.NewYouTube(nil); err == nil {
		searchers = append(searchers, youtube)
	} else if errors.Is(err, platforms.ErrNotConfigured) {
		appLog.Warnf("YouTube search disabled: no API key configured")
	}
	if len(searchers) > 0 {
		opts = append(opts, pulsefind.WithPlatforms(searchers...))
	}

	service, err := pulsefind.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: origins,
	}

	server := NewServer(service, store, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
