package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/logger"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("PULSEFIND_DB_PATH", "pulsefind.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("PULSEFIND_TEMP_DIR", "/tmp"), "Directory for temporary audio files")
	flag.IntVar(&sampleRate, "rate", 11025, "Audio sample rate for processing")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (pulsefind.Service, error) {
	return pulsefind.NewService(
		pulsefind.WithDBPath(dbPath),
		pulsefind.WithTempDir(tempDir),
		pulsefind.WithSampleRate(sampleRate),
	)
}

func main() {
	_ = godotenv.Load()

	log := logger.GetLogger()

	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Infof("Executing command: %s", command)

	switch command {
	case "scan":
		handleScan()
	case "ingest":
		handleIngest()
	case "list":
		handleList()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 ____        _          _____ _           _
|  _ \ _   _| |___  ___|  ___(_)_ __   __| |
| |_) | | | | / __|/ _ \ |_  | | '_ \ / _' |
|  __/| |_| | \__ \  __/  _| | | | | | (_| |
|_|    \__,_|_|___/\___|_|   |_|_| |_|\__,_|

           Beat Identification CLI
`
	fmt.Println(banner)
}

func handleScan() {
	log := logger.GetLogger()

	args := os.Args[2:]
	var audioPath string
	var flagArgs []string
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && audioPath == "" {
			audioPath = arg
		} else {
			flagArgs = append(flagArgs, args[i:]...)
			break
		}
	}

	scanCmd := flag.NewFlagSet("scan", flag.ExitOnError)
	deep := scanCmd.Bool("deep", false, "Deep scan (8 segments instead of 4)")
	modeFlag := scanCmd.String("mode", "strict", "Matching mode: strict or loose")
	scanCmd.Parse(flagArgs)

	if audioPath == "" {
		fmt.Println("Usage: pulsefind scan <wav_file> [--deep] [--mode strict|loose]")
		os.Exit(1)
	}

	mode := models.MatchingMode(*modeFlag)
	if mode != models.ModeLoose {
		mode = models.ModeStrict
	}

	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		fmt.Printf("Failed to read audio file: %v\n", err)
		log.Errorf("Read failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("Initializing service...")
	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	fmt.Printf("Scanning %s (%s, mode=%s, deep=%v)...\n",
		audioPath, humanize.Bytes(uint64(len(audioBytes))), mode, *deep)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := svc.Scan(ctx, pulsefind.ScanRequest{
		Audio:    audioBytes,
		DeepScan: *deep,
		Mode:     mode,
	})
	if err != nil {
		fmt.Printf("\nScan failed: %v\n", err)
		log.Errorf("Scan failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("\nBeat profile: %s, %d BPM, energy %.2f, complexity %.2f\n",
		result.Characteristics.Genre, result.Characteristics.TempoBPM,
		result.Characteristics.Energy, result.Characteristics.SpectralComplexity)
	fmt.Printf("Thresholds: strict %d / loose %d (%s)\n",
		result.Thresholds.Strict, result.Thresholds.Loose, result.Thresholds.Explanation)

	if len(result.Matches) == 0 {
		fmt.Println("\nNo matches found")
		if result.Message != "" {
			fmt.Printf("   %s\n", result.Message)
		}
		return
	}

	if result.FromCache {
		fmt.Println("\nServed from local fingerprint store")
	}
	fmt.Printf("\nFound %d match(es) in %dms:\n\n", len(result.Matches), result.ElapsedMs)

	maxDisplay := 10
	if len(result.Matches) < maxDisplay {
		maxDisplay = len(result.Matches)
	}

	for i := 0; i < maxDisplay; i++ {
		m := result.Matches[i]
		fmt.Printf("%d. %q by %s\n", i+1, m.Title, m.Artist)
		fmt.Printf("   Confidence: %d%% | Quality: %s | Sources: %s\n",
			m.Confidence, m.MatchQuality, sourceNames(m.Sources))
		if m.ISRC != "" {
			fmt.Printf("   ISRC: %s\n", m.ISRC)
		}
		if m.URL != "" {
			fmt.Printf("   %s\n", m.URL)
		}
		fmt.Println()
	}

	if len(result.Matches) > maxDisplay {
		fmt.Printf("... and %d more matches\n", len(result.Matches)-maxDisplay)
	}
}

func sourceNames(sources []models.Source) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

func handleIngest() {
	log := logger.GetLogger()

	args := os.Args[2:]
	var audioPath string
	var flagArgs []string
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && audioPath == "" {
			audioPath = arg
		} else {
			flagArgs = append(flagArgs, args[i:]...)
			break
		}
	}

	ingestCmd := flag.NewFlagSet("ingest", flag.ExitOnError)
	title := ingestCmd.String("title", "", "Song title (required for local files)")
	artist := ingestCmd.String("artist", "", "Artist name")
	album := ingestCmd.String("album", "", "Album name (optional)")
	isrc := ingestCmd.String("isrc", "", "ISRC code (optional)")
	youtubeURL := ingestCmd.String("youtube-url", "", "YouTube URL to download and ingest")
	ingestCmd.Parse(flagArgs)

	if *youtubeURL != "" && audioPath != "" {
		fmt.Println("Error: cannot specify both audio file and --youtube-url")
		os.Exit(1)
	}
	if *youtubeURL == "" && audioPath == "" {
		fmt.Println("Usage: pulsefind ingest <audio_file> --title <title> --artist <artist>")
		fmt.Println("   OR: pulsefind ingest --youtube-url <url> [--title <title>] [--artist <artist>]")
		os.Exit(1)
	}
	if *youtubeURL == "" && (*title == "" || *artist == "") {
		fmt.Println("Error: --title and --artist are required for local files")
		os.Exit(1)
	}

	fmt.Println("Initializing service...")
	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	if *youtubeURL != "" {
		fmt.Println("Downloading audio from YouTube...")
		fmt.Println("   This may take a few moments depending on video length")
	} else {
		fmt.Println("Processing audio file...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	id, err := svc.Ingest(ctx, pulsefind.IngestRequest{
		FilePath:   audioPath,
		YouTubeURL: *youtubeURL,
		Title:      *title,
		Artist:     *artist,
		Album:      *album,
		ISRC:       *isrc,
	})
	if err != nil {
		fmt.Printf("\nFailed to ingest song: %v\n", err)
		log.Errorf("Ingest failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("\nSuccessfully ingested song into the store!")
	fmt.Printf("   ID: %s\n", id)
	log.Infof("Ingested entry %s", id)
}

func handleList() {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	songs, err := svc.ListEntries()
	if err != nil {
		fmt.Printf("Failed to list entries: %v\n", err)
		log.Errorf("ListEntries failed: %v", err)
		os.Exit(1)
	}

	if len(songs) == 0 {
		fmt.Println("\nNo entries in the fingerprint store")
		return
	}

	fmt.Printf("\nFound %d entry(ies):\n\n", len(songs))
	for i, song := range songs {
		fmt.Printf("%d. %q by %s (ID: %s)\n", i+1, song.Title, song.Artist, song.ID)
		if song.ISRC != "" {
			fmt.Printf("   ISRC: %s\n", song.ISRC)
		}
		if song.PlatformIDs.YouTube != "" {
			fmt.Printf("   YouTube: https://youtube.com/watch?v=%s\n", song.PlatformIDs.YouTube)
		}
		if song.DurationMs > 0 {
			duration := song.DurationMs / 1000
			fmt.Printf("   Duration: %d:%02d | Fingerprint: %s\n",
				duration/60, duration%60, humanize.Bytes(uint64(len(song.Binary))))
		}
		fmt.Println()
	}
	log.Infof("Listed %d entries", len(songs))
}

func printUsage() {
	fmt.Println("PulseFind - Beat Identification CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Path to SQLite database (env: PULSEFIND_DB_PATH, default: pulsefind.sqlite3)")
	fmt.Println("  --temp <dir>       Temporary directory for audio files (env: PULSEFIND_TEMP_DIR, default: /tmp)")
	fmt.Println("  --rate <hz>        Audio sample rate (default: 11025)")
	fmt.Println("\nUsage:")
	fmt.Println("  pulsefind [global-options] scan <wav_file> [--deep] [--mode strict|loose]")
	fmt.Println("  pulsefind [global-options] ingest <audio_file> --title <title> --artist <artist> [--album <album>] [--isrc <code>]")
	fmt.Println("  pulsefind [global-options] ingest --youtube-url <url> [--title <title>] [--artist <artist>]")
	fmt.Println("  pulsefind [global-options] list")
	fmt.Println("\nExamples:")
	fmt.Println("  # Identify a beat")
	fmt.Println("  pulsefind scan mystery_beat.wav --mode loose")
	fmt.Println()
	fmt.Println("  # Deep scan with 8 segments")
	fmt.Println("  pulsefind scan mystery_beat.wav --deep")
	fmt.Println()
	fmt.Println("  # Seed the store from a local file")
	fmt.Println("  pulsefind ingest reference.wav --title \"Mask Off\" --artist \"Future\"")
	fmt.Println()
	fmt.Println("  # Seed the store from YouTube (auto-detects metadata)")
	fmt.Println("  pulsefind ingest --youtube-url \"https://youtube.com/watch?v=xvZqHgFz51I\"")
}
