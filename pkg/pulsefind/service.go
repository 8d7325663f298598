package pulsefind

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/logger"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/analysis"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/audio"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/fingerprint"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/match"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/storage"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/utils"
)

// aggregateTopK bounds how many distinct recognized songs get platform
// enrichment searches.
const aggregateTopK = 3

// storeUpsertLimit bounds how many slow-path candidates are written back to
// the fingerprint store per scan.
const storeUpsertLimit = 3

// scanService is the default implementation of the Service interface.
type scanService struct {
	storage      Storage
	analytics    AnalyticsSink
	log          Logger
	config       *Config
	orchestrator *match.Orchestrator
	aggregator   *match.Aggregator
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	var stor Storage
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		client, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		stor = client
	}

	sink := cfg.Analytics
	if sink == nil {
		// The sqlite client doubles as the analytics sink.
		if s, ok := stor.(AnalyticsSink); ok {
			sink = s
		}
	}

	orchestrator := match.NewOrchestrator(cfg.Recognizer, cfg.Logger)
	if cfg.SegmentTimeout > 0 {
		orchestrator.SetSegmentTimeout(cfg.SegmentTimeout)
	}

	return &scanService{
		storage:      stor,
		analytics:    sink,
		log:          cfg.Logger,
		config:       cfg,
		orchestrator: orchestrator,
		aggregator:   match.NewAggregator(cfg.Platforms, cfg.Resolver, cfg.Logger),
	}, nil
}

// Scan runs the full identification pipeline over one audio payload.
func (s *scanService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	start := time.Now()
	scanID := utils.GenerateUUID()

	mode := req.Mode
	if mode == "" {
		mode = models.ModeStrict
	}

	sample, err := audio.DecodeWAV(req.Audio)
	if err != nil {
		return nil, err
	}

	// Fingerprint and characteristics work off the same immutable sample,
	// so both run at once.
	var (
		wg         sync.WaitGroup
		record     *models.FingerprintRecord
		extractErr error
		chars      models.BeatCharacteristics
		analyzeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		record, extractErr = fingerprint.Extract(sample)
	}()
	go func() {
		defer wg.Done()
		chars, analyzeErr = analysis.Analyze(sample)
	}()
	wg.Wait()

	if extractErr != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrUnreadableAudio, extractErr)
	}

	var anomalies []string

	thresholds := analysis.ComputeThresholds(chars)
	if analyzeErr != nil {
		s.log.Warnf("scan %s: characteristics analysis failed, using defaults: %v", scanID, analyzeErr)
		thresholds = analysis.DefaultThresholds()
		anomalies = append(anomalies, "characteristics analysis failed; default thresholds applied")
	}
	active := thresholds.Active(mode)
	s.log.Infof("scan %s: genre=%s tempo=%d threshold=%d (%s)",
		scanID, chars.Genre, chars.TempoBPM, active, thresholds.Explanation)

	entries, err := s.storage.ListSongs()
	if err != nil {
		return nil, fmt.Errorf("reading fingerprint store: %w", err)
	}

	result := &ScanResult{
		ScanID:          scanID,
		Characteristics: chars,
		Thresholds:      thresholds,
	}

	locals, hit := match.MatchLocal(record, entries, active, mode)
	if hit {
		s.log.Infof("scan %s: local store hit, %d cached candidates", scanID, len(locals))

		ranked := match.Rank(match.Deduplicate(locals), nil)
		result.Matches = ranked
		result.FromCache = true
		result.Metrics = foldMetrics(0, len(locals), ranked)
		result.ElapsedMs = time.Since(start).Milliseconds()

		s.upsertCandidates(scanID, record, ranked)
		s.recordAnalytics(req, result, match.SegmentStats{}, anomalies)
		return result, nil
	}

	segments := analysis.PlanSegments(sample, len(req.Audio), req.DeepScan)
	candidates, stats := s.orchestrator.RecognizeSegments(ctx, segments, req.Audio)

	deduped := match.Deduplicate(candidates)
	before := len(deduped)
	filtered := match.FilterByThreshold(deduped, active)

	if stats.Submitted > 0 && stats.Succeeded == 0 {
		anomalies = append(anomalies, "all recognition segments failed")
	}

	if len(filtered) == 0 {
		if stats.Succeeded == 0 && stats.Submitted > 0 {
			result.Message = "recognition service unavailable; no external results"
		} else {
			result.Message = fmt.Sprintf("no matches met the %s threshold of %d", mode, active)
			if before > 0 {
				anomalies = append(anomalies, "all candidates fell below the active threshold")
			}
		}
		result.Matches = []models.MatchCandidate{}
		result.Metrics = foldMetrics(stats.Succeeded, before, nil)
		result.ElapsedMs = time.Since(start).Milliseconds()
		s.recordAnalytics(req, result, stats, anomalies)
		return result, nil
	}

	s.upsertCandidates(scanID, record, filtered)

	enriched := s.aggregator.Enrich(ctx, filtered, aggregateTopK)
	ranked := match.Rank(enriched, segmentPriorities(segments))

	result.Matches = ranked
	result.Metrics = foldMetrics(stats.Succeeded, before, ranked)
	result.ElapsedMs = time.Since(start).Milliseconds()

	s.recordAnalytics(req, result, stats, anomalies)
	return result, nil
}

// upsertCandidates writes the scan's fingerprint into the store under the
// best candidates' metadata. Failures are logged only; the scan result is
// already decided.
func (s *scanService) upsertCandidates(scanID string, record *models.FingerprintRecord, candidates []models.MatchCandidate) {
	limit := len(candidates)
	if limit > storeUpsertLimit {
		limit = storeUpsertLimit
	}
	for _, cand := range candidates[:limit] {
		song := models.StoredSong{
			FingerprintHash:  fingerprint.StoreKey(record),
			Title:            cand.Title,
			Artist:           cand.Artist,
			Album:            cand.Album,
			ISRC:             cand.ISRC,
			PlatformIDs:      cand.PlatformIDs,
			Binary:           record.Binary,
			QuickHash:        record.QuickHash,
			SpectralFeatures: record.SpectralFeatures,
			DurationMs:       record.DurationMs,
			Popularity:       cand.Popularity,
		}
		if _, err := s.storage.UpsertSong(song); err != nil {
			s.log.Warnf("scan %s: store upsert for %q failed: %v", scanID, cand.Title, err)
		}
	}
}

func (s *scanService) recordAnalytics(req ScanRequest, result *ScanResult, stats match.SegmentStats, anomalies []string) {
	if s.analytics == nil {
		return
	}

	breakdown := make(map[string]int)
	for _, cand := range result.Matches {
		for _, src := range cand.Sources {
			breakdown[src.Kind.String()]++
		}
	}

	rec := models.ScanAnalytics{
		ScanID:            result.ScanID,
		Mode:              req.Mode,
		DeepScan:          req.DeepScan,
		Characteristics:   result.Characteristics,
		Thresholds:        result.Thresholds,
		SegmentsPlanned:   stats.Submitted,
		SegmentsSucceeded: stats.Succeeded,
		SegmentsFailed:    stats.Failed,
		Metrics:           result.Metrics,
		SourceBreakdown:   breakdown,
		Anomalies:         anomalies,
		FromCache:         result.FromCache,
		ElapsedMs:         result.ElapsedMs,
	}
	if err := s.analytics.RecordScan(rec); err != nil {
		s.log.Warnf("scan %s: analytics write failed: %v", result.ScanID, err)
	}
}

// Ingest registers a known song from a local file or a YouTube URL so the
// local fast path can serve it. Returns the stored entry's ID.
func (s *scanService) Ingest(ctx context.Context, req IngestRequest) (string, error) {
	if req.FilePath == "" && req.YouTubeURL == "" {
		return "", errors.New("ingest requires a file path or a youtube url")
	}

	inputPath := req.FilePath
	youtubeID := ""
	if req.YouTubeURL != "" {
		downloaded, meta, err := audio.DownloadReferenceAudio(ctx, req.YouTubeURL, s.config.TempDir)
		if err != nil {
			return "", fmt.Errorf("downloading reference audio: %w", err)
		}
		defer utils.DeleteFile(downloaded)

		inputPath = downloaded
		youtubeID = meta.ID
		if req.Title == "" {
			req.Title = firstNonEmpty(meta.Track, meta.Title)
		}
		if req.Artist == "" {
			req.Artist = meta.Artist
		}
	}

	wavPath, err := audio.ConvertToMonoWAV(ctx, inputPath, s.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		return "", fmt.Errorf("audio conversion failed: %w", err)
	}
	defer utils.DeleteFile(wavPath)

	sample, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return "", err
	}

	record, err := fingerprint.Extract(sample)
	if err != nil {
		return "", fmt.Errorf("fingerprint extraction failed: %w", err)
	}

	song := models.StoredSong{
		FingerprintHash:  fingerprint.StoreKey(record),
		Title:            strings.TrimSpace(req.Title),
		Artist:           strings.TrimSpace(req.Artist),
		Album:            req.Album,
		ISRC:             req.ISRC,
		PlatformIDs:      models.PlatformIDs{YouTube: youtubeID},
		Binary:           record.Binary,
		QuickHash:        record.QuickHash,
		SpectralFeatures: record.SpectralFeatures,
		DurationMs:       record.DurationMs,
	}
	if song.Title == "" {
		return "", errors.New("ingest requires a title")
	}

	id, err := s.storage.UpsertSong(song)
	if err != nil {
		return "", fmt.Errorf("storing fingerprint entry: %w", err)
	}

	s.log.Infof("ingested %q by %q as %s", song.Title, song.Artist, id)
	return id, nil
}

// ListEntries returns every stored fingerprint entry.
func (s *scanService) ListEntries() ([]models.StoredSong, error) {
	return s.storage.ListSongs()
}

// Close releases all resources held by the service.
func (s *scanService) Close() error {
	return s.storage.Close()
}

func foldMetrics(segmentsScanned, beforeFilter int, ranked []models.MatchCandidate) models.ScanMetrics {
	scores := make([]int, 0, len(ranked))
	for _, cand := range ranked {
		scores = append(scores, cand.Confidence)
	}
	return models.ScanMetrics{
		SegmentsScanned:     segmentsScanned,
		ResultsBeforeFilter: beforeFilter,
		ResultsAfterFilter:  len(ranked),
		ConfidenceScores:    scores,
	}
}

func segmentPriorities(segments []models.AudioSegment) map[string]models.Priority {
	priorities := make(map[string]models.Priority, len(segments))
	for _, seg := range segments {
		priorities[seg.Label] = seg.Priority
	}
	return priorities
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
