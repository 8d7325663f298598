package match

import (
	"context"
	"time"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// Logger is the subset of the process logger the matching stages need.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Recognizer submits one audio segment to the external recognition service
// and returns its parsed candidates. Implementations interpret the provider's
// responses; the wire protocol itself is the provider's concern.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, segment models.AudioSegment, audio []byte) ([]models.MatchCandidate, error)
}

// SegmentStats tallies per-segment outcomes, folded from the concurrent
// tasks by the caller rather than shared counters.
type SegmentStats struct {
	Submitted int
	Succeeded int
	Failed    int
}

const (
	defaultMaxConcurrent  = 10
	defaultSegmentTimeout = 15 * time.Second
)

// Orchestrator fans scan segments out to the recognition service.
type Orchestrator struct {
	recognizer Recognizer
	log        Logger

	maxConcurrent  int
	segmentTimeout time.Duration
}

func NewOrchestrator(recognizer Recognizer, log Logger) *Orchestrator {
	return &Orchestrator{
		recognizer:     recognizer,
		log:            log,
		maxConcurrent:  defaultMaxConcurrent,
		segmentTimeout: defaultSegmentTimeout,
	}
}

// SetSegmentTimeout overrides the per-segment deadline.
func (o *Orchestrator) SetSegmentTimeout(d time.Duration) {
	if d > 0 {
		o.segmentTimeout = d
	}
}

type segmentResult struct {
	index      int
	candidates []models.MatchCandidate
	err        error
}

// RecognizeSegments submits all segments concurrently in bounded batches.
// Each call is independent: a failed, timed-out, or empty segment is logged
// and excluded, never aborting the others. Results come back in segment
// order so downstream discovery order is deterministic.
func (o *Orchestrator) RecognizeSegments(ctx context.Context, segments []models.AudioSegment, audio []byte) ([]models.MatchCandidate, SegmentStats) {
	stats := SegmentStats{Submitted: len(segments)}
	if o.recognizer == nil || len(segments) == 0 {
		stats.Failed = len(segments)
		return nil, stats
	}

	results := make(chan segmentResult, len(segments))
	sem := make(chan struct{}, o.maxConcurrent)

	for i, seg := range segments {
		sem <- struct{}{}
		go func(index int, segment models.AudioSegment) {
			defer func() { <-sem }()

			segCtx, cancel := context.WithTimeout(ctx, o.segmentTimeout)
			defer cancel()

			candidates, err := o.recognizer.Recognize(segCtx, segment, sliceSegment(audio, segment))
			results <- segmentResult{index: index, candidates: candidates, err: err}
		}(i, seg)
	}

	ordered := make([][]models.MatchCandidate, len(segments))
	for range segments {
		res := <-results
		if res.err != nil {
			stats.Failed++
			o.log.Warnf("segment %q recognition failed: %v", segments[res.index].Label, res.err)
			continue
		}
		stats.Succeeded++
		ordered[res.index] = res.candidates
	}

	var all []models.MatchCandidate
	for i, batch := range ordered {
		for _, cand := range batch {
			cand.SegmentLabel = segments[i].Label
			cand.MatchQuality = models.QualityForConfidence(cand.Confidence)
			cand.AddSource(models.Source{Kind: models.SourceRecognition, Name: o.recognizer.Name()})
			all = append(all, cand)
		}
	}

	return all, stats
}

// sliceSegment cuts the segment's byte range out of the raw audio, clamped
// to the payload bounds.
func sliceSegment(audio []byte, segment models.AudioSegment) []byte {
	if segment.Offset >= len(audio) || segment.Offset < 0 {
		return nil
	}
	end := segment.Offset + segment.LengthBytes
	if end > len(audio) || segment.LengthBytes <= 0 {
		end = len(audio)
	}
	return audio[segment.Offset:end]
}
