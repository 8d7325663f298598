package analysis

import (
	"math"
	"testing"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

func noisySample(n int) *models.AudioSample {
	samples := make([]float64, n)
	for i := range samples {
		// Deterministic pseudo-noise with a louder middle section.
		samples[i] = 0.3 * math.Sin(float64(i)*0.713)
		if i > n/3 && i < 2*n/3 {
			samples[i] *= 2.5
		}
	}
	return &models.AudioSample{Samples: samples, SampleRate: 11025, ByteLen: n * 2}
}

func TestPlanSegmentsCounts(t *testing.T) {
	sample := noisySample(200000)
	totalBytes := sample.ByteLen

	normal := PlanSegments(sample, totalBytes, false)
	if len(normal) != NormalSegments {
		t.Errorf("normal scan planned %d segments, want %d", len(normal), NormalSegments)
	}

	deep := PlanSegments(sample, totalBytes, true)
	if len(deep) != DeepSegments {
		t.Errorf("deep scan planned %d segments, want %d", len(deep), DeepSegments)
	}
}

func TestPlanSegmentsFallbackCounts(t *testing.T) {
	// nil sample forces the fixed-offset fallback; counts must not change.
	if got := PlanSegments(nil, 300000, false); len(got) != NormalSegments {
		t.Errorf("fallback normal scan planned %d segments, want %d", len(got), NormalSegments)
	}
	if got := PlanSegments(nil, 300000, true); len(got) != DeepSegments {
		t.Errorf("fallback deep scan planned %d segments, want %d", len(got), DeepSegments)
	}
}

func TestPlanSegmentsFirstIsFullLength(t *testing.T) {
	totalBytes := 300000
	for _, deep := range []bool{false, true} {
		segments := PlanSegments(noisySample(150000), totalBytes, deep)
		first := segments[0]
		if first.Offset != 0 || first.LengthBytes != totalBytes || first.Label != "full" {
			t.Errorf("deep=%v: first segment %+v is not the full-length marker", deep, first)
		}
	}
}

func TestPlanSegmentsBounds(t *testing.T) {
	totalBytes := 500000
	segments := PlanSegments(noisySample(250000), totalBytes, true)

	for i, seg := range segments[1:] {
		if seg.Offset < 0 || seg.Offset+seg.LengthBytes > totalBytes {
			t.Errorf("segment %d out of bounds: offset=%d len=%d total=%d", i+1, seg.Offset, seg.LengthBytes, totalBytes)
		}
		if seg.LengthBytes < minSegmentBytes || seg.LengthBytes > maxSegmentBytes {
			t.Errorf("segment %d length %d outside [%d,%d]", i+1, seg.LengthBytes, minSegmentBytes, maxSegmentBytes)
		}
		if seg.Priority == "" {
			t.Errorf("segment %d has no priority", i+1)
		}
	}
}

func TestPlanSegmentsFallbackOffsets(t *testing.T) {
	totalBytes := 1000000
	segments := PlanSegments(nil, totalBytes, false)

	wantPcts := []int{0, 30, 60, 85}
	for i, pct := range wantPcts {
		if i == 0 {
			continue // full-length marker
		}
		want := totalBytes * pct / 100
		if segments[i].Offset != want {
			t.Errorf("fallback segment %d offset = %d, want %d", i, segments[i].Offset, want)
		}
	}
}
