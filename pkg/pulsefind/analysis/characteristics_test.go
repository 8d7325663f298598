package analysis

import (
	"math"
	"testing"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// clickTrack synthesizes impulses at the given tempo over noise-free silence.
func clickTrack(bpm int, seconds float64, sampleRate int) *models.AudioSample {
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	beatInterval := int(float64(sampleRate) * 60.0 / float64(bpm))
	for beat := 0; beat*beatInterval < n; beat++ {
		start := beat * beatInterval
		for i := 0; i < 512 && start+i < n; i++ {
			decay := 1.0 - float64(i)/512.0
			samples[start+i] = 0.9 * decay * math.Sin(2*math.Pi*180*float64(i)/float64(sampleRate))
		}
	}
	return &models.AudioSample{Samples: samples, SampleRate: sampleRate, ByteLen: n * 2}
}

func TestAnalyzeTempoEstimate(t *testing.T) {
	for _, bpm := range []int{90, 120, 140} {
		sample := clickTrack(bpm, 10.0, 11025)

		chars, err := Analyze(sample)
		if err != nil {
			t.Fatalf("Analyze failed for %d BPM: %v", bpm, err)
		}

		// Autocorrelation peaks can land on a harmonic of the true lag;
		// accept the tempo or its half/double inside the valid range.
		diff := minInt(
			absInt(chars.TempoBPM-bpm),
			minInt(absInt(chars.TempoBPM-bpm/2), absInt(chars.TempoBPM-bpm*2)),
		)
		if diff > 8 {
			t.Errorf("estimated %d BPM for a %d BPM click track", chars.TempoBPM, bpm)
		}
	}
}

func TestAnalyzeShortSampleFallsBack(t *testing.T) {
	shortSample := &models.AudioSample{Samples: make([]float64, 100), SampleRate: 11025}

	chars, err := Analyze(shortSample)
	if err == nil {
		t.Error("expected error for too-short sample")
	}

	defaults := models.DefaultCharacteristics()
	if chars != defaults {
		t.Errorf("fallback characteristics = %+v, want defaults %+v", chars, defaults)
	}
}

func TestAnalyzeEnergyBounds(t *testing.T) {
	loud := make([]float64, 44100)
	for i := range loud {
		loud[i] = 0.95 * math.Sin(2*math.Pi*330*float64(i)/11025)
	}
	chars, err := Analyze(&models.AudioSample{Samples: loud, SampleRate: 11025})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if chars.Energy != 1.0 {
		t.Errorf("loud signal energy = %v, want clamped 1.0", chars.Energy)
	}
	if chars.SpectralComplexity < 0 || chars.SpectralComplexity > 1 {
		t.Errorf("complexity %v out of [0,1]", chars.SpectralComplexity)
	}
}

func TestClassifyGenreRuleOrder(t *testing.T) {
	tests := []struct {
		name  string
		chars models.BeatCharacteristics
		want  models.Genre
	}{
		{"trap window", models.BeatCharacteristics{TempoBPM: 140, Energy: 0.6, SpectralComplexity: 0.4}, models.GenreTrap},
		// Trap's rule also covers this profile and fires first by table order.
		{"trap wins over drill", models.BeatCharacteristics{TempoBPM: 145, Energy: 0.7, SpectralComplexity: 0.7}, models.GenreTrap},
		{"drill outside trap tempo", models.BeatCharacteristics{TempoBPM: 152, Energy: 0.7, SpectralComplexity: 0.7}, models.GenreDrill},
		{"melodic by complexity", models.BeatCharacteristics{TempoBPM: 110, Energy: 0.3, SpectralComplexity: 0.8}, models.GenreMelodic},
		{"boom-bap", models.BeatCharacteristics{TempoBPM: 92, Energy: 0.5, SpectralComplexity: 0.4}, models.GenreBoomBap},
		{"unknown", models.BeatCharacteristics{TempoBPM: 120, Energy: 0.2, SpectralComplexity: 0.2}, models.GenreUnknown},
	}

	for _, tc := range tests {
		if got := classifyGenre(tc.chars); got != tc.want {
			t.Errorf("%s: classified as %s, want %s", tc.name, got, tc.want)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
