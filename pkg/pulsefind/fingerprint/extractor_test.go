package fingerprint

import (
	"math"
	"strings"
	"testing"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// synthSample builds a deterministic test signal: a 220 Hz tone with a
// slow amplitude sweep so band energies actually change between windows.
func synthSample(seconds float64, sampleRate int) *models.AudioSample {
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		env := 0.5 + 0.5*math.Sin(2*math.Pi*0.5*t)
		samples[i] = env * math.Sin(2*math.Pi*220*t)
	}
	return &models.AudioSample{Samples: samples, SampleRate: sampleRate, ByteLen: n * 2}
}

func TestExtractDeterminism(t *testing.T) {
	sample := synthSample(3.0, 11025)

	first, err := Extract(sample)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	second, err := Extract(sample)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if first.Binary != second.Binary {
		t.Error("binary fingerprints differ across runs on identical input")
	}
	if first.QuickHash != second.QuickHash {
		t.Error("quick hashes differ across runs on identical input")
	}
	if StoreKey(first) != StoreKey(second) {
		t.Error("store keys differ across runs on identical input")
	}
}

func TestExtractEmptySample(t *testing.T) {
	if _, err := Extract(&models.AudioSample{}); err == nil {
		t.Error("expected error for empty sample")
	}
}

func TestBinaryFingerprintShape(t *testing.T) {
	sample := synthSample(3.0, 11025)

	fp := BinaryFingerprint(sample.Samples)
	if fp == "" {
		t.Fatal("no binary fingerprint produced")
	}
	if len(fp)%8 != 0 {
		t.Errorf("fingerprint length %d is not a multiple of 8 hex chars", len(fp))
	}

	windows := (len(sample.Samples)-BinaryWindowSize)/BinaryHopSize + 1
	wantCodes := windows - 1 // first window has no predecessor
	if got := len(fp) / 8; got != wantCodes {
		t.Errorf("expected %d codes, got %d", wantCodes, got)
	}

	for _, r := range fp {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("non-hex rune %q in fingerprint", r)
		}
	}
}

func TestBinaryFingerprintShortInput(t *testing.T) {
	if fp := BinaryFingerprint(make([]float64, BinaryWindowSize-1)); fp != "" {
		t.Errorf("expected empty fingerprint for short input, got %d chars", len(fp))
	}
}

func TestQuickHashFormat(t *testing.T) {
	sample := synthSample(2.0, 11025)

	qh := QuickHash(sample.Samples)
	if qh == "" {
		t.Fatal("no quick hash produced")
	}

	parts := strings.Split(qh, "|")
	if len(parts) != QuickHashPoints {
		t.Errorf("expected %d quick hash points, got %d", QuickHashPoints, len(parts))
	}
}

func TestSpectralFeaturesShape(t *testing.T) {
	sample := synthSample(2.0, 11025)

	features := SpectralFeatures(sample.Samples)
	if len(features) == 0 {
		t.Fatal("no spectral features produced")
	}
	for i, frame := range features {
		if len(frame) != SpectralCoeffs {
			t.Fatalf("frame %d has %d coefficients, want %d", i, len(frame), SpectralCoeffs)
		}
	}
}
