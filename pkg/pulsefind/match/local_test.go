package match

import (
	"strings"
	"testing"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

func storedEntry(title, binary string) models.StoredSong {
	return models.StoredSong{
		ID:     title,
		Title:  title,
		Artist: "Test Artist",
		Binary: binary,
	}
}

func TestMatchLocalExactHit(t *testing.T) {
	binary := "deadbeef0badc0de12345678"
	record := &models.FingerprintRecord{Binary: binary}
	entries := []models.StoredSong{storedEntry("Cached Song", binary)}

	hits, hit := MatchLocal(record, entries, 85, models.ModeStrict)
	if !hit {
		t.Fatal("expected a cache hit for an identical fingerprint")
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	got := hits[0]
	if got.Confidence != 100 {
		t.Errorf("confidence = %d, want 100", got.Confidence)
	}
	if !got.Cached {
		t.Error("hit not marked cached")
	}
	if len(got.Sources) != 1 || got.Sources[0].Name != LocalSourceName || got.Sources[0].Kind != models.SourceLocal {
		t.Errorf("unexpected sources: %+v", got.Sources)
	}
}

func TestMatchLocalBelowThreshold(t *testing.T) {
	record := &models.FingerprintRecord{Binary: "00000000000000000000000000000000"}
	entries := []models.StoredSong{storedEntry("Far Away", "ffffffffffffffffffffffffffffffff")}

	hits, hit := MatchLocal(record, entries, 85, models.ModeStrict)
	if hit || len(hits) != 0 {
		t.Errorf("expected no hits for an inverted fingerprint, got %d", len(hits))
	}
}

func TestMatchLocalLooseISRCFloor(t *testing.T) {
	// 8 chunks, 2 fully inverted: similarity 0.75. That clears the fixed
	// 0.70 loose ISRC floor but not a 0.80 adaptive cutoff.
	base := strings.Repeat("00000000", 8)
	variant := strings.Repeat("ffffffff", 2) + strings.Repeat("00000000", 6)

	withISRC := storedEntry("Tagged", variant)
	withISRC.ISRC = "USRC12345678"
	withoutISRC := storedEntry("Untagged", variant)

	record := &models.FingerprintRecord{Binary: base}

	hits, _ := MatchLocal(record, []models.StoredSong{withISRC, withoutISRC}, 80, models.ModeLoose)
	if len(hits) != 1 {
		t.Fatalf("expected only the ISRC-tagged entry to hit, got %d hits", len(hits))
	}
	if hits[0].Title != "Tagged" {
		t.Errorf("wrong entry hit: %q", hits[0].Title)
	}

	// In strict mode the fixed ISRC floor does not apply.
	hits, _ = MatchLocal(record, []models.StoredSong{withISRC}, 80, models.ModeStrict)
	if len(hits) != 0 {
		t.Error("strict mode should not use the loose ISRC floor")
	}
}

func TestMatchLocalQuickHashShortCircuit(t *testing.T) {
	// Binaries are fully inverted, but equal quick hashes mean the same
	// audio bytes and win outright.
	record := &models.FingerprintRecord{
		Binary:    strings.Repeat("00000000", 4),
		QuickHash: "12|34|56",
	}
	entry := storedEntry("Same Upload", strings.Repeat("ffffffff", 4))
	entry.QuickHash = "12|34|56"

	hits, hit := MatchLocal(record, []models.StoredSong{entry}, 85, models.ModeStrict)
	if !hit || len(hits) != 1 {
		t.Fatalf("expected the quick-hash match to hit, got %d hits", len(hits))
	}
	if hits[0].Confidence != 100 {
		t.Errorf("confidence = %d, want 100", hits[0].Confidence)
	}

	// An empty quick hash on either side must never short-circuit.
	entry.QuickHash = ""
	if _, hit := MatchLocal(record, []models.StoredSong{entry}, 85, models.ModeStrict); hit {
		t.Error("inverted binary with no quick hash should not hit")
	}
}

func TestMatchLocalBlendsSpectralCosine(t *testing.T) {
	binary := strings.Repeat("deadbeef", 4)
	record := &models.FingerprintRecord{
		Binary:           binary,
		SpectralFeatures: [][]float64{{1, 0}},
	}

	// Identical binary but orthogonal spectral features: the cosine term
	// contributes 0, so the blend lands at the Hamming weight.
	entry := storedEntry("Spectral Mismatch", binary)
	entry.SpectralFeatures = [][]float64{{0, 1}}

	hits, hit := MatchLocal(record, []models.StoredSong{entry}, 60, models.ModeLoose)
	if !hit || len(hits) != 1 {
		t.Fatalf("expected one blended hit, got %d", len(hits))
	}
	if hits[0].Confidence != 70 {
		t.Errorf("confidence = %d, want 70 (hamming weight of an exact bit match)", hits[0].Confidence)
	}

	// Aligned features restore the full score.
	entry.SpectralFeatures = [][]float64{{1, 0}}
	hits, _ = MatchLocal(record, []models.StoredSong{entry}, 85, models.ModeStrict)
	if len(hits) != 1 || hits[0].Confidence != 100 {
		t.Fatalf("aligned features: got %+v, want one hit at confidence 100", hits)
	}

	// An entry without stored features falls back to pure Hamming.
	entry.SpectralFeatures = nil
	hits, _ = MatchLocal(record, []models.StoredSong{entry}, 85, models.ModeStrict)
	if len(hits) != 1 || hits[0].Confidence != 100 {
		t.Fatalf("missing features: got %+v, want one pure-Hamming hit at 100", hits)
	}
}

func TestMatchLocalEmptyRecord(t *testing.T) {
	if _, hit := MatchLocal(nil, nil, 85, models.ModeStrict); hit {
		t.Error("nil record should never hit")
	}
	if _, hit := MatchLocal(&models.FingerprintRecord{}, nil, 85, models.ModeStrict); hit {
		t.Error("empty fingerprint should never hit")
	}
}
