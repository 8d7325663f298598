package match

import (
	"testing"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

func TestDeduplicateByISRC(t *testing.T) {
	raw := []models.MatchCandidate{
		{
			Title: "Suge", Artist: "DaBaby", Confidence: 60, ISRC: "USUM71900001",
			PlatformIDs: models.PlatformIDs{Spotify: "sp1"},
		},
		{
			Title: "Suge (Official)", Artist: "DaBaby", Confidence: 90, ISRC: "USUM71900001",
			PlatformIDs: models.PlatformIDs{YouTube: "yt1"},
		},
	}

	got := Deduplicate(raw)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate after ISRC dedup, got %d", len(got))
	}
	if got[0].Confidence != 90 {
		t.Errorf("kept confidence %d, want the higher 90", got[0].Confidence)
	}
	if got[0].PlatformIDs.Spotify != "sp1" || got[0].PlatformIDs.YouTube != "yt1" {
		t.Errorf("platform IDs not unioned: %+v", got[0].PlatformIDs)
	}
}

func TestDeduplicateByNormalizedIdentity(t *testing.T) {
	raw := []models.MatchCandidate{
		{Title: "The Box", Artist: "Roddy Ricch", Confidence: 60, SegmentLabel: "window-30pct"},
		{Title: "THE BOX (Official Audio)", Artist: "roddy ricch", Confidence: 90, SegmentLabel: "window-60pct"},
	}

	got := Deduplicate(raw)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate after identity dedup, got %d", len(got))
	}
	if got[0].Confidence != 90 {
		t.Errorf("kept confidence %d, want 90", got[0].Confidence)
	}
	if got[0].SegmentLabel != "window-60pct" {
		t.Errorf("segment label %q did not follow the winning duplicate", got[0].SegmentLabel)
	}
}

func TestDeduplicatePreservesDiscoveryOrder(t *testing.T) {
	raw := []models.MatchCandidate{
		{Title: "A", Artist: "X", Confidence: 50},
		{Title: "B", Artist: "Y", Confidence: 95},
		{Title: "A", Artist: "X", Confidence: 70},
	}

	got := Deduplicate(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Title != "A" || got[1].Title != "B" {
		t.Errorf("discovery order not preserved: %q then %q", got[0].Title, got[1].Title)
	}
	if got[0].Confidence != 70 {
		t.Errorf("duplicate did not raise confidence: %d", got[0].Confidence)
	}
}

func TestDeduplicateISRCBeforeIdentity(t *testing.T) {
	// Same identity, distinct ISRCs: the ISRC grouping wins and keeps both.
	raw := []models.MatchCandidate{
		{Title: "Intro", Artist: "Pop Smoke", Confidence: 80, ISRC: "ISRC1"},
		{Title: "Intro", Artist: "Pop Smoke", Confidence: 85, ISRC: "ISRC2"},
	}

	if got := Deduplicate(raw); len(got) != 2 {
		t.Errorf("expected distinct ISRCs to stay separate, got %d candidates", len(got))
	}
}

func TestFilterByThreshold(t *testing.T) {
	candidates := []models.MatchCandidate{
		{Title: "A", Confidence: 84},
		{Title: "B", Confidence: 85},
		{Title: "C", Confidence: 99},
	}

	got := FilterByThreshold(candidates, 85)
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(got))
	}
	for _, cand := range got {
		if cand.Confidence < 85 {
			t.Errorf("candidate %q below threshold survived", cand.Title)
		}
	}
}
