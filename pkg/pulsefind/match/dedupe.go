package match

import (
	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// Deduplicate collapses raw recognition candidates. Candidates sharing an
// ISRC collapse first; the survivors without an ISRC collapse by normalized
// title|artist. The kept entry is the highest-confidence one, carrying the
// union of the duplicates' platform IDs and sources. Discovery order of the
// kept entries is preserved.
func Deduplicate(candidates []models.MatchCandidate) []models.MatchCandidate {
	kept := make([]models.MatchCandidate, 0, len(candidates))
	byISRC := make(map[string]int)
	byIdentity := make(map[string]int)

	for _, cand := range candidates {
		var idx int
		var seen bool

		if cand.ISRC != "" {
			idx, seen = byISRC[cand.ISRC]
		} else {
			idx, seen = byIdentity[IdentityKey(cand.Title, cand.Artist)]
		}

		if !seen {
			kept = append(kept, cand)
			pos := len(kept) - 1
			if cand.ISRC != "" {
				byISRC[cand.ISRC] = pos
			} else {
				byIdentity[IdentityKey(cand.Title, cand.Artist)] = pos
			}
			continue
		}

		merge(&kept[idx], cand)
	}

	return kept
}

// merge folds a duplicate into the kept candidate: highest confidence wins
// the scalar fields, platform IDs and sources union.
func merge(kept *models.MatchCandidate, dup models.MatchCandidate) {
	if dup.Confidence > kept.Confidence {
		kept.Confidence = dup.Confidence
		kept.MatchQuality = dup.MatchQuality
		kept.SegmentLabel = dup.SegmentLabel
		if dup.Album != "" {
			kept.Album = dup.Album
		}
	}
	kept.PlatformIDs.Merge(dup.PlatformIDs)
	for _, src := range dup.Sources {
		kept.AddSource(src)
	}
	if kept.Popularity == 0 {
		kept.Popularity = dup.Popularity
	}
}

// FilterByThreshold drops every candidate below the active confidence
// cutoff. Anything filtered here is gone for good, not surfaced in a
// low-confidence tier.
func FilterByThreshold(candidates []models.MatchCandidate, activeThreshold int) []models.MatchCandidate {
	passed := make([]models.MatchCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Confidence >= activeThreshold {
			passed = append(passed, cand)
		}
	}
	return passed
}
