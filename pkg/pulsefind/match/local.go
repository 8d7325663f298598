package match

import (
	"math"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/fingerprint"
)

// LocalSourceName identifies candidates served from the fingerprint store.
const LocalSourceName = "Local"

// looseISRCSimilarity is the fixed local-cache floor applied in loose mode
// to entries carrying an ISRC. It is a separate system from the adaptive
// strict/loose thresholds used for external results and is deliberately not
// unified with them.
const looseISRCSimilarity = 0.70

// hammingWeight sets the blend between the bit-level Hamming score and the
// spectral cosine score when both sides carry spectral features.
const hammingWeight = 0.7

// MatchLocal compares a fresh fingerprint against every stored entry. Equal
// quick hashes short-circuit to a perfect score; otherwise the score is
// Hamming similarity over the shared bit length, blended with spectral
// cosine similarity when both sides carry features. Any entry at or above
// the similarity floor becomes a cached candidate. The second return
// reports whether the fast path hit at all.
func MatchLocal(record *models.FingerprintRecord, entries []models.StoredSong, activeThreshold int, mode models.MatchingMode) ([]models.MatchCandidate, bool) {
	if record == nil || record.Binary == "" {
		return nil, false
	}

	floor := float64(activeThreshold) / 100.0

	var hits []models.MatchCandidate
	for _, entry := range entries {
		if entry.Binary == "" {
			continue
		}

		similarity := localSimilarity(record, entry)

		entryFloor := floor
		if mode == models.ModeLoose && entry.ISRC != "" {
			entryFloor = looseISRCSimilarity
		}
		if similarity < entryFloor {
			continue
		}

		confidence := int(math.Round(similarity * 100))
		hits = append(hits, models.MatchCandidate{
			Title:        entry.Title,
			Artist:       entry.Artist,
			Album:        entry.Album,
			Confidence:   confidence,
			ISRC:         entry.ISRC,
			PlatformIDs:  entry.PlatformIDs,
			MatchQuality: models.QualityForConfidence(confidence),
			Cached:       true,
			Popularity:   entry.Popularity,
			Sources: []models.Source{
				{Kind: models.SourceLocal, Name: LocalSourceName},
			},
		})
	}

	return hits, len(hits) > 0
}

// localSimilarity scores one stored entry against the fresh fingerprint.
// The quick hash is a coarse content digest, so equality means byte-identical
// audio and skips the per-bit comparison entirely.
func localSimilarity(record *models.FingerprintRecord, entry models.StoredSong) float64 {
	if record.QuickHash != "" && record.QuickHash == entry.QuickHash {
		return 1.0
	}

	hamming := fingerprint.HammingSimilarity(record.Binary, entry.Binary)
	if len(record.SpectralFeatures) == 0 || len(entry.SpectralFeatures) == 0 {
		return hamming
	}

	cosine := fingerprint.CosineSimilarity(record.SpectralFeatures, entry.SpectralFeatures)
	return hammingWeight*hamming + (1-hammingWeight)*cosine
}
