package match

import (
	"sort"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// MaxResults caps the final ranked list.
const MaxResults = 99

// Score computes a candidate's ranking score. The source-count term
// dominates: a match confirmed by two services outranks any single-source
// match no matter its confidence or popularity.
func Score(cand models.MatchCandidate) float64 {
	return float64(len(cand.Sources))*1000 +
		float64(cand.Confidence)*10 +
		float64(cand.Popularity)/100
}

// Rank orders candidates by descending score with a stable sort, so equal
// scores keep their discovery order. Segment priority breaks score ties
// before discovery order. The result is capped at MaxResults.
func Rank(candidates []models.MatchCandidate, segmentPriorities map[string]models.Priority) []models.MatchCandidate {
	ranked := make([]models.MatchCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Score(ranked[i]), Score(ranked[j])
		if si != sj {
			return si > sj
		}
		return priorityRank(ranked[i], segmentPriorities) > priorityRank(ranked[j], segmentPriorities)
	})

	if len(ranked) > MaxResults {
		ranked = ranked[:MaxResults]
	}
	return ranked
}

func priorityRank(cand models.MatchCandidate, priorities map[string]models.Priority) int {
	switch priorities[cand.SegmentLabel] {
	case models.PriorityHigh:
		return 3
	case models.PriorityMedium:
		return 2
	case models.PriorityLow:
		return 1
	default:
		return 0
	}
}
