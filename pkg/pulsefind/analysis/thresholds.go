package analysis

import (
	"strings"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

const (
	baseStrict = 85
	baseLoose  = 40

	minStrict = 75
	maxStrict = 95
	minLoose  = 30
	maxLoose  = 60
)

// genreDeltas nudges both cutoffs by a fixed amount per detected genre.
// Drill beats reuse heavily sampled patterns, so both cutoffs rise; melodic
// beats vary more between releases, so they drop.
var genreDeltas = map[models.Genre][2]int{
	models.GenreTrap:    {+2, +5},
	models.GenreDrill:   {+3, +10},
	models.GenreMelodic: {-3, -5},
	models.GenreBoomBap: {+1, +2},
}

// thresholdRule is one ordered adjustment in the adaptive threshold table.
type thresholdRule struct {
	reason string
	fires  func(models.BeatCharacteristics) bool
	strict int
	loose  int
}

var thresholdRules = []thresholdRule{
	{
		reason: "high spectral complexity",
		fires:  func(c models.BeatCharacteristics) bool { return c.SpectralComplexity > 0.7 },
		strict: -3, loose: -5,
	},
	{
		reason: "low spectral complexity",
		fires:  func(c models.BeatCharacteristics) bool { return c.SpectralComplexity < 0.3 },
		strict: +2, loose: +3,
	},
	{
		reason: "high energy",
		fires:  func(c models.BeatCharacteristics) bool { return c.Energy > 0.8 },
		strict: -2, loose: -3,
	},
	{
		reason: "atypical tempo",
		fires:  func(c models.BeatCharacteristics) bool { return c.TempoBPM < 80 || c.TempoBPM > 160 },
		strict: -2, loose: -2,
	},
}

// ComputeThresholds converts beat characteristics into per-scan confidence
// cutoffs. All adjustments apply before clamping, and the explanation lists
// every rule that fired.
func ComputeThresholds(c models.BeatCharacteristics) models.AdaptiveThresholds {
	strict := baseStrict
	loose := baseLoose
	var fired []string

	if delta, ok := genreDeltas[c.Genre]; ok {
		strict += delta[0]
		loose += delta[1]
		fired = append(fired, string(c.Genre)+" genre adjustment")
	}

	for _, rule := range thresholdRules {
		if rule.fires(c) {
			strict += rule.strict
			loose += rule.loose
			fired = append(fired, rule.reason)
		}
	}

	strict = clampInt(strict, minStrict, maxStrict)
	loose = clampInt(loose, minLoose, maxLoose)

	explanation := "base thresholds"
	if len(fired) > 0 {
		explanation = "adjusted for: " + strings.Join(fired, ", ")
	}

	return models.AdaptiveThresholds{
		Strict:      strict,
		Loose:       loose,
		Explanation: explanation,
	}
}

// DefaultThresholds is the fallback when characteristics analysis fails.
func DefaultThresholds() models.AdaptiveThresholds {
	return models.AdaptiveThresholds{
		Strict:      baseStrict,
		Loose:       baseLoose,
		Explanation: "default thresholds (analysis unavailable)",
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
