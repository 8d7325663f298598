package analysis

import (
	"fmt"
	"math"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

const (
	onsetFrameSize = 2048
	onsetHopSize   = 512

	complexityWindowSize = 2048
	complexityHopSize    = 1024
	complexityBands      = 32

	minTempoBPM = 60
	maxTempoBPM = 180
)

// Analyze derives the beat profile of a sample: tempo via onset-envelope
// autocorrelation, global energy, spectral complexity, and a genre hint.
func Analyze(sample *models.AudioSample) (models.BeatCharacteristics, error) {
	if sample == nil || len(sample.Samples) < onsetFrameSize*2 || sample.SampleRate <= 0 {
		return models.DefaultCharacteristics(), fmt.Errorf("sample too short for analysis")
	}

	tempo := estimateTempo(sample.Samples, sample.SampleRate)
	energy := clamp01(globalRMS(sample.Samples) * 10)
	complexity := spectralComplexity(sample.Samples)

	chars := models.BeatCharacteristics{
		TempoBPM:           tempo,
		Energy:             energy,
		SpectralComplexity: complexity,
	}
	chars.Genre = classifyGenre(chars)

	return chars, nil
}

// estimateTempo builds a per-frame RMS onset envelope and autocorrelates it
// over lags corresponding to 60-180 BPM; the strongest lag wins.
func estimateTempo(samples []float64, sampleRate int) int {
	envelope := onsetEnvelope(samples)
	if len(envelope) < 4 {
		return models.DefaultCharacteristics().TempoBPM
	}

	framesPerSecond := float64(sampleRate) / float64(onsetHopSize)
	minLag := int(framesPerSecond * 60.0 / maxTempoBPM)
	maxLag := int(framesPerSecond * 60.0 / minTempoBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if maxLag <= minLag {
		return models.DefaultCharacteristics().TempoBPM
	}

	bestLag, bestScore := minLag, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := 0; i+lag < len(envelope); i++ {
			score += envelope[i] * envelope[i+lag]
		}
		score /= float64(len(envelope) - lag)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	bpm := int(math.Round(framesPerSecond * 60.0 / float64(bestLag)))
	if bpm < minTempoBPM {
		bpm = minTempoBPM
	}
	if bpm > maxTempoBPM {
		bpm = maxTempoBPM
	}
	return bpm
}

func onsetEnvelope(samples []float64) []float64 {
	envelope := make([]float64, 0, len(samples)/onsetHopSize)
	for start := 0; start+onsetFrameSize <= len(samples); start += onsetHopSize {
		envelope = append(envelope, frameRMS(samples[start:start+onsetFrameSize]))
	}
	return envelope
}

// spectralComplexity is the mean, over time, of the variance of per-window
// band-energy shares. Layered production spreads energy unevenly across
// bands, which shows up as high variance.
func spectralComplexity(samples []float64) float64 {
	var total float64
	var windows int

	for start := 0; start+complexityWindowSize <= len(samples); start += complexityHopSize {
		window := samples[start : start+complexityWindowSize]
		bandLen := complexityWindowSize / complexityBands

		shares := make([]float64, complexityBands)
		var windowEnergy float64
		for b := 0; b < complexityBands; b++ {
			var sum float64
			for i := b * bandLen; i < (b+1)*bandLen; i++ {
				sum += window[i] * window[i]
			}
			shares[b] = sum
			windowEnergy += sum
		}
		if windowEnergy == 0 {
			continue
		}

		var mean float64
		for b := range shares {
			shares[b] /= windowEnergy
			mean += shares[b]
		}
		mean /= complexityBands

		var variance float64
		for _, s := range shares {
			variance += (s - mean) * (s - mean)
		}
		variance /= complexityBands

		total += variance
		windows++
	}

	if windows == 0 {
		return 0
	}
	// A one-hot band distribution has variance ~1/bands; scale so the
	// score lands in [0,1].
	return clamp01(total / float64(windows) * complexityBands)
}

// genreRule is one ordered entry in the genre classification table.
// The first rule whose predicate fires wins.
type genreRule struct {
	genre models.Genre
	match func(models.BeatCharacteristics) bool
}

var genreRules = []genreRule{
	{models.GenreTrap, func(c models.BeatCharacteristics) bool {
		return c.TempoBPM >= 130 && c.TempoBPM <= 150 && c.Energy > 0.5
	}},
	{models.GenreDrill, func(c models.BeatCharacteristics) bool {
		return c.TempoBPM >= 140 && c.TempoBPM <= 155 && c.Energy > 0.6 && c.SpectralComplexity > 0.6
	}},
	{models.GenreMelodic, func(c models.BeatCharacteristics) bool {
		return c.SpectralComplexity > 0.7
	}},
	{models.GenreBoomBap, func(c models.BeatCharacteristics) bool {
		return c.TempoBPM >= 85 && c.TempoBPM <= 100 && c.Energy > 0.4 && c.Energy < 0.7
	}},
}

func classifyGenre(c models.BeatCharacteristics) models.Genre {
	for _, rule := range genreRules {
		if rule.match(c) {
			return rule.genre
		}
	}
	return models.GenreUnknown
}

func globalRMS(samples []float64) float64 {
	return frameRMS(samples)
}

func frameRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
