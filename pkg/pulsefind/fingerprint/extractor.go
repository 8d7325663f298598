package fingerprint

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/cmplx"
	"strings"

	"github.com/mjibson/go-dsp/fft"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// Tunables for the three fingerprint layers.
const (
	// Binary fingerprint: band-rise codes over large windows.
	BinaryWindowSize = 4096
	BinaryHopSize    = 2048
	BinaryBands      = 32

	// Quick hash: coarse RMS profile.
	QuickHashPoints = 100
	quickHashWindow = 256

	// Spectral features: mel-like log-energy coefficients.
	SpectralWindowSize = 2048
	SpectralHopSize    = 512
	SpectralCoeffs     = 13

	energyEpsilon = 1e-10
)

// Extract derives the full FingerprintRecord for a sample. The computation
// is deterministic: the same input bytes always produce the same record.
func Extract(sample *models.AudioSample) (*models.FingerprintRecord, error) {
	if sample == nil || len(sample.Samples) == 0 {
		return nil, fmt.Errorf("empty audio sample")
	}

	return &models.FingerprintRecord{
		Binary:           BinaryFingerprint(sample.Samples),
		QuickHash:        QuickHash(sample.Samples),
		SpectralFeatures: SpectralFeatures(sample.Samples),
		DurationMs:       sample.DurationMs(),
	}, nil
}

// BinaryFingerprint encodes spectral-change patterns: for each analysis
// window the signal is split into 32 equal bands; bit b of a window's 32-bit
// code is set when band b's log energy rose relative to the previous window.
// Codes are concatenated as fixed-width hex. The encoding is robust to minor
// re-encoding because it tracks energy direction, not absolute level.
func BinaryFingerprint(samples []float64) string {
	if len(samples) < BinaryWindowSize {
		return ""
	}

	var sb strings.Builder
	var prev []float64
	for start := 0; start+BinaryWindowSize <= len(samples); start += BinaryHopSize {
		energies := bandEnergies(samples[start:start+BinaryWindowSize], BinaryBands)
		if prev != nil {
			var code uint32
			for b := 0; b < BinaryBands; b++ {
				if energies[b] > prev[b] {
					code |= 1 << uint(b)
				}
			}
			fmt.Fprintf(&sb, "%08x", code)
		}
		prev = energies
	}

	return sb.String()
}

// bandEnergies splits a window into n equal time slices and returns the
// log-compressed energy of each.
func bandEnergies(window []float64, n int) []float64 {
	bandLen := len(window) / n
	out := make([]float64, n)
	for b := 0; b < n; b++ {
		var sum float64
		for i := b * bandLen; i < (b+1)*bandLen; i++ {
			sum += window[i] * window[i]
		}
		out[b] = math.Log(sum + energyEpsilon)
	}
	return out
}

// QuickHash samples the signal at 100 evenly spaced points, takes a windowed
// RMS at each, quantizes it, and joins the values. It is a fast upsert key
// for the store, not a similarity metric.
func QuickHash(samples []float64) string {
	if len(samples) == 0 {
		return ""
	}

	step := len(samples) / QuickHashPoints
	if step < 1 {
		step = 1
	}

	parts := make([]string, 0, QuickHashPoints)
	for p := 0; p < QuickHashPoints; p++ {
		center := p * step
		if center >= len(samples) {
			break
		}
		end := center + quickHashWindow
		if end > len(samples) {
			end = len(samples)
		}
		rms := rootMeanSquare(samples[center:end])
		parts = append(parts, fmt.Sprintf("%d", int(math.Floor(rms*100))))
	}

	return strings.Join(parts, "|")
}

// SpectralFeatures computes 13 log-energy coefficients per frame over
// coarse mel-like frequency bands. They back cosine-similarity comparison,
// independent of the binary fingerprint.
func SpectralFeatures(samples []float64) [][]float64 {
	if len(samples) < SpectralWindowSize {
		return nil
	}

	features := make([][]float64, 0, 1+(len(samples)-SpectralWindowSize)/SpectralHopSize)
	for start := 0; start+SpectralWindowSize <= len(samples); start += SpectralHopSize {
		spectrum := fft.FFTReal(samples[start : start+SpectralWindowSize])
		half := len(spectrum) / 2
		mags := make([]float64, half)
		for i := 0; i < half; i++ {
			mags[i] = cmplx.Abs(spectrum[i])
		}
		features = append(features, melLikeCoefficients(mags, SpectralCoeffs))
	}

	return features
}

// melLikeCoefficients folds a magnitude spectrum into n log-energy bands
// whose widths grow toward high frequencies, mimicking mel spacing.
func melLikeCoefficients(mags []float64, n int) []float64 {
	coeffs := make([]float64, n)
	if len(mags) == 0 {
		return coeffs
	}

	// Exponentially spaced band edges over the bin range.
	edges := make([]int, n+1)
	for i := 0; i <= n; i++ {
		frac := float64(i) / float64(n)
		edges[i] = int(math.Round((math.Pow(2, frac*math.Log2(float64(len(mags)))) - 1)))
	}
	edges[n] = len(mags)

	for b := 0; b < n; b++ {
		lo, hi := edges[b], edges[b+1]
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(mags) {
			hi = len(mags)
		}
		var sum float64
		for i := lo; i < hi; i++ {
			sum += mags[i] * mags[i]
		}
		coeffs[b] = math.Log(sum + energyEpsilon)
	}

	return coeffs
}

// StoreKey derives the stable upsert key for a fingerprint record.
func StoreKey(record *models.FingerprintRecord) string {
	h := fnv.New64a()
	h.Write([]byte(record.QuickHash))
	return fmt.Sprintf("%016x", h.Sum64())
}

func rootMeanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
