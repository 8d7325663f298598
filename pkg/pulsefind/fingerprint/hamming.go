package fingerprint

import (
	"math"
	"math/bits"
	"strconv"
)

// HammingSimilarity compares two hex-encoded binary fingerprints in 32-bit
// chunks over their shared length and returns 1 - differing/total bits.
// Identical fingerprints score 1.0; fully inverted fingerprints score 0.0.
func HammingSimilarity(a, b string) float64 {
	const chunkHex = 8 // one 32-bit code per 8 hex chars

	shared := len(a)
	if len(b) < shared {
		shared = len(b)
	}
	shared -= shared % chunkHex
	if shared == 0 {
		return 0
	}

	var differing, total int
	for i := 0; i < shared; i += chunkHex {
		ca, errA := strconv.ParseUint(a[i:i+chunkHex], 16, 32)
		cb, errB := strconv.ParseUint(b[i:i+chunkHex], 16, 32)
		if errA != nil || errB != nil {
			continue
		}
		differing += bits.OnesCount32(uint32(ca) ^ uint32(cb))
		total += 32
	}

	if total == 0 {
		return 0
	}
	return 1.0 - float64(differing)/float64(total)
}

// CosineSimilarity compares two spectral feature matrices by the cosine of
// their mean coefficient vectors. It is the fuzzy comparison path, separate
// from the bit-level Hamming comparison.
func CosineSimilarity(a, b [][]float64) float64 {
	va := meanVector(a)
	vb := meanVector(b)
	if va == nil || vb == nil || len(va) != len(vb) {
		return 0
	}

	var dot, na, nb float64
	for i := range va {
		dot += va[i] * vb[i]
		na += va[i] * va[i]
		nb += vb[i] * vb[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func meanVector(features [][]float64) []float64 {
	if len(features) == 0 {
		return nil
	}
	mean := make([]float64, len(features[0]))
	for _, frame := range features {
		for i, v := range frame {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(features))
	}
	return mean
}
