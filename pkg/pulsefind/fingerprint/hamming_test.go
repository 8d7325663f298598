package fingerprint

import (
	"fmt"
	"strconv"
	"testing"
)

// flipBits returns a copy of the hex fingerprint with the first k bits
// inverted, one bit per 32-bit chunk, wrapping across chunks as needed.
func flipBits(fp string, k int) string {
	out := []byte(fp)
	chunks := len(fp) / 8
	for i := 0; i < k; i++ {
		chunk := i % chunks
		bit := uint(i/chunks) % 32
		prior, _ := strconv.ParseUint(string(out[chunk*8:chunk*8+8]), 16, 32)
		flipped := uint32(prior) ^ (1 << bit)
		copy(out[chunk*8:chunk*8+8], fmt.Sprintf("%08x", flipped))
	}
	return string(out)
}

func TestHammingSelfSimilarity(t *testing.T) {
	sample := synthSample(3.0, 11025)
	fp := BinaryFingerprint(sample.Samples)

	if sim := HammingSimilarity(fp, fp); sim != 1.0 {
		t.Errorf("self-similarity = %v, want 1.0", sim)
	}
}

func TestHammingMonotonicDegradation(t *testing.T) {
	sample := synthSample(4.0, 11025)
	fp := BinaryFingerprint(sample.Samples)

	prev := 1.0
	for _, k := range []int{1, 4, 16, 64, 128} {
		sim := HammingSimilarity(fp, flipBits(fp, k))
		if sim >= prev {
			t.Errorf("similarity did not strictly decrease at k=%d: %v >= %v", k, sim, prev)
		}
		prev = sim
	}
}

func TestHammingEmptyInputs(t *testing.T) {
	if sim := HammingSimilarity("", ""); sim != 0 {
		t.Errorf("similarity of empty fingerprints = %v, want 0", sim)
	}
	if sim := HammingSimilarity("00000000", ""); sim != 0 {
		t.Errorf("similarity against empty fingerprint = %v, want 0", sim)
	}
}

func TestHammingSharedLengthOnly(t *testing.T) {
	// Comparison covers only the shared chunk-aligned prefix; a longer
	// fingerprint with an identical prefix still scores 1.0.
	a := "deadbeef12345678"
	b := "deadbeef1234567800ff00ff"
	if sim := HammingSimilarity(a, b); sim != 1.0 {
		t.Errorf("shared-prefix similarity = %v, want 1.0", sim)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := [][]float64{{1, 2, 3}, {3, 2, 1}}
	if sim := CosineSimilarity(a, a); sim < 0.999 {
		t.Errorf("cosine self-similarity = %v, want ~1.0", sim)
	}

	opposite := [][]float64{{-2, -2, -2}}
	if sim := CosineSimilarity(a, opposite); sim >= 0 {
		t.Errorf("cosine similarity of opposed vectors = %v, want negative", sim)
	}

	if sim := CosineSimilarity(nil, a); sim != 0 {
		t.Errorf("cosine similarity with nil input = %v, want 0", sim)
	}
}
