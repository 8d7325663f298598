package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

const (
	NormalSegments = 4
	DeepSegments   = 8

	minSegmentBytes = 15 * 1024
	maxSegmentBytes = 30 * 1024
)

// Fallback scan positions as percentages of the file.
var (
	normalOffsets = []int{0, 30, 60, 85}
	deepOffsets   = []int{0, 10, 20, 35, 50, 65, 80, 90}
)

// PlanSegments partitions the audio into scan windows. The primary strategy
// picks one high-energy window per region of the file so coverage stays
// spread while informative sections are favored; if the sample cannot be
// analyzed it falls back to fixed percentage offsets. The first segment is
// always a full-length marker. Segment priority is a ranking tie-break
// downstream, never a filter.
func PlanSegments(sample *models.AudioSample, totalBytes int, deep bool) []models.AudioSegment {
	count := NormalSegments
	if deep {
		count = DeepSegments
	}

	if segments, ok := planByEnergy(sample, totalBytes, count); ok {
		return segments
	}
	return planFixed(totalBytes, count, deep)
}

// planByEnergy scores analysis cells across the file by energy and
// uniqueness, then picks the best cell per region.
func planByEnergy(sample *models.AudioSample, totalBytes int, count int) ([]models.AudioSegment, bool) {
	if sample == nil || totalBytes <= 0 {
		return nil, false
	}

	const cells = 40
	cellLen := len(sample.Samples) / cells
	if cellLen < 256 {
		return nil, false
	}

	energies := make([]float64, cells)
	var mean float64
	for i := 0; i < cells; i++ {
		energies[i] = frameRMS(sample.Samples[i*cellLen : (i+1)*cellLen])
		mean += energies[i]
	}
	mean /= cells
	if mean == 0 {
		return nil, false
	}

	uniqueness := make([]float64, cells)
	for i := range energies {
		uniqueness[i] = math.Abs(energies[i]-mean) / mean
	}

	segments := make([]models.AudioSegment, 0, count)
	segments = append(segments, models.AudioSegment{
		Offset:          0,
		LengthBytes:     totalBytes,
		Label:           "full",
		EstimatedEnergy: mean,
		Priority:        models.PriorityHigh,
	})

	// One region per remaining segment; take the strongest cell in each so
	// picks stay spread across 0-100%.
	regions := count - 1
	cellsPerRegion := cells / regions
	segLen := segmentLength(totalBytes)

	for r := 0; r < regions; r++ {
		lo := r * cellsPerRegion
		hi := lo + cellsPerRegion
		if r == regions-1 {
			hi = cells
		}

		best := lo
		bestScore := math.Inf(-1)
		for i := lo; i < hi; i++ {
			score := energies[i] + 0.5*uniqueness[i]*mean
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		offset := best * totalBytes / cells
		if offset+segLen > totalBytes {
			offset = totalBytes - segLen
			if offset < 0 {
				offset = 0
			}
		}

		segments = append(segments, models.AudioSegment{
			Offset:          offset,
			LengthBytes:     segLen,
			Label:           fmt.Sprintf("window-%dpct", best*100/cells),
			EstimatedEnergy: energies[best],
			Uniqueness:      uniqueness[best],
			Priority:        priorityForEnergy(energies[best], energies),
		})
	}

	return segments, true
}

// planFixed is the fallback strategy: fixed percentage offsets.
func planFixed(totalBytes int, count int, deep bool) []models.AudioSegment {
	offsets := normalOffsets
	if deep {
		offsets = deepOffsets
	}
	if totalBytes <= 0 {
		totalBytes = minSegmentBytes
	}

	segLen := segmentLength(totalBytes)
	segments := make([]models.AudioSegment, 0, count)
	for i, pct := range offsets {
		offset := totalBytes * pct / 100
		length := segLen
		label := fmt.Sprintf("fixed-%dpct", pct)
		priority := models.PriorityMedium

		if i == 0 {
			// Full-length marker segment.
			offset = 0
			length = totalBytes
			label = "full"
			priority = models.PriorityHigh
		} else if offset+length > totalBytes {
			offset = totalBytes - length
			if offset < 0 {
				offset = 0
				length = totalBytes
			}
		}

		segments = append(segments, models.AudioSegment{
			Offset:      offset,
			LengthBytes: length,
			Label:       label,
			Priority:    priority,
		})
	}

	return segments
}

func segmentLength(totalBytes int) int {
	segLen := totalBytes / 10
	if segLen < minSegmentBytes {
		segLen = minSegmentBytes
	}
	if segLen > maxSegmentBytes {
		segLen = maxSegmentBytes
	}
	if segLen > totalBytes {
		segLen = totalBytes
	}
	return segLen
}

// priorityForEnergy buckets a cell's energy against the distribution terciles.
func priorityForEnergy(energy float64, all []float64) models.Priority {
	sorted := make([]float64, len(all))
	copy(sorted, all)
	sort.Float64s(sorted)

	lowCut := sorted[len(sorted)/3]
	highCut := sorted[len(sorted)*2/3]

	switch {
	case energy >= highCut:
		return models.PriorityHigh
	case energy >= lowCut:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
