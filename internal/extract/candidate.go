package extract

import (
	"sort"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const maxConfidence = 100.0

func capConfidence(c float64) float64 {
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

// dedupe keeps the highest-confidence candidate per normalized key,
// preserving first-seen order among equals.
func dedupe[T any](in []models.Candidate[T], key func(T) string) []models.Candidate[T] {
	index := make(map[string]int, len(in))
	out := make([]models.Candidate[T], 0, len(in))
	for _, c := range in {
		k := key(c.Value)
		if i, ok := index[k]; ok {
			if c.Confidence > out[i].Confidence {
				out[i] = c
			}
			continue
		}
		index[k] = len(out)
		out = append(out, c)
	}
	return out
}

// rank sorts by descending confidence; tie breaks by less when given.
func rank[T any](in []models.Candidate[T], less func(a, b T) bool) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Confidence != in[j].Confidence {
			return in[i].Confidence > in[j].Confidence
		}
		if less != nil {
			return less(in[i].Value, in[j].Value)
		}
		return false
	})
}

// boundaryOK reports whether s[start:end] is not glued to the given neighbours.
func boundaryOK(s string, start, end int, badBefore, badAfter string) bool {
	if start > 0 && containsByte(badBefore, s[start-1]) {
		return false
	}
	if end < len(s) && containsByte(badAfter, s[end]) {
		return false
	}
	return true
}

// overlapsAny reports whether [start, end) intersects one of the spans.
func overlapsAny(spans [][]int, start, end int) bool {
	for _, sp := range spans {
		if start < sp[1] && sp[0] < end {
			return true
		}
	}
	return false
}

func containsByte(set string, c byte) bool {
	for i := 0; i < len(set); i++ {
		if set[i] == c {
			return true
		}
	}
	return false
}
