package similarity

import "math"

// SemanticWeight is the multiplier applied to cosine similarity to turn it
// into name-score points (§4.2).
const SemanticWeight = 5.0

// Cosine returns the cosine similarity of a and b. Mismatched lengths or
// either vector being empty/all-zero yields 0, matching the documented
// "empty inputs yield 0" edge case.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// WeightedNameScore is cosine(a,b) * SemanticWeight, the first term of the
// name score in §4.3.
func WeightedNameScore(a, b []float64) float64 {
	return Cosine(a, b) * SemanticWeight
}
