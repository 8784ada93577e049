package similarity

import (
	"fmt"
	"math"

	"atsfit/internal/errors"
)

// Cosine is the cosine similarity of two sparse vectors. A zero vector
// yields 0.
func Cosine(a, b Vector) float64 {
	var dot float64
	for i, j := 0, 0; i < len(a.Indices) && j < len(b.Indices); {
		switch {
		case a.Indices[i] < b.Indices[j]:
			i++
		case a.Indices[i] > b.Indices[j]:
			j++
		default:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		}
	}
	na, nb := sparseNorm(a), sparseNorm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func sparseNorm(v Vector) float64 {
	var sum float64
	for _, w := range v.Values {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Lexical compares two normalized texts under the shared model. The result
// lies in [0,1] since TF-IDF weights are non-negative.
func Lexical(model *TFIDF, resumeNormalized, jdNormalized string) float64 {
	return Cosine(model.Transform(resumeNormalized), model.Transform(jdNormalized))
}

// CosineDense is the cosine similarity of two dense vectors of equal length
func CosineDense(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.NewModelError(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector dimensions differ: %d vs %d", len(a), len(b)), nil)
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
