package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimension matches the size of common small sentence encoders
const DefaultHashingDimension = 384

// Hashing is a deterministic signed feature-hashing embedder. Each lowercased
// word token adds +1 or -1 to one bucket chosen by its FNV-1a hash, and the
// result is l2-normalised.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing embedder; a non-positive dim uses the default
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	for _, word := range words {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(word))
		sum := hasher.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Name() string { return "hashing" }
