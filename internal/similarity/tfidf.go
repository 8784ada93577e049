// Package similarity implements the lexical TF-IDF model and the cosine
// measures used for resume to job description comparison.
package similarity

import (
	"encoding/json"
	"fmt"
	"math"
	"maps"
	"os"
	"slices"
	"sort"
	"strings"

	"atsfit/internal/errors"
)

// Vector is a sparse term-weight vector. Indices are vocabulary indices in
// ascending order and Values holds the weight at the same position.
type Vector struct {
	Indices []int
	Values  []float64
}

// Len is the number of non-zero weights
func (v Vector) Len() int {
	return len(v.Indices)
}

// At returns the weight of vocabulary index idx, or 0 when absent
func (v Vector) At(idx int) float64 {
	if i, ok := slices.BinarySearch(v.Indices, idx); ok {
		return v.Values[i]
	}
	return 0
}

// TFIDF is a fitted term-weighting model. It follows scikit-learn's
// TfidfVectorizer defaults: raw counts, smoothed idf and l2 normalisation.
// A fitted model is read-only and safe for concurrent use.
type TFIDF struct {
	vocabulary map[string]int
	idf        []float64
	documents  int
}

// FitOptions bounds the vocabulary of a fitted model
type FitOptions struct {
	// MinDF drops terms that appear in fewer documents. Values below 1 mean 1.
	MinDF int
	// MaxFeatures keeps the most frequent terms across the corpus. Zero keeps all.
	MaxFeatures int
}

type modelFile struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Documents  int            `json:"documents"`
}

// analyze splits normalized text into terms of two or more characters
func analyze(normalized string) []string {
	fields := strings.Fields(normalized)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// Fit learns a vocabulary and idf weights from normalized documents
func Fit(docs []string, opts FitOptions) (*TFIDF, error) {
	if len(docs) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, "cannot fit tf-idf on an empty corpus", nil)
	}
	minDF := max(opts.MinDF, 1)

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range analyze(doc) {
			tf[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term, n := range df {
		if n >= minDF {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("no term reaches min_df=%d", minDF), nil)
	}

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	model := &TFIDF{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		documents:  len(docs),
	}
	for i, term := range terms {
		model.vocabulary[term] = i
		model.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return model, nil
}

// Size is the number of features
func (m *TFIDF) Size() int {
	return len(m.idf)
}

// Documents is the number of documents the model was fitted on
func (m *TFIDF) Documents() int {
	return m.documents
}

// Transform maps normalized text to an l2-normalised sparse vector. Terms
// outside the vocabulary are ignored. Weights are summed in index order so
// repeated calls give bit-identical vectors.
func (m *TFIDF) Transform(normalized string) Vector {
	counts := make(map[int]float64)
	for _, term := range analyze(normalized) {
		if idx, ok := m.vocabulary[term]; ok {
			counts[idx]++
		}
	}

	v := Vector{Indices: slices.Sorted(maps.Keys(counts))}
	v.Values = make([]float64, len(v.Indices))
	var norm float64
	for i, idx := range v.Indices {
		w := counts[idx] * m.idf[idx]
		v.Values[i] = w
		norm += w * w
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v.Values {
		v.Values[i] /= norm
	}
	return v
}

// Dense is Transform expanded to a slice of Size() values
func (m *TFIDF) Dense(normalized string) []float64 {
	out := make([]float64, m.Size())
	v := m.Transform(normalized)
	for i, idx := range v.Indices {
		out[idx] = v.Values[i]
	}
	return out
}

// Save writes the model as JSON
func (m *TFIDF) Save(path string) error {
	data, err := json.Marshal(modelFile{
		Vocabulary: m.vocabulary,
		IDF:        m.idf,
		Documents:  m.documents,
	})
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeEncodeFailed, "failed to encode tf-idf model", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed, "failed to write tf-idf model", err).
			WithContext("file", path)
	}
	return nil
}

// LoadTFIDF reads a model written by Save
func LoadTFIDF(path string) (*TFIDF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrCodeFileNotReadable
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return nil, errors.NewIOError(code, "failed to read tf-idf model", err).WithContext("file", path)
	}

	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.NewModelError(errors.ErrCodeModelLoadFailed, "invalid tf-idf model", err).
			WithContext("file", path)
	}
	if len(f.Vocabulary) != len(f.IDF) {
		return nil, errors.NewModelError(errors.ErrCodeModelLoadFailed,
			fmt.Sprintf("tf-idf vocabulary has %d terms but %d idf weights", len(f.Vocabulary), len(f.IDF)), nil)
	}
	for term, idx := range f.Vocabulary {
		if idx < 0 || idx >= len(f.IDF) {
			return nil, errors.NewModelError(errors.ErrCodeModelLoadFailed,
				fmt.Sprintf("tf-idf term %q has out of range index %d", term, idx), nil)
		}
	}

	return &TFIDF{vocabulary: f.Vocabulary, idf: f.IDF, documents: f.Documents}, nil
}
