package similarity

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsfit/internal/errors"
)

var corpus = []string{
	"python developer",
	"java developer",
	"python data",
}

func TestFitVocabulary(t *testing.T) {
	tests := []struct {
		name      string
		opts      FitOptions
		wantTerms []string
	}{
		{"defaults", FitOptions{}, []string{"data", "developer", "java", "python"}},
		{"min df", FitOptions{MinDF: 2}, []string{"developer", "python"}},
		{"max features", FitOptions{MaxFeatures: 2}, []string{"developer", "python"}},
		{"max features tie broken alphabetically", FitOptions{MaxFeatures: 3}, []string{"data", "developer", "python"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Fit(corpus, tt.opts)
			require.NoError(t, err)
			require.Equal(t, len(tt.wantTerms), m.Size())
			for i, term := range tt.wantTerms {
				assert.Equal(t, i, m.vocabulary[term], term)
			}
			assert.Equal(t, 3, m.Documents())
		})
	}
}

func TestFitSmoothIDF(t *testing.T) {
	m, err := Fit(corpus, FitOptions{})
	require.NoError(t, err)

	assert.InDelta(t, math.Log(4.0/3.0)+1, m.idf[m.vocabulary["python"]], 1e-12)
	assert.InDelta(t, math.Log(2.0)+1, m.idf[m.vocabulary["java"]], 1e-12)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(nil, FitOptions{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingInput))

	_, err = Fit([]string{"a b c"}, FitOptions{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}

func TestTransform(t *testing.T) {
	m, err := Fit(corpus, FitOptions{})
	require.NoError(t, err)

	v := m.Transform("python developer developer x")
	require.Equal(t, 2, v.Len())
	assert.True(t, slices.IsSorted(v.Indices))

	py := m.idf[m.vocabulary["python"]]
	dev := 2 * m.idf[m.vocabulary["developer"]]
	norm := math.Sqrt(py*py + dev*dev)
	assert.InDelta(t, py/norm, v.At(m.vocabulary["python"]), 1e-12)
	assert.InDelta(t, dev/norm, v.At(m.vocabulary["developer"]), 1e-12)
	assert.Zero(t, v.At(m.vocabulary["java"]))

	assert.Zero(t, m.Transform("rust golang").Len())

	dense := m.Dense("java")
	assert.Equal(t, []float64{0, 0, 1, 0}, dense)
}

func TestLexical(t *testing.T) {
	m, err := Fit(corpus, FitOptions{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		resume string
		jd     string
		want   float64
	}{
		{"identical", "python developer", "python developer", 1},
		{"disjoint", "java", "python", 0},
		{"unknown terms", "rust", "python", 0},
		{"empty", "", "python", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Lexical(m, tt.resume, tt.jd), 1e-12)
		})
	}

	py := m.idf[m.vocabulary["python"]]
	data := m.idf[m.vocabulary["data"]]
	want := (1 / math.Sqrt2) * py / math.Sqrt(py*py+data*data)
	assert.InDelta(t, want, Lexical(m, "python developer", "python data"), 1e-12)
}

func TestCosine(t *testing.T) {
	a := Vector{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}}
	b := Vector{Indices: []int{2, 3, 5}, Values: []float64{4, 1, 1}}

	want := (2*4 + 3*1) / (math.Sqrt(14) * math.Sqrt(18))
	assert.InDelta(t, want, Cosine(a, b), 1e-12)
	assert.InDelta(t, want, Cosine(b, a), 1e-12)
	assert.Zero(t, Cosine(a, Vector{}))
}

// randomText draws n words from a vocabulary of size terms
func randomText(rng *rand.Rand, n, size int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("term%d", rng.IntN(size))
	}
	return strings.Join(words, " ")
}

func TestLexicalIsBitIdentical(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	docs := make([]string, 50)
	for i := range docs {
		docs[i] = randomText(rng, 200, 400)
	}
	m, err := Fit(docs, FitOptions{})
	require.NoError(t, err)
	require.Greater(t, m.Size(), 300)

	resume, jd := randomText(rng, 500, 400), randomText(rng, 500, 400)
	want := math.Float64bits(Lexical(m, resume, jd))
	wantDense := m.Dense(resume)

	for range 300 {
		require.Equal(t, want, math.Float64bits(Lexical(m, resume, jd)))
		require.Equal(t, wantDense, m.Dense(resume))
	}
}

func TestSaveAndLoad(t *testing.T) {
	m, err := Fit(corpus, FitOptions{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tfidf.json")
	require.NoError(t, m.Save(path))

	loaded, err := LoadTFIDF(path)
	require.NoError(t, err)
	assert.Equal(t, m.Transform("python data java"), loaded.Transform("python data java"))
	assert.Equal(t, m.Documents(), loaded.Documents())
}

func TestLoadTFIDFErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTFIDF(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"vocabulary":{"go":0,"rust":1},"idf":[1.0]}`), 0o600))
	_, err = LoadTFIDF(bad)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelLoadFailed))

	outOfRange := filepath.Join(dir, "range.json")
	require.NoError(t, os.WriteFile(outOfRange, []byte(`{"vocabulary":{"go":3},"idf":[1.0]}`), 0o600))
	_, err = LoadTFIDF(outOfRange)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelLoadFailed))
}

func TestCosineDense(t *testing.T) {
	got, err := CosineDense([]float64{1, 2}, []float64{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	got, err = CosineDense([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)

	got, err = CosineDense([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = CosineDense([]float64{1}, []float64{1, 2})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDimensionMismatch))
}
