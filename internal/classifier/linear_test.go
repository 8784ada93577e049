package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsfit/internal/errors"
)

func TestPredictMulticlass(t *testing.T) {
	m := &Linear{
		Classes:   []string{"Data Science", "HR", "Java Developer"},
		Coef:      [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Intercept: []float64{0, 0.1, -0.2},
	}

	tests := []struct {
		name     string
		features []float64
		want     string
		conf     float64
	}{
		{"first class", []float64{2, 0, 0}, "Data Science", 2},
		{"intercept decides", []float64{0, 0, 0}, "HR", 0.1},
		{"last class", []float64{0, 0.5, 1.5}, "Java Developer", 1.3},
		{"all negative", []float64{-1, -1, -1}, "HR", -0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, conf, err := m.Predict(tt.features)
			require.NoError(t, err)
			assert.Equal(t, tt.want, label)
			assert.InDelta(t, tt.conf, conf, 1e-12)
		})
	}
}

func TestPredictBinary(t *testing.T) {
	m := &Linear{
		Classes:   []string{"reject", "accept"},
		Coef:      [][]float64{{1, -1}},
		Intercept: []float64{0},
	}

	label, conf, err := m.Predict([]float64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, "accept", label)
	assert.InDelta(t, 1.0, conf, 1e-12)

	label, _, err = m.Predict([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, "reject", label)
}

func TestPredictDimensionMismatch(t *testing.T) {
	m := &Linear{Classes: []string{"a", "b"}, Coef: [][]float64{{1}}, Intercept: []float64{0}}
	_, _, err := m.Predict([]float64{1, 2})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDimensionMismatch))
}

func TestHybrid(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Hybrid([]float64{1, 2}, []float64{3}))
	assert.Empty(t, Hybrid(nil, nil))
}

func TestLoadLinear(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	m, err := LoadLinear(write("ok.json", `{"classes":["a","b","c"],"coef":[[1],[2],[3]],"intercept":[0,0,0]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Features())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `classes: [a]`},
		{"one class", `{"classes":["a"],"coef":[[1]],"intercept":[0]}`},
		{"binary with two rows", `{"classes":["a","b"],"coef":[[1],[2]],"intercept":[0,0]}`},
		{"ragged rows", `{"classes":["a","b","c"],"coef":[[1],[2,3],[4]],"intercept":[0,0,0]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLinear(write(tt.name+".json", tt.body))
			assert.True(t, errors.HasCode(err, errors.ErrCodeModelLoadFailed))
		})
	}

	_, err = LoadLinear(filepath.Join(dir, "absent.json"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))
}
