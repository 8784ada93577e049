// Package classifier predicts a resume category with a linear one-vs-rest
// model exported from a LinearSVC-style trainer.
package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"atsfit/internal/errors"
)

// Linear holds per-class weights. With two classes a single weight row is
// stored, as scikit-learn does for binary problems.
type Linear struct {
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// LoadLinear reads and validates a JSON model
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrCodeFileNotReadable
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return nil, errors.NewIOError(code, "failed to read classifier", err).WithContext("file", path)
	}

	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewModelError(errors.ErrCodeModelLoadFailed, "invalid classifier model", err).
			WithContext("file", path)
	}
	if err := m.validate(); err != nil {
		return nil, errors.NewModelError(errors.ErrCodeModelLoadFailed, err.Error(), nil).WithContext("file", path)
	}
	return &m, nil
}

func (m *Linear) validate() error {
	if len(m.Classes) < 2 {
		return fmt.Errorf("classifier needs at least two classes, got %d", len(m.Classes))
	}
	rows := len(m.Classes)
	if rows == 2 {
		rows = 1
	}
	if len(m.Coef) != rows || len(m.Intercept) != rows {
		return fmt.Errorf("classifier with %d classes needs %d coef rows and intercepts, got %d and %d",
			len(m.Classes), rows, len(m.Coef), len(m.Intercept))
	}
	width := len(m.Coef[0])
	for i, row := range m.Coef {
		if len(row) != width {
			return fmt.Errorf("coef row %d has %d features, want %d", i, len(row), width)
		}
	}
	return nil
}

// Features is the number of inputs the model expects
func (m *Linear) Features() int {
	if len(m.Coef) == 0 {
		return 0
	}
	return len(m.Coef[0])
}

// Decision returns W·x+b for every weight row
func (m *Linear) Decision(features []float64) ([]float64, error) {
	if len(features) != m.Features() {
		return nil, errors.NewValidationError(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("classifier expects %d features, got %d", m.Features(), len(features)), nil)
	}
	out := make([]float64, len(m.Coef))
	for i, row := range m.Coef {
		sum := m.Intercept[i]
		for j, w := range row {
			sum += w * features[j]
		}
		out[i] = sum
	}
	return out, nil
}

// Predict returns the category label and the raw decision value behind it.
// The confidence is a margin, not a probability.
func (m *Linear) Predict(features []float64) (string, float64, error) {
	decision, err := m.Decision(features)
	if err != nil {
		return "", 0, err
	}

	if len(decision) == 1 {
		if decision[0] > 0 {
			return m.Classes[1], decision[0], nil
		}
		return m.Classes[0], decision[0], nil
	}

	best := 0
	for i := 1; i < len(decision); i++ {
		if decision[i] > decision[best] {
			best = i
		}
	}
	return m.Classes[best], decision[best], nil
}

// Hybrid concatenates the embedding and dense TF-IDF vectors in the order
// the classifier was trained on.
func Hybrid(embedding, tfidf []float64) []float64 {
	out := make([]float64, 0, len(embedding)+len(tfidf))
	out = append(out, embedding...)
	return append(out, tfidf...)
}
