package skills

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"atsfit/internal/errors"
)

// Vocabulary groups recognised skill terms by category. Terms are matched
// in lowercase.
type Vocabulary struct {
	Categories map[string][]string `yaml:"categories"`
}

// DefaultVocabulary returns the built-in dictionary
func DefaultVocabulary() Vocabulary {
	return Vocabulary{Categories: map[string][]string{
		"programming": {"python", "java", "c++", "c#", "javascript", "typescript", "r", "sql", "nosql", "scala"},
		"data_ml":     {"machine learning", "deep learning", "nlp", "computer vision", "predictive analytics", "data mining"},
		"libraries":   {"pandas", "numpy", "matplotlib", "seaborn", "scikit-learn", "tensorflow", "pytorch"},
		"bi":          {"power bi", "tableau", "looker studio"},
		"cloud":       {"aws", "azure", "gcp", "snowflake", "databricks"},
		"databases":   {"mysql", "postgresql", "mongodb", "oracle"},
		"soft_skills": {"problem solving", "communication", "leadership"},
	}}
}

// Terms returns every distinct term in the vocabulary, sorted
func (v Vocabulary) Terms() []string {
	seen := make(map[string]struct{})
	for _, terms := range v.Categories {
		for _, t := range terms {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// LoadVocabulary reads a YAML vocabulary file of the form
//
//	categories:
//	  cloud: [aws, gcp]
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read skill vocabulary", err).
			WithContext("file", path)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, errors.NewValidationError(errors.ErrCodeInvalidFormat, "invalid skill vocabulary", err).
			WithContext("file", path)
	}
	if len(v.Terms()) == 0 {
		return Vocabulary{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("skill vocabulary %s defines no terms", path), nil)
	}
	return v, nil
}
