package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only stopwords", "The and of a", ""},
		{"html and punctuation", "<p>Built APIs, in Go!</p>", "built apis go"},
		{"plural nouns", "Managed databases and clusters for teams", "managed database cluster team"},
		{"digits removed", "5 years Python3", "year python"},
		{"irregular plural", "Mentored children and women", "mentored child woman"},
		{"ies rule", "Delivered technologies", "delivered technology"},
		{"sibilant plural", "Wrote scripts for boxes and classes", "wrote script box class"},
		{"keeps us and is endings", "status analysis", "status analysis"},
		{"unknown terms unchanged", "Kubernetes, Jenkins and DevOps", "kubernetes jenkins devops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Senior engineer with 7+ years building distributed systems.",
		"<div>Docker, Kubernetes & AWS</div>",
		"Led teams of engineers across projects",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestLemmatize(t *testing.T) {
	tests := map[string]string{
		"skills":     "skill",
		"companies":  "company",
		"processes":  "process",
		"matches":    "match",
		"wishes":     "wish",
		"leaves":     "leaf",
		"gas":        "gas",
		"boss":       "boss",
		"campus":     "campus",
		"basis":      "basis",
		"python":     "python",
		"data":       "data",
		"caches":     "cache",
		"hypotheses": "hypothesis",
		"teams":      "team",
		"glasses":    "glass",
		"managed":    "managed",
		"working":    "working",

		// outside the dictionary or singular already
		"kubernetes":  "kubernetes",
		"jenkins":     "jenkins",
		"devops":      "devops",
		"postgres":    "postgres",
		"mathematics": "mathematics",
		"analytics":   "analytics",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Lemmatize(in))
		})
	}
}

func BenchmarkNormalize(b *testing.B) {
	text := "<h1>Jane Doe</h1> Senior backend engineer with 8 years of experience " +
		"designing APIs, managing PostgreSQL databases and mentoring teams."
	for b.Loop() {
		Normalize(text)
	}
}
