// Package skills finds known skill terms in free text by dictionary lookup.
package skills

import (
	"math"
	"sort"
	"strings"
)

// Matcher extracts vocabulary terms from text. It is immutable and safe for
// concurrent use.
type Matcher struct {
	terms        []string
	wordBoundary bool
}

// Option configures a Matcher
type Option func(*Matcher)

// WithWordBoundary requires a match to be delimited by characters outside
// [a-z0-9+#]. The default is plain substring matching, under which short
// terms such as "r" hit inside unrelated words.
func WithWordBoundary(enabled bool) Option {
	return func(m *Matcher) {
		m.wordBoundary = enabled
	}
}

// NewMatcher builds a Matcher over the vocabulary
func NewMatcher(vocab Vocabulary, opts ...Option) *Matcher {
	terms := vocab.Terms()
	for i, t := range terms {
		terms[i] = strings.ToLower(t)
	}
	m := &Matcher{terms: terms}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Extract returns the sorted, deduplicated vocabulary terms found in text
func (m *Matcher) Extract(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	seen := make(map[string]struct{})
	for _, term := range m.terms {
		if _, dup := seen[term]; dup {
			continue
		}
		if m.contains(lower, term) {
			seen[term] = struct{}{}
			found = append(found, term)
		}
	}
	sort.Strings(found)
	return found
}

func (m *Matcher) contains(text, term string) bool {
	if !m.wordBoundary {
		return strings.Contains(text, term)
	}
	for offset := 0; offset <= len(text)-len(term); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if (start == 0 || !isTermChar(text[start-1])) && (end == len(text) || !isTermChar(text[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isTermChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '+' || c == '#'
}

// MatchResult compares resume skills against job description skills
type MatchResult struct {
	Matched []string
	Missing []string
	// Percent is matched/total*100 rounded to two decimals, 0 when the job
	// description names no skills.
	Percent float64
}

// Match computes the overlap between resume and job description skill sets
func Match(resumeSkills, jdSkills []string) MatchResult {
	have := make(map[string]struct{}, len(resumeSkills))
	for _, s := range resumeSkills {
		have[s] = struct{}{}
	}

	want := make(map[string]struct{}, len(jdSkills))
	result := MatchResult{Matched: []string{}, Missing: []string{}}
	for _, s := range jdSkills {
		if _, dup := want[s]; dup {
			continue
		}
		want[s] = struct{}{}
		if _, ok := have[s]; ok {
			result.Matched = append(result.Matched, s)
		} else {
			result.Missing = append(result.Missing, s)
		}
	}
	sort.Strings(result.Matched)
	sort.Strings(result.Missing)

	if len(want) > 0 {
		result.Percent = math.RoundToEven(float64(len(result.Matched))/float64(len(want))*100*100) / 100
	}
	return result
}
