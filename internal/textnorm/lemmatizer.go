package textnorm

import (
	"slices"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// irregularNouns maps plural forms that suffix rules get wrong to their
// dictionary lemma.
var irregularNouns = map[string]string{
	"children":   "child",
	"men":        "man",
	"women":      "woman",
	"people":     "people",
	"feet":       "foot",
	"teeth":      "tooth",
	"mice":       "mouse",
	"geese":      "goose",
	"analyses":   "analysis",
	"theses":     "thesis",
	"crises":     "crisis",
	"diagnoses":  "diagnosis",
	"hypotheses": "hypothesis",
	"criteria":   "criterion",
	"phenomena":  "phenomenon",
	"data":       "data",
	"media":      "medium",
	"indices":    "index",
	"matrices":   "matrix",
	"vertices":   "vertex",
	"series":     "series",
	"species":    "species",
	"news":       "news",
	"movies":     "movie",
	"cookies":    "cookie",
	"rookies":    "rookie",
	"wives":      "wife",
	"knives":     "knife",
	"lives":      "life",
	"leaves":     "leaf",
	"selves":     "self",
	"shelves":    "shelf",
	"halves":     "half",
	"caches":     "cache",
	"niches":     "niche",
	"headaches":  "headache",
	"databases":  "database",
	"releases":   "release",
	"courses":    "course",
	"responses":  "response",
	"licenses":   "license",
	"services":   "service",
	"devices":    "device",
	"invoices":   "invoice",
	"practices":  "practice",
	"sources":    "source",
	"resources":  "resource",
	"purposes":   "purpose",
	"phases":     "phase",
	"cases":      "case",
	"bases":      "base",
	"uses":       "use",

	// singular nouns ending in s
	"mathematics": "mathematics",
	"physics":     "physics",
	"economics":   "economics",
	"analytics":   "analytics",
	"logistics":   "logistics",
}

// lexicon is the English form to lemma dictionary. It is nil when the
// embedded dictionary cannot be read, leaving only irregularNouns.
var lexicon = sync.OnceValue(func() *golem.Lemmatizer {
	l, err := golem.New(en.New())
	if err != nil {
		return nil
	}
	return l
})

// nounSuffixes are WordNet's detachment rules for nouns, in order
var nounSuffixes = []struct{ from, to string }{
	{"s", ""},
	{"ses", "s"},
	{"xes", "x"},
	{"zes", "z"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"men", "man"},
	{"ies", "y"},
}

// Lemmatize reduces a lowercase noun to its singular dictionary form. It
// follows WordNet's noun morphology: irregular forms first, then the
// detachment rules, keeping only candidates the dictionary lists as a lemma
// of word. The shortest such candidate wins. Words the dictionary does not
// know, such as product names, are returned unchanged.
func Lemmatize(word string) string {
	if lemma, ok := irregularNouns[word]; ok {
		return lemma
	}
	lex := lexicon()
	if lex == nil {
		return word
	}

	lemmas := lex.Lemmas(word)
	if len(lemmas) == 0 {
		return word
	}
	best, found := word, false
	for _, rule := range nounSuffixes {
		base, ok := strings.CutSuffix(word, rule.from)
		if !ok || base == "" {
			continue
		}
		candidate := base + rule.to
		if found && len(candidate) >= len(best) {
			continue
		}
		if slices.Contains(lemmas, candidate) {
			best, found = candidate, true
		}
	}
	return best
}
