// Package report derives written feedback from a score bundle and renders
// it as a PDF.
package report

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"atsfit/internal/types"
)

// DefaultWeakSentences is the number of weak sentences quoted in a report
const DefaultWeakSentences = 5

// maxCategoryKeywords caps the keywords listed as classification evidence
const maxCategoryKeywords = 12

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

	weakPhrases = []string{
		"responsible for",
		"worked on",
		"involved in",
		"helped with",
		"participated in",
		"assisted",
		"tasked with",
		"experience in",
	}
)

// Recommendation texts
const (
	RecommendMissingSkills = "Highlight or learn the missing skills mentioned in the job description where possible."
	RecommendExperience    = "Your experience appears below the typical requirement; emphasize impact, projects, and measurable outcomes from your work."
	RecommendEducation     = "Your education level may be below the preferred level; focus on certifications, practical projects, and specialized courses."
	RecommendStrongMatch   = "Your profile is a strong match. Continue refining your summary, add measurable results, and tailor the resume for each application."
	RecommendAddJD         = "Add a job description to get skill gap, similarity and fit score feedback."
)

// splitSentences breaks text after terminal punctuation followed by whitespace
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var out []string
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		// keep the punctuation with the sentence it ends
		if s := strings.TrimSpace(text[last : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

// WeakSentences returns up to limit sentences phrased in a passive,
// duty-listing way. A non-positive limit uses DefaultWeakSentences.
func WeakSentences(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultWeakSentences
	}
	weak := []string{}
	for _, s := range splitSentences(text) {
		lower := strings.ToLower(s)
		for _, p := range weakPhrases {
			if strings.Contains(lower, p) {
				weak = append(weak, s)
				break
			}
		}
		if len(weak) >= limit {
			break
		}
	}
	return weak
}

// Recommendations lists the improvements suggested by bundle
func Recommendations(bundle types.ScoreBundle) []string {
	if !bundle.HasJobMatch() {
		return []string{RecommendAddJD}
	}

	var recs []string
	if len(bundle.MissingSkills) > 0 {
		recs = append(recs, RecommendMissingSkills)
	}
	if bundle.ExpScore < 1.0 {
		recs = append(recs, RecommendExperience)
	}
	if bundle.EduScore < 1.0 {
		recs = append(recs, RecommendEducation)
	}
	if len(recs) == 0 {
		recs = append(recs, RecommendStrongMatch)
	}
	return recs
}

// CategoryKeywords picks the skills that most plausibly drove the predicted
// category: the overlap with the job description, or every resume skill
// when the job description lists none.
func CategoryKeywords(resumeSkills, jdSkills []string) []string {
	var keywords []string
	if len(jdSkills) == 0 {
		keywords = slices.Clone(resumeSkills)
	} else {
		for _, s := range resumeSkills {
			if slices.Contains(jdSkills, s) {
				keywords = append(keywords, s)
			}
		}
	}
	slices.Sort(keywords)
	keywords = slices.Compact(keywords)
	if len(keywords) > maxCategoryKeywords {
		keywords = keywords[:maxCategoryKeywords]
	}
	if keywords == nil {
		keywords = []string{}
	}
	return keywords
}

// Build assembles the renderer input for bundle
func Build(bundle types.ScoreBundle, resumeText string, now time.Time) types.Report {
	var jdSkills []string
	if bundle.HasJobMatch() {
		jdSkills = bundle.JDSkills
	}
	return types.Report{
		Bundle:           bundle,
		WeakSentences:    WeakSentences(resumeText, DefaultWeakSentences),
		Recommendations:  Recommendations(bundle),
		CategoryKeywords: CategoryKeywords(bundle.ResumeSkills, jdSkills),
		GeneratedAt:      now,
	}
}
