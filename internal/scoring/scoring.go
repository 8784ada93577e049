// Package scoring turns extracted resume attributes and similarity values
// into normalized sub-scores and the weighted final ATS score.
package scoring

import (
	"math"
	"strings"

	"atsfit/internal/extract"
	"atsfit/internal/types"
)

// Composite weights. They sum to 1.
const (
	WeightSkills   = 0.40
	WeightSemantic = 0.30
	WeightLexical  = 0.10
	WeightExp      = 0.10
	WeightEdu      = 0.10
)

type requirementTier struct {
	rank     int
	keywords []string
}

// requirementTiers infers the degree a job description asks for. Unlike
// resume detection there is no associate tier and no m.tech/b.tech.
var requirementTiers = []requirementTier{
	{4, []string{"phd", "doctorate"}},
	{3, []string{"master", "m.sc", "m.s", "mba"}},
	{2, []string{"bachelor", "b.sc", "b.s"}},
}

// ScoreExperience rates resumeYears against the first years requirement
// stated in jdText. No requirement, or a requirement of zero, scores 1.
func ScoreExperience(resumeYears int, jdText string) float64 {
	required, ok := extract.FirstYearsRequirement(jdText)
	if !ok || required <= 0 {
		return 1.0
	}
	return math.Min(1.0, float64(resumeYears)/float64(required))
}

// RequiredEducationRank returns the degree rank requested by jdText, 0 when
// none is stated.
func RequiredEducationRank(jdText string) int {
	lower := strings.ToLower(jdText)
	for _, tier := range requirementTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				return tier.rank
			}
		}
	}
	return 0
}

// ScoreEducation rates the resume degree against the degree jdText requires
func ScoreEducation(level types.EducationLevel, jdText string) float64 {
	required := RequiredEducationRank(jdText)
	rank := extract.Rank(level)
	if rank >= required {
		return 1.0
	}
	return float64(rank) / float64(max(required, 1))
}

// SkillMatchRatio is matched/total, defined as 0 for an empty job description
// skill set.
func SkillMatchRatio(matched, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// FinalATSScore combines the five inputs, each expected in [0,1], into a
// 0-100 score rounded to two decimals.
func FinalATSScore(skillMatch, semantic, lexical, exp, edu float64) float64 {
	final := skillMatch*WeightSkills +
		semantic*WeightSemantic +
		lexical*WeightLexical +
		exp*WeightExp +
		edu*WeightEdu
	return Round(final*100, 2)
}

// Round rounds x to the given number of decimal places. Halves go to the
// even neighbour, so Round(3.125, 2) is 3.12.
func Round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(x*scale) / scale
}
