// Package extract pulls structured facts out of resume text with fixed
// regular expressions and keyword tiers.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"atsfit/internal/types"
)

var (
	yearsPattern = regexp.MustCompile(`(\d+)\+?\s*years?`)
	yrsPattern   = regexp.MustCompile(`(\d+)\s*yrs?`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d \-()]{8,}\d`)
)

type educationTier struct {
	level    types.EducationLevel
	keywords []string
}

// educationTiers is scanned top to bottom and the first tier with a
// keyword present wins.
var educationTiers = []educationTier{
	{types.EducationPhD, []string{"phd", "doctorate"}},
	{types.EducationMaster, []string{"master", "m.sc", "m.s", "mba", "m.tech"}},
	{types.EducationBachelor, []string{"bachelor", "b.sc", "b.s", "b.tech"}},
	{types.EducationAssociate, []string{"associate"}},
}

var educationRanks = map[types.EducationLevel]int{
	types.EducationNotFound:  0,
	types.EducationAssociate: 1,
	types.EducationBachelor:  2,
	types.EducationMaster:    3,
	types.EducationPhD:       4,
}

// ExperienceYears returns the largest "N years" or "N yrs" figure stated in
// text, or 0 when there is none.
func ExperienceYears(text string) int {
	lower := strings.ToLower(text)
	best := 0
	for _, pattern := range []*regexp.Regexp{yearsPattern, yrsPattern} {
		for _, m := range pattern.FindAllStringSubmatch(lower, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n > best {
				best = n
			}
		}
	}
	return best
}

// FirstYearsRequirement returns the first "N years" figure in text. It is
// the requirement side of experience scoring and deliberately ignores the
// "yrs" spelling.
func FirstYearsRequirement(text string) (int, bool) {
	m := yearsPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// EducationLevel detects the highest degree tier mentioned in text using
// plain substring matching on the lowercased text.
func EducationLevel(text string) types.EducationLevel {
	lower := strings.ToLower(text)
	for _, tier := range educationTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				return tier.level
			}
		}
	}
	return types.EducationNotFound
}

// Rank maps an education level to 0..4. Unknown labels rank 0.
func Rank(level types.EducationLevel) int {
	return educationRanks[level]
}

// ContactDetails returns the first email and phone number found in text
func ContactDetails(text string) types.ContactInfo {
	var info types.ContactInfo
	if email := emailPattern.FindString(text); email != "" {
		info.Email = &email
	}
	if phone := phonePattern.FindString(text); phone != "" {
		info.Phone = &phone
	}
	return info
}
