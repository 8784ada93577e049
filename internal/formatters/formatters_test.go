package formatters

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsfit/internal/types"
)

func sampleReport(withJD bool) types.Report {
	phone := "+1 555 010 2000"
	r := types.Report{
		Bundle: types.ScoreBundle{
			ExperienceYears: 5,
			EducationLevel:  types.EducationMaster,
			ResumeSkills:    []string{"python", "sql"},
			ContactInfo:     types.ContactInfo{Phone: &phone},
		},
		WeakSentences:   []string{"Worked on reports."},
		Recommendations: []string{"Add measurable results."},
		GeneratedAt:     time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	if withJD {
		r.Bundle.JobMatch = &types.JobMatch{
			FinalScore:        87.5,
			SkillMatchPercent: 66.67,
			JDSkills:          []string{"aws", "python", "sql"},
			MissingSkills:     []string{"aws"},
			ExpScore:          1,
			EduScore:          1,
		}
	}
	return r
}

func TestRegistryFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "pdf", "text"}, GlobalRegistry.GetSupportedFormats())

	_, err := GlobalRegistry.Format(sampleReport(true), "xml")
	assert.Error(t, err)

	_, err = GlobalRegistry.Format("plain string", "markdown")
	assert.Error(t, err)
}

func TestReportJSON(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(true), "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, 87.5, decoded["final_score"])
	assert.Equal(t, "Master's", decoded["education_level"])
	assert.NotContains(t, decoded, "weakSentences")
	assert.Nil(t, decoded["contact_info"].(map[string]any)["email"])
}

func TestReportJSONResumeOnly(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(false), "json")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "final_score")
	assert.NotContains(t, string(out), "jd_skills")
}

func TestReportText(t *testing.T) {
	tests := []struct {
		name     string
		withJD   bool
		contains []string
		absent   []string
	}{
		{
			name:     "job match",
			withJD:   true,
			contains: []string{"Final Score: 87.50/100", "Missing: aws", "1. Worked on reports.", "Phone: +1 555 010 2000", "Email: not detected"},
		},
		{
			name:     "resume only",
			withJD:   false,
			contains: []string{"no job description", "Resume: python, sql"},
			absent:   []string{"Final Score", "Missing:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := GlobalRegistry.Format(sampleReport(tt.withJD), "text")
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, string(out), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, string(out), s)
			}
		})
	}
}

func TestReportMarkdown(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(true), "markdown")
	require.NoError(t, err)
	md := string(out)
	assert.Contains(t, md, "# ATS Resume Fit Report")
	assert.Contains(t, md, "_Generated 2025-01-02 03:04_")
	assert.Contains(t, md, "| Skill Match | 66.67% |")
	assert.Contains(t, md, "### Missing Skills\n- aws\n")
	assert.Contains(t, md, "## Recommendations\n\n- Add measurable results.\n")
}

func TestReportPDF(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(true), "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.True(t, IsBinary("pdf"))
	assert.False(t, IsBinary("markdown"))
}
