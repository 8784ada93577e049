package types

import "time"

// EducationLevel is the highest degree tier detected in a text
type EducationLevel string

const (
	EducationNotFound  EducationLevel = "Not Found"
	EducationAssociate EducationLevel = "Associate Degree"
	EducationBachelor  EducationLevel = "Bachelor's"
	EducationMaster    EducationLevel = "Master's"
	EducationPhD       EducationLevel = "PhD"
)

// ContactInfo holds the first email and phone found in a resume.
// Absent values stay nil and serialize as null.
type ContactInfo struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// AnalyzeInput represents the input for a single analysis
type AnalyzeInput struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// JobMatch carries every score that is relative to a job description.
// It is nil in resume-only mode.
type JobMatch struct {
	FinalScore        float64  `json:"final_score"`
	SkillMatchPercent float64  `json:"skill_match_percent"`
	SemanticSim       float64  `json:"semantic_sim"`
	LexicalSim        float64  `json:"lexical_sim"`
	ExpScore          float64  `json:"exp_score"`
	EduScore          float64  `json:"edu_score"`
	JDSkills          []string `json:"jd_skills"`
	MissingSkills     []string `json:"missing_skills"`
}

// ScoreBundle is the flat analysis record. The embedded JobMatch fields are
// promoted into the same JSON object and disappear when Match is nil.
type ScoreBundle struct {
	*JobMatch

	ExperienceYears   int            `json:"experience_years"`
	EducationLevel    EducationLevel `json:"education_level"`
	ResumeSkills      []string       `json:"resume_skills"`
	PredictedCategory string         `json:"predicted_category,omitempty"`
	ModelConfidence   float64        `json:"model_confidence"`
	ContactInfo       ContactInfo    `json:"contact_info"`
}

// HasJobMatch reports whether job-description scores were computed
func (b ScoreBundle) HasJobMatch() bool {
	return b.JobMatch != nil
}

// Report is the input handed to report renderers
type Report struct {
	Bundle           ScoreBundle `json:"bundle"`
	WeakSentences    []string    `json:"weakSentences"`
	Recommendations  []string    `json:"recommendations"`
	CategoryKeywords []string    `json:"categoryKeywords"`
	GeneratedAt      time.Time   `json:"generatedAt"`
}

// AnalysisJob is a queued analysis request
type AnalysisJob struct {
	ID             string `json:"id"`
	Resume         string `json:"resume,omitempty"`
	ResumeObject   string `json:"resumeObject,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// AnalysisResult is published once a queued job finishes
type AnalysisResult struct {
	ID     string       `json:"id"`
	Bundle *ScoreBundle `json:"bundle,omitempty"`
	Error  string       `json:"error,omitempty"`
	Code   string       `json:"code,omitempty"`
}
