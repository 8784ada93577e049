package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"atsfit/internal/report"
	"atsfit/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) ([]byte, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("json", "Report", &ReportJSONFormatter{})
	registry.RegisterFormatter("text", "Report", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "Report", &ReportMarkdownFormatter{})
	registry.RegisterFormatter("pdf", "Report", &ReportPDFFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) ([]byte, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return nil, fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// IsBinary reports whether format produces non-text output
func IsBinary(format string) bool {
	return format == "pdf"
}

func getDataType(data any) string {
	switch data.(type) {
	case types.Report:
		return "Report"
	default:
		return "any"
	}
}

func asReport(data any) (types.Report, error) {
	r, ok := data.(types.Report)
	if !ok {
		return types.Report{}, fmt.Errorf("expected Report, got %T", data)
	}
	return r, nil
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) ([]byte, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ReportJSONFormatter emits only the flat score record of a report
type ReportJSONFormatter struct{}

func (rjf *ReportJSONFormatter) Format(data any) ([]byte, error) {
	r, err := asReport(data)
	if err != nil {
		return nil, err
	}
	return (&JSONFormatter{}).Format(r.Bundle)
}

func (rjf *ReportJSONFormatter) SupportedType() string {
	return "Report"
}

// ReportPDFFormatter renders the full PDF report
type ReportPDFFormatter struct{}

func (rpf *ReportPDFFormatter) Format(data any) ([]byte, error) {
	r, err := asReport(data)
	if err != nil {
		return nil, err
	}
	return report.RenderPDF(r)
}

func (rpf *ReportPDFFormatter) SupportedType() string {
	return "Report"
}

func listOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func optional(s *string) string {
	if s == nil {
		return "not detected"
	}
	return *s
}

// ReportTextFormatter handles plain text formatting for reports
type ReportTextFormatter struct{}

func (rtf *ReportTextFormatter) Format(data any) ([]byte, error) {
	r, err := asReport(data)
	if err != nil {
		return nil, err
	}
	b := r.Bundle

	var output strings.Builder

	if b.HasJobMatch() {
		output.WriteString("=== ATS FIT SCORE ===\n")
		fmt.Fprintf(&output, "Final Score: %.2f/100\n\n", b.FinalScore)
		fmt.Fprintf(&output, "Skill Match:         %.2f%%\n", b.SkillMatchPercent)
		fmt.Fprintf(&output, "Semantic Similarity: %.4f\n", b.SemanticSim)
		fmt.Fprintf(&output, "Keyword Similarity:  %.4f\n", b.LexicalSim)
		fmt.Fprintf(&output, "Experience Score:    %.2f\n", b.ExpScore)
		fmt.Fprintf(&output, "Education Score:     %.2f\n\n", b.EduScore)
	} else {
		output.WriteString("=== RESUME ANALYSIS (no job description) ===\n\n")
	}

	output.WriteString("=== CANDIDATE ===\n")
	fmt.Fprintf(&output, "Email: %s\n", optional(b.ContactInfo.Email))
	fmt.Fprintf(&output, "Phone: %s\n", optional(b.ContactInfo.Phone))
	fmt.Fprintf(&output, "Experience: %d years\n", b.ExperienceYears)
	fmt.Fprintf(&output, "Education: %s\n", b.EducationLevel)
	if b.PredictedCategory != "" {
		fmt.Fprintf(&output, "Category: %s (confidence %.2f)\n", b.PredictedCategory, b.ModelConfidence)
	}
	output.WriteString("\n")

	output.WriteString("=== SKILLS ===\n")
	fmt.Fprintf(&output, "Resume: %s\n", listOr(b.ResumeSkills, "none detected"))
	if b.HasJobMatch() {
		fmt.Fprintf(&output, "Job Description: %s\n", listOr(b.JDSkills, "none detected"))
		fmt.Fprintf(&output, "Missing: %s\n", listOr(b.MissingSkills, "none"))
	}
	output.WriteString("\n")

	if len(r.WeakSentences) > 0 {
		output.WriteString("=== WEAK SENTENCES ===\n")
		for i, s := range r.WeakSentences {
			fmt.Fprintf(&output, "%d. %s\n", i+1, s)
		}
		output.WriteString("\n")
	}

	output.WriteString("=== RECOMMENDATIONS ===\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&output, "- %s\n", rec)
	}

	return []byte(output.String()), nil
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return "Report"
}

// ReportMarkdownFormatter handles markdown formatting for reports
type ReportMarkdownFormatter struct{}

func (rmf *ReportMarkdownFormatter) Format(data any) ([]byte, error) {
	r, err := asReport(data)
	if err != nil {
		return nil, err
	}
	b := r.Bundle

	var output strings.Builder

	output.WriteString("# ATS Resume Fit Report\n\n")
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&output, "_Generated %s_\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	}

	if b.HasJobMatch() {
		fmt.Fprintf(&output, "## Final Score: %.2f/100\n\n", b.FinalScore)
		output.WriteString("| Metric | Score |\n|---|---|\n")
		fmt.Fprintf(&output, "| Skill Match | %.2f%% |\n", b.SkillMatchPercent)
		fmt.Fprintf(&output, "| Semantic Similarity | %.4f |\n", b.SemanticSim)
		fmt.Fprintf(&output, "| Keyword Similarity | %.4f |\n", b.LexicalSim)
		fmt.Fprintf(&output, "| Experience | %.2f |\n", b.ExpScore)
		fmt.Fprintf(&output, "| Education | %.2f |\n\n", b.EduScore)
	} else {
		output.WriteString("> No job description provided; only resume attributes were analyzed.\n\n")
	}

	output.WriteString("## Candidate\n\n")
	fmt.Fprintf(&output, "- **Email:** %s\n", optional(b.ContactInfo.Email))
	fmt.Fprintf(&output, "- **Phone:** %s\n", optional(b.ContactInfo.Phone))
	fmt.Fprintf(&output, "- **Experience:** %d years\n", b.ExperienceYears)
	fmt.Fprintf(&output, "- **Education:** %s\n", b.EducationLevel)
	if b.PredictedCategory != "" {
		fmt.Fprintf(&output, "- **Category:** %s (confidence %.2f)\n", b.PredictedCategory, b.ModelConfidence)
		if len(r.CategoryKeywords) > 0 {
			fmt.Fprintf(&output, "- **Category keywords:** %s\n", strings.Join(r.CategoryKeywords, ", "))
		}
	}
	output.WriteString("\n")

	output.WriteString("## Skills\n\n")
	fmt.Fprintf(&output, "**Resume:** %s\n\n", listOr(b.ResumeSkills, "none detected"))
	if b.HasJobMatch() {
		fmt.Fprintf(&output, "**Job Description:** %s\n\n", listOr(b.JDSkills, "none detected"))
		if len(b.MissingSkills) > 0 {
			output.WriteString("### Missing Skills\n")
			for _, s := range b.MissingSkills {
				fmt.Fprintf(&output, "- %s\n", s)
			}
			output.WriteString("\n")
		}
	}

	if len(r.WeakSentences) > 0 {
		output.WriteString("## Weak Sentences\n\n")
		for i, s := range r.WeakSentences {
			fmt.Fprintf(&output, "%d. %s\n", i+1, s)
		}
		output.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		output.WriteString("## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&output, "- %s\n", rec)
		}
	}

	return []byte(output.String()), nil
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return "Report"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
