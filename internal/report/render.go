package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"

	"atsfit/internal/errors"
	"atsfit/internal/scoring"
	"atsfit/internal/types"
)

const (
	reportTitle  = "ATS Resume Fit Report"
	reportFooter = "atsfit resume screening"
	barWidth     = 80.0
)

type pdfReport struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// RenderPDF lays out r as an A4 document
func RenderPDF(r types.Report) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	p := &pdfReport{pdf: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}

	doc.SetTitle(reportTitle, true)
	doc.SetCreator("atsfit", true)
	doc.SetCreationDate(r.GeneratedAt)
	doc.SetAutoPageBreak(true, 15)
	doc.SetHeaderFunc(func() { p.header(r) })
	doc.SetFooterFunc(p.footer)
	doc.AddPage()

	b := r.Bundle
	if b.HasJobMatch() {
		p.summary(b)
		p.summaryTable(b)
		p.scoreBars(b)
	} else {
		p.sectionTitle("Overall ATS Summary")
		p.sectionText("No job description was provided, so only resume attributes were analyzed.")
	}
	p.contact(b.ContactInfo)
	p.experienceEducation(b)
	p.classification(b, r.CategoryKeywords)
	p.skillsAnalysis(b)
	if b.HasJobMatch() {
		p.similarity(b)
	}
	p.weakSentences(r.WeakSentences)
	p.recommendations(r.Recommendations)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeEncodeFailed, "failed to render PDF report", err)
	}
	return buf.Bytes(), nil
}

func pct(x float64) string {
	return fmt.Sprintf("%g", scoring.Round(x, 1))
}

func (p *pdfReport) header(r types.Report) {
	p.pdf.SetFont("Helvetica", "B", 18)
	p.pdf.SetTextColor(20, 20, 20)
	p.pdf.CellFormat(0, 10, reportTitle, "", 1, "C", false, 0, "")

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(90, 90, 90)
	p.pdf.CellFormat(0, 6, "Generated on: "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")

	p.pdf.Ln(3)
	p.pdf.SetDrawColor(180, 180, 180)
	y := p.pdf.GetY()
	p.pdf.Line(10, y, 200, y)
	p.pdf.Ln(5)
}

func (p *pdfReport) footer() {
	p.pdf.SetY(-15)
	p.pdf.SetDrawColor(200, 200, 200)
	y := p.pdf.GetY()
	p.pdf.Line(10, y, 200, y)

	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(120, 120, 120)
	p.pdf.CellFormat(0, 5, reportFooter, "", 0, "L", false, 0, "")
	p.pdf.SetX(10)
	p.pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", p.pdf.PageNo()), "", 0, "R", false, 0, "")
}

func (p *pdfReport) sectionTitle(title string) {
	p.pdf.Ln(4)
	p.pdf.SetFillColor(235, 235, 235)
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.SetTextColor(20, 20, 20)
	p.pdf.SetFont("Helvetica", "B", 13)
	p.pdf.CellFormat(0, 8, "  "+p.tr(title), "1", 1, "L", true, 0, "")
	p.pdf.Ln(2)
}

func (p *pdfReport) subsectionTitle(title string) {
	p.pdf.SetFont("Helvetica", "B", 11)
	p.pdf.SetTextColor(40, 40, 40)
	p.pdf.Ln(1)
	p.pdf.CellFormat(0, 6, p.tr(title), "", 1, "L", false, 0, "")
}

func (p *pdfReport) sectionText(text string) {
	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(40, 40, 40)
	p.pdf.MultiCell(0, 5, p.tr(text), "", "L", false)
	p.pdf.Ln(1)
}

func (p *pdfReport) summary(b types.ScoreBundle) {
	p.sectionTitle("Overall ATS Summary")

	p.pdf.SetFont("Helvetica", "B", 24)
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.CellFormat(0, 12, fmt.Sprintf("ATS Fit Score: %s%%", pct(b.FinalScore)), "", 1, "L", false, 0, "")
	p.pdf.Ln(2)

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(60, 60, 60)
	p.pdf.MultiCell(0, 5, "This score summarizes how well your resume aligns with the target job "+
		"based on skills, keyword and semantic similarity, experience, and education.", "", "L", false)
	p.pdf.Ln(2)

	p.pdf.SetTextColor(30, 30, 30)
	bullet := p.tr("• ")
	p.pdf.CellFormat(60, 6, bullet+"Skill Match: "+pct(b.SkillMatchPercent)+"%", "", 0, "L", false, 0, "")
	p.pdf.CellFormat(0, 6, bullet+"Keyword Similarity: "+pct(b.LexicalSim*100)+"%", "", 1, "L", false, 0, "")
	p.pdf.CellFormat(60, 6, bullet+"Semantic Similarity: "+pct(b.SemanticSim*100)+"%", "", 0, "L", false, 0, "")
	p.pdf.CellFormat(0, 6, bullet+"Experience Match: "+pct(b.ExpScore*100)+"%", "", 1, "L", false, 0, "")
	p.pdf.CellFormat(60, 6, bullet+"Education Match: "+pct(b.EduScore*100)+"%", "", 1, "L", false, 0, "")
}

type scoreRow struct {
	label   string
	short   string
	percent float64
}

func scoreRows(b types.ScoreBundle) []scoreRow {
	return []scoreRow{
		{"Skill Match", "Skill Match", b.SkillMatchPercent},
		{"Keyword Similarity", "Keyword", b.LexicalSim * 100},
		{"Semantic Similarity", "Semantic", b.SemanticSim * 100},
		{"Experience Match", "Experience", b.ExpScore * 100},
		{"Education Match", "Education", b.EduScore * 100},
	}
}

func (p *pdfReport) summaryTable(b types.ScoreBundle) {
	p.sectionTitle("ATS Match Summary Table")

	p.pdf.SetFont("Helvetica", "B", 10)
	p.pdf.SetFillColor(240, 240, 240)
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.CellFormat(70, 7, "Metric", "1", 0, "L", true, 0, "")
	p.pdf.CellFormat(30, 7, "Score (%)", "1", 1, "C", true, 0, "")

	p.pdf.SetFont("Helvetica", "", 10)
	for _, row := range scoreRows(b) {
		p.pdf.CellFormat(70, 7, row.label, "1", 0, "L", false, 0, "")
		p.pdf.CellFormat(30, 7, pct(row.percent), "1", 1, "C", false, 0, "")
	}
}

func (p *pdfReport) scoreBars(b types.ScoreBundle) {
	p.sectionTitle("Visual Match Scores")
	for _, row := range scoreRows(b) {
		p.scoreBar(row.short, row.percent)
	}
}

func (p *pdfReport) scoreBar(label string, percent float64) {
	percent = math.Max(0, math.Min(100, percent))

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(30, 30, 30)
	p.pdf.CellFormat(35, 6, label, "", 0, "L", false, 0, "")

	x, y := p.pdf.GetXY()
	p.pdf.SetFillColor(235, 235, 235)
	p.pdf.Rect(x, y+2, barWidth, 4, "F")
	p.pdf.SetFillColor(80, 80, 80)
	p.pdf.Rect(x, y+2, barWidth*percent/100, 4, "F")

	p.pdf.SetXY(x+barWidth+3, y)
	p.pdf.CellFormat(0, 6, pct(percent)+"%", "", 1, "L", false, 0, "")
}

func orNotDetected(s *string) string {
	if s == nil || *s == "" {
		return "Not detected"
	}
	return *s
}

func (p *pdfReport) contact(c types.ContactInfo) {
	p.sectionTitle("Candidate Contact Information")
	p.subsectionTitle("Detected Contact Details")
	p.sectionText(fmt.Sprintf("Email: %s\nPhone: %s", orNotDetected(c.Email), orNotDetected(c.Phone)))
}

func (p *pdfReport) experienceEducation(b types.ScoreBundle) {
	p.sectionTitle("Experience & Education Alignment")
	text := fmt.Sprintf("Years of Experience (detected): %d\nHighest Education Level: %s",
		b.ExperienceYears, b.EducationLevel)
	if b.HasJobMatch() {
		text += fmt.Sprintf("\n\nExperience Match Score: %s%%\nEducation Match Score: %s%%",
			pct(b.ExpScore*100), pct(b.EduScore*100))
	}
	p.sectionText(text)
}

func (p *pdfReport) classification(b types.ScoreBundle, keywords []string) {
	p.sectionTitle("Model Classification Output")
	if b.PredictedCategory == "" {
		p.sectionText("No category classifier is configured.")
		return
	}
	p.sectionText(fmt.Sprintf("Predicted Resume Category: %s\nHybrid Model Confidence (raw): %g",
		b.PredictedCategory, scoring.Round(b.ModelConfidence, 2)))

	p.subsectionTitle("Why This Category Was Predicted")
	if len(keywords) > 0 {
		p.sectionText("The model likely selected this category because your resume " +
			"emphasizes skills and keywords such as:\n" + strings.Join(keywords, ", ") + ".")
		return
	}
	p.sectionText("The model relied on general text patterns (roles, titles, and " +
		"technical language) in your resume to classify it into this category.")
}

func joinSorted(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

func (p *pdfReport) skillsAnalysis(b types.ScoreBundle) {
	p.sectionTitle("Skills Analysis")
	p.subsectionTitle("Skills Found in Resume")
	p.sectionText(joinSorted(b.ResumeSkills, "None detected"))

	if !b.HasJobMatch() {
		return
	}
	p.subsectionTitle("Skills Required in Job Description")
	p.sectionText(joinSorted(b.JDSkills, "None detected"))
	p.subsectionTitle("Missing or Underrepresented Skills")
	p.sectionText(joinSorted(b.MissingSkills, "None (all required skills present)"))
}

func (p *pdfReport) similarity(b types.ScoreBundle) {
	p.sectionTitle("Text Similarity Scores")
	p.sectionText(fmt.Sprintf("Keyword Similarity (TF-IDF): %s%%\nSemantic Similarity (embeddings): %s%%",
		pct(b.LexicalSim*100), pct(b.SemanticSim*100)))
}

func (p *pdfReport) weakSentences(weak []string) {
	p.sectionTitle("Writing Quality: Weak or Passive Sentences")
	if len(weak) == 0 {
		p.sectionText("No clearly weak or passive sentences were detected using our simple rules.\n" +
			"Your bullet points already appear action-focused.")
		return
	}

	var sb strings.Builder
	sb.WriteString("These sentences could be made more action-oriented and impactful:\n\n")
	for i, s := range weak {
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, s)
	}
	sb.WriteString("Try rewriting using strong action verbs (Led, Designed, Built, " +
		"Improved by X%, Automated, Optimized, etc.) and quantifiable results.")
	p.sectionText(sb.String())
}

func (p *pdfReport) recommendations(recs []string) {
	p.sectionTitle("High-Level Recommendations")
	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = "• " + r
	}
	p.sectionText(strings.Join(lines, "\n"))
}
