package pipeline

import (
	"github.com/dgallion1/docquiz/internal/llm"
	"github.com/dgallion1/docquiz/internal/metrics"
	"github.com/dgallion1/docquiz/internal/report"
)

// Artifact names.
const (
	SummaryText   = "summary.txt"
	SummaryPDF    = "summary.pdf"
	SummaryHTML   = "summary.html"
	QuestionsText = "generated_mcqs.txt"
	QuestionsPDF  = "generated_mcqs.pdf"
	QuestionsDOCX = "generated_mcqs.docx"
	QuestionsHTML = "generated_mcqs.html"
)

// Artifact is one rendered output file. Err is set when rendering failed;
// other artifacts are unaffected.
type Artifact struct {
	Name        string
	Format      report.Format
	ContentType string
	Data        []byte
	Err         error
}

// SummaryExporter renders summaries: one block per chunk summary.
func SummaryExporter(title string) *report.Exporter {
	return &report.Exporter{Title: title, Separator: summarySeparator}
}

// QuestionExporter renders generated questions: one block per question.
func QuestionExporter() *report.Exporter {
	return &report.Exporter{Title: "Generated MCQs", Marker: llm.MCQMarker, Separator: questionSeparator}
}

// ExportArtifacts renders every artifact the result supports. m may be nil.
func ExportArtifacts(res *Result, title string, m *metrics.Metrics) []Artifact {
	if res == nil {
		return nil
	}
	var out []Artifact
	render := func(e *report.Exporter, c report.Content, name string, f report.Format) {
		data, err := e.Export(c, f)
		m.Export(string(f), err)
		out = append(out, Artifact{Name: name, Format: f, ContentType: f.ContentType(), Data: data, Err: err})
	}
	if res.Summary != nil {
		e := SummaryExporter(title)
		render(e, res.Summary, SummaryText, report.FormatText)
		render(e, res.Summary, SummaryPDF, report.FormatPDF)
		render(e, res.Summary, SummaryHTML, report.FormatHTML)
	}
	if res.Questions != nil {
		e := QuestionExporter()
		render(e, res.Questions, QuestionsText, report.FormatText)
		render(e, res.Questions, QuestionsPDF, report.FormatPDF)
		render(e, res.Questions, QuestionsDOCX, report.FormatDOCX)
		render(e, res.Questions, QuestionsHTML, report.FormatHTML)
	}
	return out
}
