package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/FarDust/criticat/internal/model"
)

// SimpleWriter writes a plain-text summary for terminals.
type SimpleWriter struct {
	baseWriter
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose includes explanations and causes.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders report.
func (w *SimpleWriter) Write(report model.ReviewReport) (int, error) {
	var sb strings.Builder
	v := report.Verdict

	rule := strings.Repeat("=", 60)
	sb.WriteString(rule + "\n")
	sb.WriteString("  CRITICAT REVIEW\n")
	sb.WriteString(rule + "\n\n")

	fmt.Fprintf(&sb, "Document: %s\n", report.Metadata.Document)
	fmt.Fprintf(&sb, "Pages:    %d reviewed", v.PagesReviewed)
	if len(v.UnanalyzedPages) > 0 {
		fmt.Fprintf(&sb, ", %d unanalyzed (%s)", len(v.UnanalyzedPages), pageList(v.UnanalyzedPages))
	}
	sb.WriteString("\n")
	if v.Pass {
		sb.WriteString("Result:   PASS\n")
	} else {
		sb.WriteString("Result:   FAIL\n")
	}
	fmt.Fprintf(&sb, "Issues:   %d\n\n", v.IssueCount)

	for _, issue := range v.Issues {
		fmt.Fprintf(&sb, "  [%s] page %d: %s\n", severityIndicator(issue.Severity), issue.Page, issue.Description)
		if w.verbose {
			if issue.Explanation != "" {
				fmt.Fprintf(&sb, "        why:   %s\n", issue.Explanation)
			}
			if issue.Cause != "" {
				fmt.Fprintf(&sb, "        cause: %s\n", issue.Cause)
			}
		}
	}
	if len(v.Issues) > 0 {
		sb.WriteString("\n")
	}

	for _, j := range report.Jokes {
		fmt.Fprintf(&sb, "  =^.^= %s\n", j)
	}
	if len(report.Jokes) > 0 {
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

func severityIndicator(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "!!!"
	case model.SeverityMedium:
		return "!! "
	case model.SeverityLow:
		return "!  "
	default:
		return "?  "
	}
}
