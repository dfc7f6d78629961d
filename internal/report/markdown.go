package report

import (
	"fmt"
	"html"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FarDust/criticat/internal/model"
)

// maxCellLength bounds table cells and details summaries; full descriptions
// go in the details bodies.
const maxCellLength = 80

// CommentTitle is the heading of every review comment.
const CommentTitle = "😼 Criticat Document Review"

// MarkdownWriter renders a report as a GitHub comment.
type MarkdownWriter struct {
	baseWriter
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write renders report.
func (w *MarkdownWriter) Write(report model.ReviewReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2(CommentTitle)
	md.PlainText("")
	w.writeSummary(md, report)
	w.writeIssues(md, report.Verdict)
	w.writeJokes(md, report.Jokes)
	w.writeFooter(md, report.Metadata)

	return len(md.String()), md.Build()
}

// RenderMarkdown returns the Markdown form of report.
func RenderMarkdown(report model.ReviewReport) (string, error) {
	var sb strings.Builder
	if _, err := NewMarkdownWriter(&sb).Write(report); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report model.ReviewReport) {
	v := report.Verdict
	counts := v.CountBySeverity()

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Document", "`" + report.Metadata.Document + "`"},
			{"Result", statusText(v)},
			{"Pages reviewed", strconv.Itoa(v.PagesReviewed)},
			{"Issues", fmt.Sprintf("%d (high %d, medium %d, low %d)",
				v.IssueCount, counts[model.SeverityHigh], counts[model.SeverityMedium], counts[model.SeverityLow])},
		},
	})
	md.PlainText("")

	switch {
	case len(v.UnanalyzedPages) > 0:
		md.Warningf("The review is incomplete: page(s) %s could not be analyzed.", pageList(v.UnanalyzedPages))
	case v.HighestSeverity() == model.SeverityHigh:
		md.Cautionf("%d high severity issue(s) make parts of the document hard to read.", counts[model.SeverityHigh])
	case !v.Pass:
		md.Importantf("Formatting issues found on page(s) %s.", pageList(v.FailingPages))
	case v.IssueCount > 0:
		md.Note("Only minor issues below the failure threshold were found.")
	default:
		md.Tip("No formatting issues found. Purrfect.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, v model.ReviewVerdict) {
	if len(v.Issues) == 0 {
		return
	}

	md.H3("Issues")
	md.PlainText("")

	rows := make([][]string, len(v.Issues))
	for i, issue := range v.Issues {
		rows[i] = []string{
			strconv.Itoa(issue.Page),
			w.title.String(issue.Severity.String()),
			model.GetCategoryInfo(issue.Category).Title,
			truncateString(escapeCell(issue.Description), maxCellLength),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Severity", "Category", "Description"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, issue := range v.Issues {
		details := issueDetails(issue)
		if details == "" {
			continue
		}
		summary := truncateString(escapeCell(issue.Description), maxCellLength)
		md.Details(html.EscapeString(fmt.Sprintf("Page %d: %s", issue.Page, summary)), details)
	}
	md.PlainText("")
}

func issueDetails(issue model.PageIssue) string {
	var lines []string
	if issue.Explanation != "" {
		lines = append(lines, "**Why it matters:** "+html.EscapeString(issue.Explanation))
	}
	if issue.Cause != "" {
		lines = append(lines, "**Likely cause:** "+html.EscapeString(issue.Cause))
	}
	if len(lines) == 0 {
		return ""
	}
	lines = slices.Insert(lines, 0, "**Issue:** "+html.EscapeString(issue.Description))
	lines = append(lines, "**Suggestion:** "+model.GetCategoryInfo(issue.Category).Recommendation)
	return strings.Join(lines, "\n\n")
}

func (w *MarkdownWriter) writeJokes(md *markdown.Markdown, jokes model.JokeSet) {
	if len(jokes) == 0 {
		return
	}
	md.H3("😹 CritiCat Says")
	md.PlainText("")
	for _, j := range jokes {
		md.Blockquote(j)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, meta model.ReviewMetadata) {
	md.HorizontalRule()
	md.PlainText("")
	if meta.Model != "" {
		md.PlainTextf("*Criticat is a document review assistant. Meow. Reviewed with %s.*", meta.Model)
		return
	}
	md.PlainText("*Criticat is a document review assistant. Meow.*")
}

func statusText(v model.ReviewVerdict) string {
	switch {
	case v.Pass:
		return "✅ Pass"
	case !v.Complete():
		return "⚠️ Fail (incomplete)"
	default:
		return "❌ Fail"
	}
}

func pageList(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

// truncateString shortens s to maxLen runes, ending with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
