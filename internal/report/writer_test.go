package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FarDust/criticat/internal/model"
)

func createTestReport() model.ReviewReport {
	verdict := model.ReviewVerdict{
		Pass: false,
		Issues: []model.PageIssue{
			{Page: 0, Issue: model.Issue{
				Description: "Figure 2 overlaps the caption",
				Severity:    model.SeverityHigh,
				Category:    model.CategoryOcclusion,
				Explanation: "The caption text is unreadable",
				Cause:       "negative \\vspace before \\caption",
				Confidence:  5,
			}},
			{Page: 2, Issue: model.Issue{
				Description: "Uneven gap | above section 3",
				Severity:    model.SeverityLow,
				Category:    model.CategorySectionSpacing,
			}},
		},
		IssueCount:      2,
		PagesReviewed:   3,
		FailingPages:    []int{0, 2},
		UnanalyzedPages: []int{3},
	}
	meta := model.ReviewMetadata{
		Document:    "paper.pdf",
		PageCount:   4,
		Model:       "stub",
		JokeMode:    model.JokeModeDefault,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	return Build(verdict, model.JokeSet{"I knocked your margins off the table."}, meta)
}

func TestBuild_CopiesInputs(t *testing.T) {
	t.Parallel()

	issues := []model.PageIssue{{Page: 0, Issue: model.Issue{Description: "a", Severity: model.SeverityLow}}}
	jokes := model.JokeSet{"meow"}
	r := Build(model.ReviewVerdict{Issues: issues, IssueCount: 99}, jokes, model.ReviewMetadata{})

	issues[0].Description = "changed"
	jokes[0] = "changed"

	if r.Verdict.Issues[0].Description != "a" || r.Jokes[0] != "meow" {
		t.Error("Build should copy its inputs")
	}
	if r.Verdict.IssueCount != 1 {
		t.Errorf("IssueCount = %d, want 1", r.Verdict.IssueCount)
	}
	if r.Verdict.UnanalyzedPages == nil || r.Verdict.FailingPages == nil {
		t.Error("nil slices should become empty")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	r := createTestReport()
	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(r.Verdict, f.Verdict()); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(r.Jokes, f.JokeSet()); diff != "" {
		t.Errorf("jokes mismatch (-want +got):\n%s", diff)
	}
	if f.Document != "paper.pdf" || f.Complete {
		t.Errorf("unexpected feedback header: %+v", f)
	}
}

func TestMarshal_WireShape(t *testing.T) {
	t.Parallel()

	data, err := Marshal(createTestReport())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"pass", "issues", "jokes", "unanalyzed_pages"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if _, ok := wire["generated_at"]; ok {
		t.Error("wire format should not carry a timestamp")
	}

	issue := wire["issues"].([]any)[0].(map[string]any)
	if issue["page"] != float64(0) || issue["severity"] != "high" || issue["description"] == "" {
		t.Errorf("unexpected issue shape: %v", issue)
	}
	if !bytes.HasSuffix(data, []byte("}\n")) {
		t.Error("expected trailing newline")
	}
}

func TestMarshal_Idempotent(t *testing.T) {
	t.Parallel()

	r1 := createTestReport()
	r2 := createTestReport()
	r2.Metadata.GeneratedAt = r2.Metadata.GeneratedAt.Add(time.Hour)

	a, err := Marshal(r1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(r2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("output depends on the generation time")
	}
}

func TestMarshal_InvalidUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*model.ReviewReport)
		field string
	}{
		{name: "description", edit: func(r *model.ReviewReport) { r.Verdict.Issues[1].Description = "bad \xff" }, field: "issues[1].description"},
		{name: "joke", edit: func(r *model.ReviewReport) { r.Jokes = model.JokeSet{"\xc3\x28"} }, field: "jokes[0]"},
		{name: "document", edit: func(r *model.ReviewReport) { r.Metadata.Document = "\xfe.pdf" }, field: "document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := createTestReport()
			tt.edit(&r)

			_, err := Marshal(r)
			var serr *model.SerializationError
			if !errors.As(err, &serr) {
				t.Fatalf("Marshal() error = %v, want SerializationError", err)
			}
			if serr.Field != tt.field {
				t.Errorf("Field = %q, want %q", serr.Field, tt.field)
			}
			if !errors.Is(err, model.ErrSerialization) {
				t.Error("expected ErrSerialization")
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("{not json")); err == nil {
		t.Error("expected error")
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("indented by default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"pass\": false") {
			t.Errorf("expected indented output: %s", buf.String())
		}
	})

	t.Run("compact", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithCompact()).Write(createTestReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line: %s", buf.String())
		}
	})

	t.Run("nothing written on invalid input", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		r := createTestReport()
		r.Jokes = model.JokeSet{"\xff"}
		if _, err := NewJSONWriter(&buf).Write(r); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("partial output written")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	out, err := RenderMarkdown(createTestReport())
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}

	for _, want := range []string{
		CommentTitle,
		"`paper.pdf`",
		"could not be analyzed",
		"Severity",
		"Category",
		"Text occlusion",
		"Uneven gap",
		"High",
		"Likely cause",
		"CritiCat Says",
		"> I knocked your margins off the table.",
		"Criticat is a document review assistant. Meow.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_DetailsSummary(t *testing.T) {
	t.Parallel()

	long := "The <table> spills into the margin and the text </summary> " + strings.Repeat("keeps going ", 20)
	r := Build(model.ReviewVerdict{
		Issues: []model.PageIssue{{Page: 4, Issue: model.Issue{
			Description: long,
			Severity:    model.SeverityMedium,
			Category:    model.CategoryMargins,
			Explanation: "Readers lose the <b>right</b> column",
		}}},
		IssueCount:    1,
		PagesReviewed: 5,
		FailingPages:  []int{4},
	}, nil, model.ReviewMetadata{Document: "wide.pdf"})

	out, err := RenderMarkdown(r)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}

	start := strings.Index(out, "<details><summary>")
	if start < 0 {
		t.Fatalf("markdown has no details block:\n%s", out)
	}
	rest := out[start+len("<details><summary>"):]
	end := strings.Index(rest, "</summary>")
	if end < 0 {
		t.Fatalf("details summary is not closed:\n%s", out)
	}
	summary := rest[:end]
	if strings.ContainsAny(summary, "<>") {
		t.Errorf("summary is not escaped: %q", summary)
	}
	if !strings.HasPrefix(summary, "Page 4: The &lt;table&gt;") || !strings.HasSuffix(summary, "...") {
		t.Errorf("summary = %q, want an escaped and truncated description", summary)
	}
	if strings.Count(out, "</details>") != 1 {
		t.Errorf("details block is broken:\n%s", out)
	}
	if !strings.Contains(out, "Readers lose the &lt;b&gt;right&lt;/b&gt; column") {
		t.Errorf("explanation is not escaped:\n%s", out)
	}
	if !strings.Contains(out, "**Issue:** The &lt;table&gt;") {
		t.Errorf("details body does not carry the full description:\n%s", out)
	}
}

func TestMarkdownWriter_Passing(t *testing.T) {
	t.Parallel()

	r := Build(model.ReviewVerdict{Pass: true, PagesReviewed: 2}, nil, model.ReviewMetadata{Document: "ok.pdf"})
	out, err := RenderMarkdown(r)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if !strings.Contains(out, "Pass") || strings.Contains(out, "CritiCat Says") || strings.Contains(out, "### Issues") {
		t.Errorf("unexpected markdown for passing review:\n%s", out)
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"CRITICAT REVIEW", "paper.pdf", "Result:   FAIL", "1 unanalyzed (3)", "[!!!] page 0", "cause: negative", "=^.^="} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	n, err := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b)).Write(createTestReport())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("n = %d, want %d", n, a.Len()+b.Len())
	}
}
