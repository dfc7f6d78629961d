package report

import (
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/FarDust/criticat/internal/model"
)

// Build assembles a ReviewReport. The report gets its own copies of every
// slice, so later changes to the inputs do not affect it.
func Build(verdict model.ReviewVerdict, jokes model.JokeSet, meta model.ReviewMetadata) model.ReviewReport {
	v := verdict
	v.Issues = cloneOrEmpty(verdict.Issues)
	v.FailingPages = cloneOrEmpty(verdict.FailingPages)
	v.UnanalyzedPages = cloneOrEmpty(verdict.UnanalyzedPages)
	v.IssueCount = len(v.Issues)

	return model.ReviewReport{
		Verdict:  v,
		Jokes:    model.JokeSet(cloneOrEmpty([]string(jokes))),
		Metadata: meta,
	}
}

func cloneOrEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

// Feedback is the wire form of a ReviewReport, written to
// criticat_feedback.json and returned by the server. It carries no
// timestamp, so reviewing an unchanged document reproduces it byte for byte.
type Feedback struct {
	Document        string            `json:"document"`
	Pass            bool              `json:"pass"`
	Complete        bool              `json:"complete"`
	IssueCount      int               `json:"issue_count"`
	PagesReviewed   int               `json:"pages_reviewed"`
	Issues          []model.PageIssue `json:"issues"`
	FailingPages    []int             `json:"failing_pages"`
	UnanalyzedPages []int             `json:"unanalyzed_pages"`
	Jokes           []string          `json:"jokes"`
}

// NewFeedback converts a report to its wire form.
func NewFeedback(r model.ReviewReport) Feedback {
	return Feedback{
		Document:        r.Metadata.Document,
		Pass:            r.Verdict.Pass,
		Complete:        r.Verdict.Complete(),
		IssueCount:      r.Verdict.IssueCount,
		PagesReviewed:   r.Verdict.PagesReviewed,
		Issues:          cloneOrEmpty(r.Verdict.Issues),
		FailingPages:    cloneOrEmpty(r.Verdict.FailingPages),
		UnanalyzedPages: cloneOrEmpty(r.Verdict.UnanalyzedPages),
		Jokes:           cloneOrEmpty([]string(r.Jokes)),
	}
}

// Verdict reconstructs the ReviewVerdict carried by f.
func (f Feedback) Verdict() model.ReviewVerdict {
	return model.ReviewVerdict{
		Pass:            f.Pass,
		Issues:          cloneOrEmpty(f.Issues),
		IssueCount:      f.IssueCount,
		PagesReviewed:   f.PagesReviewed,
		FailingPages:    cloneOrEmpty(f.FailingPages),
		UnanalyzedPages: cloneOrEmpty(f.UnanalyzedPages),
	}
}

// JokeSet returns the jokes carried by f.
func (f Feedback) JokeSet() model.JokeSet {
	return model.JokeSet(cloneOrEmpty(f.Jokes))
}

// Validate reports the first string field that is not valid UTF-8 as a
// *model.SerializationError.
func (f Feedback) Validate() error {
	check := func(field, s string) error {
		if !utf8.ValidString(s) {
			return &model.SerializationError{Field: field, Err: fmt.Errorf("invalid UTF-8 in %q", s)}
		}
		return nil
	}

	if err := check("document", f.Document); err != nil {
		return err
	}
	for i, issue := range f.Issues {
		fields := []struct{ name, value string }{
			{"description", issue.Description},
			{"category", string(issue.Category)},
			{"explanation", issue.Explanation},
			{"cause", issue.Cause},
		}
		for _, fld := range fields {
			if err := check(fmt.Sprintf("issues[%d].%s", i, fld.name), fld.value); err != nil {
				return err
			}
		}
	}
	for i, j := range f.Jokes {
		if err := check(fmt.Sprintf("jokes[%d]", i), j); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes r in the wire format with two-space indentation and a
// trailing newline.
func Marshal(r model.ReviewReport) ([]byte, error) {
	f := NewFeedback(r)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, &model.SerializationError{Err: err}
	}
	return append(data, '\n'), nil
}

// Parse decodes the wire format.
func Parse(data []byte) (Feedback, error) {
	var f Feedback
	if err := json.Unmarshal(data, &f); err != nil {
		return Feedback{}, fmt.Errorf("parsing feedback: %w", err)
	}
	return f, nil
}
