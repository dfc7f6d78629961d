package model

// PageIssue is an Issue tagged with the page it was found on.
type PageIssue struct {
	Page int `json:"page"`
	Issue
}

// ReviewVerdict is the document-level outcome of a review.
type ReviewVerdict struct {
	// Pass is true iff no page has issues and every page was analyzed.
	Pass bool `json:"pass"`
	// Issues lists every issue, ordered by page and then by the order the
	// model reported them within the page.
	Issues []PageIssue `json:"issues"`
	// IssueCount equals len(Issues).
	IssueCount int `json:"issue_count"`
	// PagesReviewed is the number of pages with a finding.
	PagesReviewed int `json:"pages_reviewed"`
	// FailingPages lists the indices of pages whose finding has issues.
	FailingPages []int `json:"failing_pages"`
	// UnanalyzedPages lists pages that failed analysis permanently, ascending.
	UnanalyzedPages []int `json:"unanalyzed_pages"`
}

// Complete reports whether every page was analyzed.
func (v ReviewVerdict) Complete() bool {
	return len(v.UnanalyzedPages) == 0
}

// CountBySeverity returns how many issues carry each severity.
func (v ReviewVerdict) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, issue := range v.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// HighestSeverity returns the most severe issue level, or 0 when there are
// no issues.
func (v ReviewVerdict) HighestSeverity() Severity {
	var highest Severity
	for _, issue := range v.Issues {
		if issue.Severity > highest {
			highest = issue.Severity
		}
	}
	return highest
}
