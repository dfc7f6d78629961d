// Package aggregator folds per-page findings into a document verdict.
package aggregator

import (
	"slices"

	"github.com/FarDust/criticat/internal/model"
)

// Aggregate builds the ReviewVerdict for a document.
//
// findings may arrive in any order; they are sorted by page index first, so
// issues are listed page by page and, within a page, in the order the model
// reported them. unanalyzed names pages that failed analysis permanently.
// The verdict passes only when no finding has issues and unanalyzed is empty.
// Aggregate does not modify its arguments.
func Aggregate(findings []model.PageFinding, unanalyzed []int) model.ReviewVerdict {
	ordered := slices.Clone(findings)
	slices.SortStableFunc(ordered, func(a, b model.PageFinding) int {
		return a.PageIndex - b.PageIndex
	})

	missing := slices.Clone(unanalyzed)
	slices.Sort(missing)
	missing = slices.Compact(missing)
	if missing == nil {
		missing = []int{}
	}

	verdict := model.ReviewVerdict{
		Issues:          []model.PageIssue{},
		FailingPages:    []int{},
		UnanalyzedPages: missing,
		PagesReviewed:   len(ordered),
	}

	anyIssues := false
	for _, f := range ordered {
		if f.HasIssues {
			anyIssues = true
			verdict.FailingPages = append(verdict.FailingPages, f.PageIndex)
		}
		for _, issue := range f.Issues {
			verdict.Issues = append(verdict.Issues, model.PageIssue{Page: f.PageIndex, Issue: issue})
		}
	}

	verdict.IssueCount = len(verdict.Issues)
	verdict.Pass = !anyIssues && len(missing) == 0
	return verdict
}
