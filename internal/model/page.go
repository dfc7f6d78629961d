package model

// PageImage is one rendered page of a document. Index is 0-based and
// determines the page's position in every downstream result.
// A PageImage is not modified after the renderer returns it.
type PageImage struct {
	// Index is the 0-based page number.
	Index int `json:"index"`
	// Data holds the encoded pixel buffer.
	Data []byte `json:"-"`
	// MIMEType is the encoding of Data, e.g. "image/jpeg".
	MIMEType string `json:"mime_type"`
	// Width and Height are the pixel dimensions of the page.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Issue is one formatting defect reported by the model.
type Issue struct {
	// Description says what is wrong. Always non-empty.
	Description string `json:"description"`
	// Severity ranks the defect.
	Severity Severity `json:"severity"`
	// Category is the rubric criterion the defect falls under.
	Category Category `json:"category,omitempty"`
	// Explanation says why it matters to a reader.
	Explanation string `json:"explanation,omitempty"`
	// Cause is the likely source of the defect, e.g. a LaTeX command.
	Cause string `json:"cause,omitempty"`
	// Confidence is the model's confidence from 1 to 5; 0 means unknown.
	Confidence int `json:"confidence,omitempty"`
}

// PageFinding is the analyzed result for exactly one PageImage.
type PageFinding struct {
	// PageIndex matches PageImage.Index.
	PageIndex int `json:"page_index"`
	// Issues are in the order the model reported them.
	Issues []Issue `json:"issues"`
	// HasIssues is true when at least one issue reaches the configured
	// failure threshold.
	HasIssues bool `json:"has_issues"`
}

// NewPageFinding builds a PageFinding and derives HasIssues from issues and
// failOn. An invalid threshold is treated as SeverityLow.
func NewPageFinding(pageIndex int, issues []Issue, failOn Severity) PageFinding {
	if !failOn.Valid() {
		failOn = SeverityLow
	}
	has := false
	for _, issue := range issues {
		if issue.Severity.AtLeast(failOn) {
			has = true
			break
		}
	}
	if issues == nil {
		issues = []Issue{}
	}
	return PageFinding{PageIndex: pageIndex, Issues: issues, HasIssues: has}
}
