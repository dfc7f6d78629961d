package model

import (
	"fmt"
	"strings"
)

// Severity ranks how visible a formatting issue is to a reader.
// Values are ordered so that comparisons express "at least as severe as".
type Severity int

const (
	// SeverityLow covers cosmetic blemishes a careful reader might notice,
	// such as a slightly loose line or an inconsistent bullet glyph.
	SeverityLow Severity = iota + 1

	// SeverityMedium covers issues that are clearly visible on the page:
	// misaligned figures, uneven section spacing, ragged margins.
	SeverityMedium

	// SeverityHigh covers issues that damage legibility or make content
	// unreadable, such as overlapping text or content cut at the margin.
	SeverityHigh
)

// Severities lists every valid severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// String returns the wire name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityHigh
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s >= threshold
}

// ParseSeverity converts a wire name to a Severity. Matching ignores case
// and surrounding whitespace.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity %q: must be one of low, medium, high", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Category names one criterion of the review rubric.
type Category string

// Rubric categories. The model is asked to tag every issue with one of these.
const (
	CategorySpacing          Category = "spacing"
	CategorySectionSpacing   Category = "section_spacing"
	CategoryAlignment        Category = "alignment"
	CategoryMargins          Category = "margins"
	CategoryFontConsistency  Category = "font_consistency"
	CategoryRendering        Category = "rendering"
	CategoryLists            Category = "lists"
	CategoryVisualElements   Category = "visual_elements"
	CategoryTables           Category = "tables"
	CategoryRepeatedLinks    Category = "repeated_links"
	CategoryPagination       Category = "pagination"
	CategoryOrphanedHeadings Category = "orphaned_headings"
	CategoryHeadersFooters   Category = "headers_footers"
	CategoryOcclusion        Category = "occlusion"
	CategoryOther            Category = "other"
)

// CategoryInfo describes a rubric criterion.
type CategoryInfo struct {
	// Title is the human-readable name used in reports.
	Title string
	// Criterion is the instruction given to the model for this category.
	Criterion string
	// Recommendation is the generic fix suggested in Markdown reports.
	Recommendation string
	// MinSeverity is the lowest severity an issue of this category may carry.
	MinSeverity Severity
}

// categoryInfoMapping is the single source of truth for the rubric.
var categoryInfoMapping = map[Category]CategoryInfo{
	CategorySpacing: {
		Title:          "Word and character spacing",
		Criterion:      "Uneven spacing between words or letters, rivers of white space, overly tight or loose justified lines.",
		Recommendation: "Allow hyphenation or rephrase the paragraph; avoid manual spacing commands.",
		MinSeverity:    SeverityLow,
	},
	CategorySectionSpacing: {
		Title:          "Section and paragraph spacing",
		Criterion:      "Inconsistent vertical space between sections, paragraphs, or around headings.",
		Recommendation: "Remove manual vertical skips and rely on the document class spacing.",
		MinSeverity:    SeverityLow,
	},
	CategoryAlignment: {
		Title:          "Text alignment",
		Criterion:      "Text that does not line up with its column, inconsistent indentation, ragged justified text.",
		Recommendation: "Check indentation commands and environment nesting.",
		MinSeverity:    SeverityLow,
	},
	CategoryMargins: {
		Title:          "Margins",
		Criterion:      "Content running into or beyond the page margins, overfull lines, inconsistent margins between pages.",
		Recommendation: "Fix overfull boxes by resizing content or allowing line breaks.",
		MinSeverity:    SeverityMedium,
	},
	CategoryFontConsistency: {
		Title:          "Font consistency",
		Criterion:      "Mixed font families or sizes in running text, headings with inconsistent styling.",
		Recommendation: "Use a single font setup and semantic commands for emphasis.",
		MinSeverity:    SeverityLow,
	},
	CategoryRendering: {
		Title:          "Font and rendering quality",
		Criterion:      "Blurry or bitmap fonts, missing glyphs, pixelated images, broken ligatures.",
		Recommendation: "Use vector fonts and embed images at sufficient resolution.",
		MinSeverity:    SeverityMedium,
	},
	CategoryLists: {
		Title:          "Bullet and list formatting",
		Criterion:      "Inconsistent bullet symbols, misaligned list items, uneven spacing between items.",
		Recommendation: "Use one list environment style throughout the document.",
		MinSeverity:    SeverityLow,
	},
	CategoryVisualElements: {
		Title:          "Figure and visual element alignment",
		Criterion:      "Figures, images, or captions that are off-center or misaligned with the text block.",
		Recommendation: "Center floats consistently and keep captions attached to their figures.",
		MinSeverity:    SeverityLow,
	},
	CategoryTables: {
		Title:          "Table formatting",
		Criterion:      "Tables overflowing the text width, misaligned columns, inconsistent rules.",
		Recommendation: "Resize or restructure wide tables and align numeric columns.",
		MinSeverity:    SeverityLow,
	},
	CategoryRepeatedLinks: {
		Title:          "Repeated links",
		Criterion:      "The same hyperlink or URL printed several times on a page where once would do.",
		Recommendation: "Cite the link once and refer back to it.",
		MinSeverity:    SeverityLow,
	},
	CategoryPagination: {
		Title:          "Pagination",
		Criterion:      "Missing or inconsistent page numbers, nearly empty pages, widows and orphans.",
		Recommendation: "Adjust float placement and page breaks.",
		MinSeverity:    SeverityLow,
	},
	CategoryOrphanedHeadings: {
		Title:          "Orphaned headings",
		Criterion:      "A heading at the bottom of a page with its content starting on the next page.",
		Recommendation: "Keep headings with the following paragraph.",
		MinSeverity:    SeverityMedium,
	},
	CategoryHeadersFooters: {
		Title:          "Headers and footers",
		Criterion:      "Running headers or footers that overlap content or vary between pages.",
		Recommendation: "Check header and footer heights against the page layout.",
		MinSeverity:    SeverityLow,
	},
	CategoryOcclusion: {
		Title:          "Text occlusion",
		Criterion:      "Text hidden or overlapped by other text, figures, or page elements. Always reported as high severity.",
		Recommendation: "Move or resize the overlapping element so that all text is visible.",
		MinSeverity:    SeverityHigh,
	},
	CategoryOther: {
		Title:          "Other",
		Criterion:      "Any other formatting or layout problem a reader would notice.",
		Recommendation: "Review the page manually.",
		MinSeverity:    SeverityLow,
	},
}

// Categories lists the rubric categories in the order they are presented to
// the model.
var Categories = []Category{
	CategorySpacing,
	CategorySectionSpacing,
	CategoryAlignment,
	CategoryMargins,
	CategoryFontConsistency,
	CategoryRendering,
	CategoryLists,
	CategoryVisualElements,
	CategoryTables,
	CategoryRepeatedLinks,
	CategoryPagination,
	CategoryOrphanedHeadings,
	CategoryHeadersFooters,
	CategoryOcclusion,
	CategoryOther,
}

// Valid reports whether c is a known rubric category.
func (c Category) Valid() bool {
	_, ok := categoryInfoMapping[c]
	return ok
}

// GetCategoryInfo returns the rubric entry for c. Unknown categories get the
// entry for CategoryOther.
func GetCategoryInfo(c Category) CategoryInfo {
	if info, ok := categoryInfoMapping[c]; ok {
		return info
	}
	return categoryInfoMapping[CategoryOther]
}
