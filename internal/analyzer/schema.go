package analyzer

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/FarDust/criticat/internal/model"
)

// reviewResponse is the JSON document the model must return.
type reviewResponse struct {
	Pages *[]pageResponse `json:"pages" jsonschema:"required,description=One entry per page in the request"`
}

type pageResponse struct {
	Page        int             `json:"page" jsonschema:"required,minimum=0,description=Page index exactly as given in the request"`
	Explanation string          `json:"explanation,omitempty" jsonschema:"description=Short overall assessment of the page"`
	Issues      *[]issueResponse `json:"issues" jsonschema:"required,description=Formatting issues on the page or an empty array"`
}

type issueResponse struct {
	Category    string `json:"category" jsonschema:"required,enum=spacing,enum=section_spacing,enum=alignment,enum=margins,enum=font_consistency,enum=rendering,enum=lists,enum=visual_elements,enum=tables,enum=repeated_links,enum=pagination,enum=orphaned_headings,enum=headers_footers,enum=occlusion,enum=other"`
	Description string `json:"description" jsonschema:"required,minLength=1,description=What is wrong and where on the page"`
	Explanation string `json:"explanation,omitempty" jsonschema:"description=Why it matters to a reader"`
	Cause       string `json:"cause,omitempty" jsonschema:"description=Likely cause in the source document"`
	Severity    string `json:"severity" jsonschema:"required,enum=low,enum=medium,enum=high"`
	Confidence  int    `json:"confidence,omitempty" jsonschema:"minimum=1,maximum=5,description=Confidence from 1 (guess) to 5 (certain)"`
}

var (
	schemaOnce sync.Once
	schemaText string
)

// ResponseSchema returns the JSON schema of the expected model response.
func ResponseSchema() string {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			DoNotReference:             true,
		}
		s := reflector.Reflect(&reviewResponse{})
		s.Version = ""
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			panic(fmt.Sprintf("marshal response schema: %v", err))
		}
		schemaText = string(b)
	})
	return schemaText
}

// extractJSON returns the JSON payload of a model response, stripping a
// Markdown code fence when present.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "```json"); start >= 0 {
		rest := text[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// decode parses text and checks it against the expected page indices.
// Findings are returned in the order of want. Every violation is collected
// into a single *model.SchemaValidationError.
func decode(text string, want []int, failOn model.Severity) ([]model.PageFinding, error) {
	var resp reviewResponse
	if err := json.Unmarshal([]byte(extractJSON(text)), &resp); err != nil {
		return nil, &model.SchemaValidationError{Violations: []string{"response is not valid JSON: " + err.Error()}}
	}

	if resp.Pages == nil {
		return nil, &model.SchemaValidationError{Violations: []string{`"pages" is required`}}
	}

	var violations []string
	byPage := make(map[int]pageResponse, len(*resp.Pages))
	for _, p := range *resp.Pages {
		if !slices.Contains(want, p.Page) {
			violations = append(violations, fmt.Sprintf("page %d was not part of the request", p.Page))
			continue
		}
		if _, dup := byPage[p.Page]; dup {
			violations = append(violations, fmt.Sprintf("page %d appears more than once", p.Page))
			continue
		}
		byPage[p.Page] = p
	}

	findings := make([]model.PageFinding, 0, len(want))
	for _, idx := range want {
		p, ok := byPage[idx]
		if !ok {
			violations = append(violations, fmt.Sprintf("page %d is missing", idx))
			continue
		}
		if p.Issues == nil {
			violations = append(violations, fmt.Sprintf(`page %d: "issues" is required`, idx))
			continue
		}
		issues := make([]model.Issue, 0, len(*p.Issues))
		for j, ir := range *p.Issues {
			issue, problems := convertIssue(ir)
			for _, problem := range problems {
				violations = append(violations, fmt.Sprintf("page %d issue %d: %s", idx, j, problem))
			}
			issues = append(issues, issue)
		}
		findings = append(findings, model.NewPageFinding(idx, issues, failOn))
	}

	if len(violations) > 0 {
		return nil, &model.SchemaValidationError{Violations: violations}
	}
	return findings, nil
}

// convertIssue maps a response issue to a model.Issue. A missing category
// is a violation; a category outside the rubric becomes "other". Severities
// are raised to the category minimum.
func convertIssue(ir issueResponse) (model.Issue, []string) {
	var problems []string

	if strings.TrimSpace(ir.Category) == "" {
		problems = append(problems, "category is required")
	}

	description := strings.TrimSpace(ir.Description)
	if description == "" {
		problems = append(problems, "description is empty")
	}

	severity, err := model.ParseSeverity(ir.Severity)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if ir.Confidence != 0 && (ir.Confidence < 1 || ir.Confidence > 5) {
		problems = append(problems, fmt.Sprintf("confidence %d is outside 1-5", ir.Confidence))
	}

	category := model.Category(strings.ToLower(strings.TrimSpace(ir.Category)))
	if !category.Valid() {
		category = model.CategoryOther
	}
	if minimum := model.GetCategoryInfo(category).MinSeverity; severity.Valid() && severity < minimum {
		severity = minimum
	}

	return model.Issue{
		Description: description,
		Severity:    severity,
		Category:    category,
		Explanation: strings.TrimSpace(ir.Explanation),
		Cause:       strings.TrimSpace(ir.Cause),
		Confidence:  ir.Confidence,
	}, problems
}
