package analyzer

import (
	"fmt"
	"strings"

	"github.com/FarDust/criticat/internal/model"
)

const systemPreamble = `You are an expert typesetter reviewing a rendered document, typically produced with LaTeX, for formatting and layout defects.
You are given one image per page. Judge only what is visible: presentation, not content or writing quality.
Report every defect you can see, each with the single rubric category that fits best. Report nothing for a page that looks correct.`

// SystemPrompt returns the fixed instruction shared by every request: the
// rubric followed by the response schema.
func SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\nRubric:\n")
	for _, c := range model.Categories {
		info := model.GetCategoryInfo(c)
		fmt.Fprintf(&sb, "- %s (%s): %s\n", c, info.Title, info.Criterion)
	}
	sb.WriteString(`
Severity:
- low: cosmetic, noticeable only on close inspection.
- medium: clearly visible to any reader.
- high: hurts legibility or hides content.

Respond with a single JSON object and nothing else. It must validate against this JSON schema:
`)
	sb.WriteString(ResponseSchema())
	return sb.String()
}

// requestText tells the model which page indices the attached images are.
func requestText(indices []int) string {
	if len(indices) == 1 {
		return fmt.Sprintf("The attached image is page %d. Return exactly one entry in \"pages\" with \"page\": %d.", indices[0], indices[0])
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprint(idx)
	}
	return fmt.Sprintf("The attached images are pages %s, in that order. Return exactly one entry in \"pages\" for each of them, using these page numbers.",
		strings.Join(parts, ", "))
}

// correctionText asks the model to fix a response that failed validation.
func correctionText(indices []int, previous string, verr *model.SchemaValidationError) string {
	var sb strings.Builder
	sb.WriteString(requestText(indices))
	sb.WriteString("\n\nYour previous response did not follow the required format:\n")
	for _, v := range verr.Violations {
		fmt.Fprintf(&sb, "- %s\n", v)
	}
	sb.WriteString("\nPrevious response:\n")
	sb.WriteString(previous)
	sb.WriteString("\n\nReturn a corrected JSON object that validates against the schema. Do not add any other text.")
	return sb.String()
}
