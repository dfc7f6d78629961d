package model

import (
	"errors"
	"fmt"
	"strings"
)

// Review error kinds. Every typed error below matches exactly one of these
// through errors.Is.
var (
	// ErrRender means the input is not a renderable PDF. The run aborts.
	ErrRender = errors.New("render error")

	// ErrAnalysis means a page could not be analyzed after all retries.
	// The page is reported as unanalyzed and the run continues.
	ErrAnalysis = errors.New("analysis error")

	// ErrSchemaValidation means a model response did not match the
	// expected structure.
	ErrSchemaValidation = errors.New("schema validation error")

	// ErrSerialization means the report could not be encoded.
	ErrSerialization = errors.New("serialization error")

	// ErrCancelled means the caller cancelled the run or its deadline passed.
	ErrCancelled = errors.New("review cancelled")

	// ErrNoUsablePages means analysis failed for every page.
	ErrNoUsablePages = errors.New("no page could be analyzed")
)

// RenderError reports why a document could not be rendered.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render error: %s: %v", e.Reason, e.Err)
	}
	return "render error: " + e.Reason
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is matches ErrRender.
func (e *RenderError) Is(target error) bool { return target == ErrRender }

// AnalysisError reports pages that failed analysis permanently.
type AnalysisError struct {
	Pages []int
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis error for pages %v: %v", e.Pages, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Is matches ErrAnalysis.
func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysis }

// SchemaValidationError lists every way a response violated the schema.
type SchemaValidationError struct {
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return "schema validation error: " + strings.Join(e.Violations, "; ")
}

// Is matches ErrSchemaValidation.
func (e *SchemaValidationError) Is(target error) bool { return target == ErrSchemaValidation }

// SerializationError reports a report that could not be encoded.
type SerializationError struct {
	Field string
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("serialization error in %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("serialization error: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Is matches ErrSerialization.
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }
