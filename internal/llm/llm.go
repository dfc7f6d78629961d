package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrTransient marks model errors that are worth retrying: quota, rate
// limiting, overload and server-side failures.
var ErrTransient = errors.New("transient model error")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Image is an encoded image attached to a prompt.
type Image struct {
	Data     []byte
	MIMEType string
}

// Prompt is the text sent alongside the images.
type Prompt struct {
	// System is the system instruction (rubric and output schema).
	System string
	// User is the per-call request text.
	User string
}

// Model is a vision-capable language model.
type Model interface {
	// Generate sends prompt and images and returns the raw text response.
	// Transient failures are reported wrapped in ErrTransient.
	Generate(ctx context.Context, prompt Prompt, images []Image) (string, error)
	// Name identifies the model in reports and metrics.
	Name() string
}

// transientMarkers are substrings of provider errors that indicate a
// retryable condition.
var transientMarkers = []string{
	"Resource exhausted",
	"RESOURCE_EXHAUSTED",
	"429",
	"rate limit",
	"Overloaded",
	"503",
	"UNAVAILABLE",
	"quota exceeded",
	"Internal error",
	"server error",
	"deadline exceeded",
	"connection reset",
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
