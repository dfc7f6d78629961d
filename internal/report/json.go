package report

import (
	"encoding/json"
	"io"

	"github.com/FarDust/criticat/internal/model"
)

// JSONWriter writes the wire format.
type JSONWriter struct {
	baseWriter
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithCompact disables indentation.
func WithCompact() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = false
	}
}

// NewJSONWriter creates a JSONWriter. Output is indented unless WithCompact
// is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output), indent: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes report. Invalid UTF-8 yields a *model.SerializationError
// and nothing is written.
func (w *JSONWriter) Write(report model.ReviewReport) (int, error) {
	if w.indent {
		data, err := Marshal(report)
		if err != nil {
			return 0, err
		}
		return w.output.Write(data)
	}

	f := NewFeedback(report)
	if err := f.Validate(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return 0, &model.SerializationError{Err: err}
	}
	return w.output.Write(append(data, '\n'))
}
