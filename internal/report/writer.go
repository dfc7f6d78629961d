package report

import (
	"io"

	"github.com/FarDust/criticat/internal/model"
)

// Writer renders a ReviewReport to some destination.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report model.ReviewReport) (int, error)
}

// MultiWriter writes a report to several Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first error.
func (m *MultiWriter) Write(report model.ReviewReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
