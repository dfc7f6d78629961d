package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/FarDust/criticat/internal/model"
)

// Document is a PDF submitted for review.
type Document struct {
	// Name identifies the document in the report, usually its path.
	Name string
	// Data is the raw PDF.
	Data []byte
}

// Run holds the state and intermediate artifacts of one review. Each step
// reads the artifacts of earlier steps and sets its own. A Run is owned by a
// single Execute call and is not safe for concurrent use.
type Run struct {
	Document Document
	// Digest is the hex SHA-256 of Document.Data.
	Digest string

	Pages      []model.PageImage
	Findings   []model.PageFinding
	Unanalyzed []int
	Verdict    model.ReviewVerdict
	Jokes      model.JokeSet
	Report     model.ReviewReport
	// JSON is the serialized Report.
	JSON []byte

	phase Phase
	err   error
}

// NewRun returns an idle run for doc.
func NewRun(doc Document) *Run {
	return &Run{Document: doc, Digest: digest(doc.Data)}
}

// Phase returns the current phase.
func (r *Run) Phase() Phase {
	return r.phase
}

// Err returns the error that failed the run, or nil.
func (r *Run) Err() error {
	return r.err
}

func (r *Run) fire(e Event) error {
	p, err := Transition(r.phase, e)
	if err != nil {
		return err
	}
	r.phase = p
	return nil
}

// fail moves the run to PhaseFailed and records cause. An event the current
// phase does not accept still fails the run, with the transition error
// joined to cause.
func (r *Run) fail(e Event, cause error) error {
	if err := r.fire(e); err != nil {
		cause = errors.Join(cause, err)
		r.phase = PhaseFailed
	}
	r.err = cause
	r.Report = model.ReviewReport{}
	r.JSON = nil
	return cause
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
