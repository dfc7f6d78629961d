package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FarDust/criticat/internal/model"
)

// Step is one stage of a review. Steps run in sequence; each one reads the
// artifacts of earlier steps from the Run and stores its own.
type Step interface {
	// Do executes the step. A returned error ends the run.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order and moves the Run through its phases:
// each step that succeeds fires EventCompleted, so the n-th step runs in the
// n-th working phase.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline. Steps are added with AddStep or AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step on run, which must be idle.
//
// Cancellation is checked before each step. A cancelled run returns an error
// matching model.ErrCancelled; any step error fails the run. In both cases
// the run ends in PhaseFailed with no report. Execute returns nil only when
// the run reaches PhaseDone.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	if err := run.fire(EventStart); err != nil {
		return err
	}

	for _, step := range p.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.logger.Warn("review cancelled",
				"step", step.Name(),
				"phase", run.Phase(),
				"reason", ctxErr,
			)
			return run.fail(EventCancelled, fmt.Errorf("%w: %w", model.ErrCancelled, ctxErr))
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"phase", run.Phase(),
			"document", run.Document.Name,
		)

		if err := step.Do(ctx, run); err != nil {
			event := EventFailed
			if errors.Is(err, model.ErrCancelled) || ctx.Err() != nil {
				event = EventCancelled
				if !errors.Is(err, model.ErrCancelled) {
					err = fmt.Errorf("%w: %w", model.ErrCancelled, err)
				}
			}
			p.logger.Error("step failed",
				"step", step.Name(),
				"phase", run.Phase(),
				"document", run.Document.Name,
				"error", err,
			)
			return run.fail(event, err)
		}

		if err := run.fire(EventCompleted); err != nil {
			return run.fail(EventFailed, err)
		}
	}

	if run.Phase() != PhaseDone {
		return run.fail(EventFailed, fmt.Errorf("pipeline stopped in phase %s", run.Phase()))
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
