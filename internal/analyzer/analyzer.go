package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FarDust/criticat/internal/llm"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/retry"
)

// Analyzer turns page images into PageFindings using a language model.
// It is safe for concurrent use when the underlying Model is.
type Analyzer struct {
	model  llm.Model
	retry  retry.Config
	failOn model.Severity
	system string
	logger *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRetryConfig sets the backoff used for transient model errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(a *Analyzer) {
		a.retry = cfg
	}
}

// WithFailOn sets the lowest severity that marks a page as having issues.
func WithFailOn(s model.Severity) Option {
	return func(a *Analyzer) {
		if s.Valid() {
			a.failOn = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Analyzer backed by m.
func New(m llm.Model, opts ...Option) *Analyzer {
	a := &Analyzer{
		model:  m,
		retry:  retry.DefaultConfig(),
		failOn: model.SeverityLow,
		system: SystemPrompt(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ModelName returns the name of the underlying model.
func (a *Analyzer) ModelName() string {
	return a.model.Name()
}

// Analyze reviews pages in a single model call and returns one PageFinding
// per page, in the order of pages.
//
// Transient model errors are retried with backoff. A response that fails
// validation is retried once with a corrective prompt. When analysis still
// fails the error is a *model.AnalysisError naming the pages. A cancelled
// ctx yields an error matching model.ErrCancelled.
func (a *Analyzer) Analyze(ctx context.Context, pages []model.PageImage) ([]model.PageFinding, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	indices := make([]int, len(pages))
	images := make([]llm.Image, len(pages))
	for i, p := range pages {
		indices[i] = p.Index
		images[i] = llm.Image{Data: p.Data, MIMEType: p.MIMEType}
	}
	logger := a.logger.With("pages", indices)

	prompt := llm.Prompt{System: a.system, User: requestText(indices)}
	findings, text, err := a.attempt(ctx, prompt, images, indices)
	if err == nil {
		return findings, nil
	}

	var verr *model.SchemaValidationError
	if !errors.As(err, &verr) {
		return nil, a.failure(ctx, indices, err)
	}
	logger.Warn("invalid model response, re-prompting", "violations", len(verr.Violations))

	prompt.User = correctionText(indices, text, verr)
	findings, _, err = a.attempt(ctx, prompt, images, indices)
	if err != nil {
		return nil, a.failure(ctx, indices, err)
	}
	return findings, nil
}

// attempt makes one model call and decodes its response. An empty response
// is reported as a *model.SchemaValidationError.
func (a *Analyzer) attempt(ctx context.Context, prompt llm.Prompt, images []llm.Image, indices []int) ([]model.PageFinding, string, error) {
	text, err := a.generate(ctx, prompt, images)
	if errors.Is(err, llm.ErrEmptyResponse) {
		return nil, "", &model.SchemaValidationError{Violations: []string{"response is empty"}}
	}
	if err != nil {
		return nil, "", err
	}
	findings, err := decode(text, indices, a.failOn)
	return findings, text, err
}

func (a *Analyzer) generate(ctx context.Context, prompt llm.Prompt, images []llm.Image) (string, error) {
	return retry.Do(ctx, a.retry, "generate", llm.IsTransient, func() (string, error) {
		return a.model.Generate(ctx, prompt, images)
	})
}

func (a *Analyzer) failure(ctx context.Context, indices []int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", model.ErrCancelled, ctxErr)
	}
	return &model.AnalysisError{Pages: indices, Err: err}
}
