package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FarDust/criticat/internal/analyzer"
	"github.com/FarDust/criticat/internal/config"
	"github.com/FarDust/criticat/internal/joke"
	"github.com/FarDust/criticat/internal/llm"
	"github.com/FarDust/criticat/internal/log"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/render"
)

// Result is the outcome of a successful review.
type Result struct {
	Report model.ReviewReport
	// JSON is the serialized feedback written to the output file.
	JSON []byte
}

// Orchestrator reviews documents with a fixed configuration and set of
// stages. It keeps no state between reviews and may be used concurrently
// when its stages can.
type Orchestrator struct {
	cfg      config.Config
	renderer Renderer
	analyzer PageAnalyzer
	jokes    JokeSelector
	logger   *slog.Logger
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger for the review and its stages.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator. cfg is copied.
func NewOrchestrator(cfg config.Config, r Renderer, a PageAnalyzer, j JokeSelector, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		renderer: r,
		analyzer: a,
		jokes:    j,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// NewFromConfig builds an Orchestrator backed by the PDF renderer and
// Gemini on Vertex AI. cfg must be valid.
func NewFromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	gemini, err := llm.NewGemini(ctx, cfg.ProjectID, cfg.Location,
		llm.WithModel(cfg.Model),
		llm.WithTemperature(cfg.Temperature),
		llm.WithMetrics(llm.NewMetrics(llm.MeterName)),
		llm.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	renderer := render.New(
		render.WithDPI(cfg.DPI),
		render.WithJPEGQuality(cfg.JPEGQuality),
		render.WithLogger(logger),
	)
	pageAnalyzer := analyzer.New(gemini,
		analyzer.WithRetryConfig(cfg.RetryConfig()),
		analyzer.WithFailOn(cfg.FailOn),
		analyzer.WithLogger(logger),
	)

	var selector *joke.Selector
	if cfg.Seeded {
		selector = joke.NewSeeded(cfg.Seed)
	} else {
		selector = joke.New(nil)
	}

	return NewOrchestrator(cfg, renderer, pageAnalyzer, selector, WithOrchestratorLogger(logger)), nil
}

// Review runs doc through every stage and returns the report.
//
// The configured timeout bounds the whole review. On failure no report is
// returned: the error matches model.ErrRender, model.ErrNoUsablePages,
// model.ErrSerialization or model.ErrCancelled.
func (o *Orchestrator) Review(ctx context.Context, doc Document) (*Result, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	run := NewRun(doc)
	logger := o.logger.With("document", doc.Name, "digest", shortDigest(run.Digest))
	ctx = log.WithContext(ctx, logger)

	p := New(WithLogger(logger))
	p.AddSteps(
		NewRenderStep(o.renderer, logger),
		NewAnalyzeStep(NewBatchAnalyzer(o.analyzer,
			WithBatchSize(o.cfg.BatchSize),
			WithConcurrency(o.cfg.Concurrency),
			WithBatchLogger(logger),
		)),
		AggregateStep{},
		NewJokeStep(o.jokes, o.cfg.JokeMode),
		NewBuildStep(o.modelName(), o.cfg.JokeMode, o.now),
	)

	if err := p.Execute(ctx, run); err != nil {
		return nil, err
	}

	v := run.Report.Verdict
	logger.Info("review complete",
		"pass", v.Pass,
		"issues", v.IssueCount,
		"pages", v.PagesReviewed,
		"unanalyzed", len(v.UnanalyzedPages),
		"jokes", len(run.Jokes),
	)
	return &Result{Report: run.Report, JSON: run.JSON}, nil
}

func (o *Orchestrator) modelName() string {
	if n, ok := o.analyzer.(interface{ ModelName() string }); ok {
		return n.ModelName()
	}
	return ""
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
