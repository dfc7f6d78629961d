package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FarDust/criticat/internal/aggregator"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/report"
)

// Renderer converts a PDF into page images.
type Renderer interface {
	Render(ctx context.Context, pdf []byte) ([]model.PageImage, error)
}

// JokeSelector picks the jokes for a verdict.
type JokeSelector interface {
	Select(verdict model.ReviewVerdict, mode model.JokeMode) model.JokeSet
}

// RenderStep rasterizes the document.
type RenderStep struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewRenderStep creates a RenderStep.
func NewRenderStep(renderer Renderer, logger *slog.Logger) *RenderStep {
	return &RenderStep{renderer: renderer, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *RenderStep) Name() string {
	return "render"
}

// Do renders run.Document into run.Pages.
func (s *RenderStep) Do(ctx context.Context, run *Run) error {
	pages, err := s.renderer.Render(ctx, run.Document.Data)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return &model.RenderError{Reason: "document has no pages"}
	}
	run.Pages = pages
	s.logger.Info("document rendered",
		"document", run.Document.Name,
		"pages", len(pages),
	)
	return nil
}

// AnalyzeStep runs the pages through the BatchAnalyzer.
type AnalyzeStep struct {
	batch *BatchAnalyzer
}

// NewAnalyzeStep creates an AnalyzeStep.
func NewAnalyzeStep(batch *BatchAnalyzer) *AnalyzeStep {
	return &AnalyzeStep{batch: batch}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do sets run.Findings and run.Unanalyzed. It fails with
// model.ErrNoUsablePages when every page failed.
func (s *AnalyzeStep) Do(ctx context.Context, run *Run) error {
	findings, unanalyzed, err := s.batch.AnalyzeAll(ctx, run.Pages)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		return fmt.Errorf("%w: all %d pages failed analysis", model.ErrNoUsablePages, len(run.Pages))
	}
	run.Findings = findings
	run.Unanalyzed = unanalyzed
	return nil
}

// AggregateStep folds the findings into the verdict.
type AggregateStep struct{}

// Name returns the step name.
func (AggregateStep) Name() string {
	return "aggregate"
}

// Do sets run.Verdict.
func (AggregateStep) Do(_ context.Context, run *Run) error {
	run.Verdict = aggregator.Aggregate(run.Findings, run.Unanalyzed)
	return nil
}

// JokeStep selects the jokes for the verdict.
type JokeStep struct {
	selector JokeSelector
	mode     model.JokeMode
}

// NewJokeStep creates a JokeStep for mode.
func NewJokeStep(selector JokeSelector, mode model.JokeMode) *JokeStep {
	return &JokeStep{selector: selector, mode: mode}
}

// Name returns the step name.
func (s *JokeStep) Name() string {
	return "select_jokes"
}

// Do sets run.Jokes.
func (s *JokeStep) Do(_ context.Context, run *Run) error {
	run.Jokes = s.selector.Select(run.Verdict, s.mode)
	return nil
}

// BuildStep assembles and serializes the report.
type BuildStep struct {
	modelName string
	mode      model.JokeMode
	now       func() time.Time
}

// NewBuildStep creates a BuildStep. now stamps the report metadata.
func NewBuildStep(modelName string, mode model.JokeMode, now func() time.Time) *BuildStep {
	if now == nil {
		now = time.Now
	}
	return &BuildStep{modelName: modelName, mode: mode, now: now}
}

// Name returns the step name.
func (s *BuildStep) Name() string {
	return "build"
}

// Do sets run.Report and run.JSON.
func (s *BuildStep) Do(_ context.Context, run *Run) error {
	r := report.Build(run.Verdict, run.Jokes, model.ReviewMetadata{
		Document:    run.Document.Name,
		Digest:      run.Digest,
		PageCount:   len(run.Pages),
		Model:       s.modelName,
		JokeMode:    s.mode,
		GeneratedAt: s.now().UTC(),
	})
	data, err := report.Marshal(r)
	if err != nil {
		return err
	}
	run.Report = r
	run.JSON = data
	return nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
