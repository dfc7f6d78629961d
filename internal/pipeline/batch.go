package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FarDust/criticat/internal/model"
)

// PageAnalyzer produces one PageFinding per page, in the order of pages.
// It fails with a *model.AnalysisError when the pages could not be analyzed
// and with an error matching model.ErrCancelled when ctx is done.
type PageAnalyzer interface {
	Analyze(ctx context.Context, pages []model.PageImage) ([]model.PageFinding, error)
}

// BatchAnalyzer analyzes a document's pages concurrently, a batch of pages
// per PageAnalyzer call, with a bound on calls in flight.
type BatchAnalyzer struct {
	analyzer    PageAnalyzer
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchAnalyzer.
type BatchOption func(*BatchAnalyzer)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchAnalyzer) {
		b.logger = logger
	}
}

// WithBatchSize sets the number of pages per analyzer call. Default is 1.
func WithBatchSize(n int) BatchOption {
	return func(b *BatchAnalyzer) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithConcurrency sets the maximum number of analyzer calls in flight.
// Default is 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchAnalyzer) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchAnalyzer creates a BatchAnalyzer over analyzer.
func NewBatchAnalyzer(analyzer PageAnalyzer, opts ...BatchOption) *BatchAnalyzer {
	b := &BatchAnalyzer{
		analyzer:    analyzer,
		batchSize:   1,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// batchResult is the outcome of one batch.
type batchResult struct {
	findings []model.PageFinding
	failed   []int
}

// AnalyzeAll analyzes pages and returns the findings in page order together
// with the indices of pages whose batch failed permanently.
//
// Completion order never affects the result: each batch stores its outcome
// at its own position and the outcomes are concatenated afterwards. A
// cancelled ctx abandons in-flight calls and returns an error matching
// model.ErrCancelled with no findings.
func (b *BatchAnalyzer) AnalyzeAll(ctx context.Context, pages []model.PageImage) ([]model.PageFinding, []int, error) {
	batches := split(pages, b.batchSize)

	b.logger.Info("analyzing pages",
		"pages", len(pages),
		"batches", len(batches),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	results := make([]batchResult, len(batches))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", model.ErrCancelled, err)
			}

			findings, err := b.analyzer.Analyze(gctx, batch)
			if err != nil {
				if errors.Is(err, model.ErrCancelled) || gctx.Err() != nil {
					return err
				}
				findings = nil
			}

			kept, failed := reconcile(batch, findings)
			if len(failed) > 0 {
				b.logger.Warn("pages could not be analyzed",
					"pages", failed,
					"error", err,
				)
			}
			mu.Lock()
			results[i] = batchResult{findings: kept, failed: failed}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, model.ErrCancelled) {
			err = fmt.Errorf("%w: %w", model.ErrCancelled, err)
		}
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", model.ErrCancelled, err)
	}

	findings := make([]model.PageFinding, 0, len(pages))
	unanalyzed := make([]int, 0)
	for _, r := range results {
		findings = append(findings, r.findings...)
		unanalyzed = append(unanalyzed, r.failed...)
	}
	slices.SortStableFunc(findings, func(a, b model.PageFinding) int {
		return a.PageIndex - b.PageIndex
	})
	slices.Sort(unanalyzed)

	b.logger.Info("page analysis complete",
		"analyzed", len(findings),
		"unanalyzed", len(unanalyzed),
		"elapsed", time.Since(startTime),
	)
	return findings, unanalyzed, nil
}

// split cuts pages into consecutive batches of at most size pages.
func split(pages []model.PageImage, size int) [][]model.PageImage {
	batches := make([][]model.PageImage, 0, (len(pages)+size-1)/size)
	for chunk := range slices.Chunk(pages, size) {
		batches = append(batches, chunk)
	}
	return batches
}

// reconcile keeps the first finding for each page of batch and returns the
// pages of batch that have none. Findings for pages outside batch are
// dropped. A failed batch passes nil findings, so all its pages fail.
func reconcile(batch []model.PageImage, findings []model.PageFinding) ([]model.PageFinding, []int) {
	byPage := make(map[int]model.PageFinding, len(findings))
	for _, f := range findings {
		if _, dup := byPage[f.PageIndex]; !dup {
			byPage[f.PageIndex] = f
		}
	}

	kept := make([]model.PageFinding, 0, len(batch))
	var failed []int
	for _, p := range batch {
		f, ok := byPage[p.Index]
		if !ok {
			failed = append(failed, p.Index)
			continue
		}
		kept = append(kept, f)
	}
	return kept, failed
}
