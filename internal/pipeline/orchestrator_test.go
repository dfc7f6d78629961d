package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FarDust/criticat/internal/analyzer"
	"github.com/FarDust/criticat/internal/config"
	"github.com/FarDust/criticat/internal/joke"
	"github.com/FarDust/criticat/internal/llm"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/report"
	"github.com/FarDust/criticat/internal/retry"
)

// fakeRenderer returns n pages whose image data is the page index.
type fakeRenderer struct {
	n   int
	err error
}

func (r fakeRenderer) Render(_ context.Context, _ []byte) ([]model.PageImage, error) {
	if r.err != nil {
		return nil, r.err
	}
	return pageImages(r.n), nil
}

// pageStub answers every call with a finding for each attached page.
// respond decides the issues JSON of one page, or returns an error.
func pageStub(respond func(ctx context.Context, page int) (string, error)) *llm.Stub {
	return &llm.Stub{
		ModelName: "stub-vision",
		Respond: func(ctx context.Context, call llm.Call) (string, error) {
			entries := make([]string, 0, len(call.Images))
			for _, img := range call.Images {
				page := int(img.Data[0])
				issues, err := respond(ctx, page)
				if err != nil {
					return "", err
				}
				entries = append(entries, fmt.Sprintf(`{"page":%d,"issues":%s}`, page, issues))
			}
			return `{"pages":[` + strings.Join(entries, ",") + `]}`, nil
		},
	}
}

func marginIssue(desc string) string {
	return fmt.Sprintf(`[{"category":"margins","description":%q,"severity":"medium"}]`, desc)
}

func testConfig() config.Config {
	cfg := *config.NewConfig()
	cfg.PDFPath = "thesis.pdf"
	cfg.ProjectID = "test-project"
	cfg.Concurrency = 3
	cfg.Timeout = 0
	return cfg
}

func newTestOrchestrator(cfg config.Config, pages int, stub *llm.Stub, selector JokeSelector) *Orchestrator {
	a := analyzer.New(stub, analyzer.WithRetryConfig(retry.Config{
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Millisecond,
	}))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewOrchestrator(cfg, fakeRenderer{n: pages}, a, selector,
		WithClock(func() time.Time { return fixed }))
}

func issuePages(v model.ReviewVerdict) []int {
	out := make([]int, len(v.Issues))
	for i, is := range v.Issues {
		out[i] = is.Page
	}
	return out
}

func TestOrchestrator_Review(t *testing.T) {
	t.Parallel()

	stub := pageStub(func(_ context.Context, page int) (string, error) {
		if page == 1 {
			return marginIssue("figure crosses the right margin"), nil
		}
		return "[]", nil
	})
	o := newTestOrchestrator(testConfig(), 3, stub, joke.NewSeeded(1))

	res, err := o.Review(t.Context(), Document{Name: "thesis.pdf", Data: []byte("%PDF-1.7")})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	v := res.Report.Verdict
	if v.Pass {
		t.Error("Pass = true, want false with an issue on page 1")
	}
	if diff := cmp.Diff([]int{1}, issuePages(v)); diff != "" {
		t.Errorf("issue pages mismatch (-want +got):\n%s", diff)
	}
	if v.PagesReviewed != 3 || !v.Complete() {
		t.Errorf("PagesReviewed = %d, Complete = %v", v.PagesReviewed, v.Complete())
	}
	if len(res.Report.Jokes) != 1 {
		t.Errorf("len(Jokes) = %d, want 1 in default mode on failure", len(res.Report.Jokes))
	}
	if got := len(stub.Calls()); got != 3 {
		t.Errorf("model calls = %d, want one per page", got)
	}

	meta := res.Report.Metadata
	if meta.Model != "stub-vision" || meta.PageCount != 3 || meta.Document != "thesis.pdf" {
		t.Errorf("metadata = %+v", meta)
	}

	fb, err := report.Parse(res.JSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(v, fb.Verdict()); diff != "" {
		t.Errorf("round-trip verdict mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res.Report.Jokes, fb.JokeSet()); diff != "" {
		t.Errorf("round-trip jokes mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_CleanDocument(t *testing.T) {
	t.Parallel()

	stub := pageStub(func(context.Context, int) (string, error) { return "[]", nil })
	o := newTestOrchestrator(testConfig(), 2, stub, joke.NewSeeded(1))

	res, err := o.Review(t.Context(), Document{Name: "clean.pdf"})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if !res.Report.Verdict.Pass {
		t.Error("Pass = false, want true")
	}
	if len(res.Report.Jokes) != 0 {
		t.Errorf("Jokes = %v, want none in default mode on pass", res.Report.Jokes)
	}
}

func TestOrchestrator_ReorderedCompletion(t *testing.T) {
	t.Parallel()

	delays := map[int]time.Duration{0: 80 * time.Millisecond, 1: 40 * time.Millisecond, 2: 0}
	stub := pageStub(func(ctx context.Context, page int) (string, error) {
		select {
		case <-time.After(delays[page]):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return marginIssue(fmt.Sprintf("issue on page %d", page)), nil
	})
	o := newTestOrchestrator(testConfig(), 3, stub, joke.NewSeeded(1))

	res, err := o.Review(t.Context(), Document{Name: "slow.pdf"})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, issuePages(res.Report.Verdict)); diff != "" {
		t.Errorf("issue order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	t.Parallel()

	stub := pageStub(func(_ context.Context, page int) (string, error) {
		if page == 2 {
			return "", errors.New("permission denied")
		}
		return "[]", nil
	})
	o := newTestOrchestrator(testConfig(), 3, stub, joke.NewSeeded(1))

	res, err := o.Review(t.Context(), Document{Name: "partial.pdf"})
	if err != nil {
		t.Fatalf("Review() error = %v, want completed run", err)
	}

	v := res.Report.Verdict
	if diff := cmp.Diff([]int{2}, v.UnanalyzedPages); diff != "" {
		t.Errorf("UnanalyzedPages mismatch (-want +got):\n%s", diff)
	}
	if v.PagesReviewed != 2 || v.IssueCount != 0 {
		t.Errorf("PagesReviewed = %d, IssueCount = %d", v.PagesReviewed, v.IssueCount)
	}
	if v.Pass || v.Complete() {
		t.Error("incomplete review must not pass")
	}
	if !bytes.Contains(res.JSON, []byte(`"unanalyzed_pages": [`)) {
		t.Errorf("JSON does not list unanalyzed pages:\n%s", res.JSON)
	}
}

func TestOrchestrator_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		renderer Renderer
		respond  func(context.Context, int) (string, error)
		wantErr  error
	}{
		{
			name:     "render error",
			renderer: fakeRenderer{err: &model.RenderError{Reason: "not a PDF"}},
			wantErr:  model.ErrRender,
		},
		{
			name:     "zero pages",
			renderer: fakeRenderer{n: 0},
			wantErr:  model.ErrRender,
		},
		{
			name:     "every page fails",
			renderer: fakeRenderer{n: 2},
			respond: func(context.Context, int) (string, error) {
				return "", errors.New("invalid argument")
			},
			wantErr: model.ErrNoUsablePages,
		},
		{
			name:     "every response invalid",
			renderer: fakeRenderer{n: 1},
			respond: func(context.Context, int) (string, error) {
				return `"not an array"`, nil
			},
			wantErr: model.ErrNoUsablePages,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			respond := tt.respond
			if respond == nil {
				respond = func(context.Context, int) (string, error) { return "[]", nil }
			}
			a := analyzer.New(pageStub(respond), analyzer.WithRetryConfig(retry.Config{
				BaseBackoff: time.Millisecond,
				MaxBackoff:  time.Millisecond,
			}))
			o := NewOrchestrator(testConfig(), tt.renderer, a, joke.NewSeeded(1))

			res, err := o.Review(t.Context(), Document{Name: "broken.pdf"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Review() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Error("failed review returned a result")
			}
		})
	}
}

func TestOrchestrator_Cancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 3)
	stub := pageStub(func(ctx context.Context, _ int) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := newTestOrchestrator(testConfig(), 3, stub, joke.NewSeeded(1))

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		<-started
		cancel()
	}()

	res, err := o.Review(ctx, Document{Name: "cancel.pdf"})
	if !errors.Is(err, model.ErrCancelled) {
		t.Fatalf("Review() error = %v, want ErrCancelled", err)
	}
	if res != nil {
		t.Error("cancelled review returned a result")
	}
}

func TestOrchestrator_Timeout(t *testing.T) {
	t.Parallel()

	stub := pageStub(func(ctx context.Context, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	o := newTestOrchestrator(cfg, 1, stub, joke.NewSeeded(1))

	_, err := o.Review(t.Context(), Document{Name: "slow.pdf"})
	if !errors.Is(err, model.ErrCancelled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Review() error = %v, want ErrCancelled wrapping DeadlineExceeded", err)
	}
}

func TestOrchestrator_Idempotent(t *testing.T) {
	t.Parallel()

	respond := func(_ context.Context, page int) (string, error) {
		if page%2 == 0 {
			return marginIssue("caption overlaps figure"), nil
		}
		return "[]", nil
	}
	cfg := testConfig()
	cfg.JokeMode = model.JokeModeChaotic

	review := func() []byte {
		t.Helper()
		o := newTestOrchestrator(cfg, 4, pageStub(respond), joke.NewSeeded(99))
		res, err := o.Review(t.Context(), Document{Name: "same.pdf", Data: []byte("%PDF-1.4 same")})
		if err != nil {
			t.Fatalf("Review() error = %v", err)
		}
		return res.JSON
	}

	first, second := review(), review()
	if !bytes.Equal(first, second) {
		t.Errorf("reruns differ:\n%s\n---\n%s", first, second)
	}
}

func TestOrchestrator_JokeModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode    model.JokeMode
		failing bool
		min     int
		max     int
	}{
		{model.JokeModeNone, true, 0, 0},
		{model.JokeModeDefault, false, 0, 0},
		{model.JokeModeDefault, true, 1, 1},
		{model.JokeModeChaotic, false, 1, 3},
		{model.JokeModeChaotic, true, 1, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/failing=%v", tt.mode, tt.failing), func(t *testing.T) {
			t.Parallel()

			stub := pageStub(func(context.Context, int) (string, error) {
				if tt.failing {
					return marginIssue("bad"), nil
				}
				return "[]", nil
			})
			cfg := testConfig()
			cfg.JokeMode = tt.mode
			o := newTestOrchestrator(cfg, 1, stub, joke.New(nil))

			res, err := o.Review(t.Context(), Document{Name: "jokes.pdf"})
			if err != nil {
				t.Fatalf("Review() error = %v", err)
			}
			n := len(res.Report.Jokes)
			if n < tt.min || n > tt.max {
				t.Errorf("len(Jokes) = %d, want %d..%d", n, tt.min, tt.max)
			}
		})
	}
}
