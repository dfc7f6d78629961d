package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FarDust/criticat/internal/llm"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func pagesFor(indices ...int) []model.PageImage {
	pages := make([]model.PageImage, len(indices))
	for i, idx := range indices {
		pages[i] = model.PageImage{Index: idx, Data: []byte{byte(idx)}, MIMEType: "image/jpeg"}
	}
	return pages
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	stub := llm.NewStaticStub("```json\n" + `{"pages":[
		{"page":4,"issues":[]},
		{"page":3,"issues":[
			{"category":"margins","description":"table overflows right margin","severity":"medium","confidence":4},
			{"category":"spacing","description":"loose line","severity":"low"}
		]}
	]}` + "\n```")

	a := New(stub, WithRetryConfig(fastRetry()))
	got, err := a.Analyze(context.Background(), pagesFor(3, 4))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := []model.PageFinding{
		{
			PageIndex: 3,
			HasIssues: true,
			Issues: []model.Issue{
				{Category: model.CategoryMargins, Description: "table overflows right margin", Severity: model.SeverityMedium, Confidence: 4},
				{Category: model.CategorySpacing, Description: "loose line", Severity: model.SeverityLow},
			},
		},
		{PageIndex: 4, Issues: []model.Issue{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}

	calls := stub.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d model calls, want 1", len(calls))
	}
	if len(calls[0].Images) != 2 {
		t.Errorf("sent %d images, want 2", len(calls[0].Images))
	}
	if !strings.Contains(calls[0].Prompt.System, `"pages"`) {
		t.Error("system prompt should embed the response schema")
	}
	if !strings.Contains(calls[0].Prompt.User, "pages 3, 4") {
		t.Errorf("user prompt should name the page indices: %q", calls[0].Prompt.User)
	}
}

func TestAnalyzer_FailOnThreshold(t *testing.T) {
	t.Parallel()

	stub := llm.NewStaticStub(`{"pages":[{"page":0,"issues":[{"category":"spacing","description":"loose","severity":"low"}]}]}`)
	a := New(stub, WithFailOn(model.SeverityMedium), WithRetryConfig(fastRetry()))

	got, err := a.Analyze(context.Background(), pagesFor(0))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got[0].HasIssues {
		t.Error("low issue should not fail a medium threshold")
	}
	if len(got[0].Issues) != 1 {
		t.Error("issue should still be reported")
	}
}

func TestAnalyzer_TransientRetry(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	stub := &llm.Stub{Respond: func(context.Context, llm.Call) (string, error) {
		if attempts.Add(1) < 3 {
			return "", fmt.Errorf("%w: 429 Resource exhausted", llm.ErrTransient)
		}
		return `{"pages":[{"page":0,"issues":[]}]}`, nil
	}}

	got, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(0))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(got) != 1 || got[0].HasIssues {
		t.Errorf("unexpected findings: %+v", got)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestAnalyzer_TransientExhausted(t *testing.T) {
	t.Parallel()

	stub := &llm.Stub{Respond: func(context.Context, llm.Call) (string, error) {
		return "", llm.ErrTransient
	}}

	_, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(2))
	var aerr *model.AnalysisError
	if !errors.As(err, &aerr) {
		t.Fatalf("Analyze() error = %v, want AnalysisError", err)
	}
	if diff := cmp.Diff([]int{2}, aerr.Pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if len(stub.Calls()) != 3 {
		t.Errorf("calls = %d, want 3", len(stub.Calls()))
	}
}

func TestAnalyzer_PermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	stub := &llm.Stub{Respond: func(context.Context, llm.Call) (string, error) {
		return "", errors.New("403 permission denied")
	}}

	_, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(0))
	if !errors.Is(err, model.ErrAnalysis) {
		t.Fatalf("Analyze() error = %v, want ErrAnalysis", err)
	}
	if len(stub.Calls()) != 1 {
		t.Errorf("calls = %d, want 1", len(stub.Calls()))
	}
}

func TestAnalyzer_CorrectiveReprompt(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	stub := &llm.Stub{Respond: func(_ context.Context, call llm.Call) (string, error) {
		if attempts.Add(1) == 1 {
			return `{"pages":[{"page":0,"issues":[{"description":"x","severity":"catastrophic"}]}]}`, nil
		}
		if !strings.Contains(call.Prompt.User, "did not follow the required format") {
			return "", errors.New("expected a corrective prompt")
		}
		return `{"pages":[{"page":0,"issues":[{"category":"other","description":"x","severity":"high"}]}]}`, nil
	}}

	got, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(0))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got[0].Issues[0].Severity != model.SeverityHigh {
		t.Errorf("expected corrected severity, got %v", got[0].Issues[0].Severity)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestAnalyzer_RepromptsOnMissingIssues(t *testing.T) {
	t.Parallel()

	responses := []string{
		`{"pages":[{"page":0}]}`,
		`{"pages":[{"page":0,"issues":[{"category":"margins","description":"text in the gutter","severity":"medium"}]}]}`,
	}
	var attempts atomic.Int32
	stub := &llm.Stub{Respond: func(_ context.Context, call llm.Call) (string, error) {
		n := attempts.Add(1)
		if n == 2 && !strings.Contains(call.Prompt.User, `"issues" is required`) {
			return "", errors.New("corrective prompt does not name the violation")
		}
		return responses[n-1], nil
	}}

	got, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(0))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !got[0].HasIssues || len(got[0].Issues) != 1 {
		t.Errorf("Analyze() = %+v, want the corrected finding", got[0])
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestAnalyzer_EmptyResponseReprompts(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	stub := &llm.Stub{Respond: func(_ context.Context, call llm.Call) (string, error) {
		if attempts.Add(1) == 1 {
			return "", llm.ErrEmptyResponse
		}
		if !strings.Contains(call.Prompt.User, "response is empty") {
			return "", errors.New("expected a corrective prompt")
		}
		return `{"pages":[{"page":0,"issues":[]}]}`, nil
	}}

	got, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(0))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff([]model.PageFinding{{PageIndex: 0, Issues: []model.Issue{}}}, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestAnalyzer_EmptyResponseTwice(t *testing.T) {
	t.Parallel()

	stub := &llm.Stub{}

	_, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(2))
	if !errors.Is(err, model.ErrAnalysis) {
		t.Fatalf("Analyze() error = %v, want ErrAnalysis", err)
	}
	if !errors.Is(err, model.ErrSchemaValidation) {
		t.Errorf("Analyze() error = %v, should carry the schema violation", err)
	}
	if len(stub.Calls()) != 2 {
		t.Errorf("calls = %d, want 2", len(stub.Calls()))
	}
}

func TestAnalyzer_SchemaFailureTwice(t *testing.T) {
	t.Parallel()

	stub := llm.NewStaticStub("I think the page looks fine!")

	_, err := New(stub, WithRetryConfig(fastRetry())).Analyze(context.Background(), pagesFor(1))
	if !errors.Is(err, model.ErrAnalysis) {
		t.Fatalf("Analyze() error = %v, want ErrAnalysis", err)
	}
	if !errors.Is(err, model.ErrSchemaValidation) {
		t.Errorf("Analyze() error = %v, should carry the schema violation", err)
	}
	if len(stub.Calls()) != 2 {
		t.Errorf("calls = %d, want exactly one corrective retry", len(stub.Calls()))
	}
}

func TestAnalyzer_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	stub := &llm.Stub{Respond: func(ctx context.Context, _ llm.Call) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}

	_, err := New(stub, WithRetryConfig(fastRetry())).Analyze(ctx, pagesFor(0))
	if !errors.Is(err, model.ErrCancelled) {
		t.Errorf("Analyze() error = %v, want ErrCancelled", err)
	}
}

func TestAnalyzer_EmptyBatch(t *testing.T) {
	t.Parallel()

	stub := llm.NewStaticStub("{}")
	got, err := New(stub).Analyze(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("Analyze(nil) = %v, %v", got, err)
	}
	if len(stub.Calls()) != 0 {
		t.Error("empty batch should not call the model")
	}
}

func TestDecode_Violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		want     []int
		contains string
	}{
		{name: "not json", response: "nope", want: []int{0}, contains: "not valid JSON"},
		{name: "missing page", response: `{"pages":[{"page":0,"issues":[]}]}`, want: []int{0, 1}, contains: "page 1 is missing"},
		{name: "unexpected page", response: `{"pages":[{"page":0,"issues":[]},{"page":7,"issues":[]}]}`, want: []int{0}, contains: "page 7 was not part"},
		{name: "duplicate page", response: `{"pages":[{"page":0,"issues":[]},{"page":0,"issues":[]}]}`, want: []int{0}, contains: "more than once"},
		{name: "empty description", response: `{"pages":[{"page":0,"issues":[{"description":" ","severity":"low"}]}]}`, want: []int{0}, contains: "description is empty"},
		{name: "bad confidence", response: `{"pages":[{"page":0,"issues":[{"description":"x","severity":"low","confidence":9}]}]}`, want: []int{0}, contains: "confidence 9"},
		{name: "issues key missing", response: `{"pages":[{"page":0}]}`, want: []int{0}, contains: `page 0: "issues" is required`},
		{name: "issues null", response: `{"pages":[{"page":0,"issues":null}]}`, want: []int{0}, contains: `page 0: "issues" is required`},
		{name: "pages key missing", response: `{"findings":[{"page":0,"issues":[]}]}`, want: []int{0}, contains: `"pages" is required`},
		{name: "pages null", response: `{"pages":null}`, want: []int{0}, contains: `"pages" is required`},
		{name: "category missing", response: `{"pages":[{"page":0,"issues":[{"description":"x","severity":"low"}]}]}`, want: []int{0}, contains: "issue 0: category is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decode(tt.response, tt.want, model.SeverityLow)
			var verr *model.SchemaValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("decode() error = %v, want SchemaValidationError", err)
			}
			if !strings.Contains(verr.Error(), tt.contains) {
				t.Errorf("error %q should contain %q", verr.Error(), tt.contains)
			}
		})
	}
}

func TestDecode_Normalization(t *testing.T) {
	t.Parallel()

	resp := `{"pages":[{"page":0,"issues":[
		{"category":"occlusion","description":"figure covers text","severity":"low"},
		{"category":"wobbly","description":"odd","severity":"Medium"}
	]}]}`
	got, err := decode(resp, []int{0}, model.SeverityLow)
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	issues := got[0].Issues
	if issues[0].Severity != model.SeverityHigh {
		t.Errorf("occlusion severity = %v, want high", issues[0].Severity)
	}
	if issues[1].Category != model.CategoryOther || issues[1].Severity != model.SeverityMedium {
		t.Errorf("unexpected normalization: %+v", issues[1])
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "Here you go:\n```json\n{\"a\":1}\n```\nthanks", want: `{"a":1}`},
		{in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "  {\"a\":1}\n", want: `{"a":1}`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResponseSchema(t *testing.T) {
	t.Parallel()

	var schema map[string]any
	if err := json.Unmarshal([]byte(ResponseSchema()), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v", schema["type"])
	}
	for _, c := range model.Categories {
		if !strings.Contains(ResponseSchema(), `"`+string(c)+`"`) {
			t.Errorf("schema enum is missing category %q", c)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	p := SystemPrompt()
	for _, c := range model.Categories {
		if !strings.Contains(p, model.GetCategoryInfo(c).Title) {
			t.Errorf("rubric is missing %q", c)
		}
	}
}
