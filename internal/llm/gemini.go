package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the Gemini model used for reviews.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature keeps judgments stable while leaving room for
	// varied wording.
	DefaultTemperature float32 = 0.35

	// DefaultMaxOutputTokens bounds the size of one response.
	DefaultMaxOutputTokens int32 = 8192

	responseMIMEType = "application/json"
)

// Gemini calls a Gemini model on Vertex AI.
type Gemini struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	metrics         *Metrics
	logger          *slog.Logger
}

// GeminiOption configures Gemini.
type GeminiOption func(*Gemini)

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GeminiOption {
	return func(g *Gemini) {
		g.temperature = t
	}
}

// WithMaxOutputTokens sets the response token limit.
func WithMaxOutputTokens(n int32) GeminiOption {
	return func(g *Gemini) {
		if n > 0 {
			g.maxOutputTokens = n
		}
	}
}

// WithMetrics sets where token usage is recorded.
func WithMetrics(m *Metrics) GeminiOption {
	return func(g *Gemini) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGemini creates a Vertex AI client for project and location.
// Credentials come from Application Default Credentials.
func NewGemini(ctx context.Context, project, location string, opts ...GeminiOption) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}
	return newGemini(client, opts...), nil
}

func newGemini(client *genai.Client, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		client:          client,
		model:           DefaultModel,
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
		metrics:         NewMetrics(MeterName),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the model name.
func (g *Gemini) Name() string {
	return g.model
}

// Generate sends the images followed by the user prompt in a single turn.
func (g *Gemini) Generate(ctx context.Context, prompt Prompt, images []Image) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      ptr(g.temperature),
		MaxOutputTokens:  g.maxOutputTokens,
		ResponseMIMEType: responseMIMEType,
	}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt.User})

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	g.logger.Debug("calling model", "model", g.model, "images", len(images))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	g.metrics.RecordCall(ctx, g.model, err)
	if err != nil {
		if IsTransient(err) {
			return "", fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return "", fmt.Errorf("generating content with %q: %w", g.model, err)
	}

	if resp.UsageMetadata != nil {
		g.metrics.RecordTokens(ctx, g.model,
			int64(resp.UsageMetadata.PromptTokenCount),
			int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func ptr[T any](v T) *T {
	return &v
}
