package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/FarDust/criticat/internal/config"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/pipeline"
)

// Transport selects how the server is exposed.
type Transport string

// Transports.
const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// Transports lists the supported transports.
var Transports = []Transport{TransportStdio, TransportSSE, TransportHTTP}

// ErrUnknownTransport is returned by Serve for a transport not in Transports.
var ErrUnknownTransport = errors.New("unknown transport: must be stdio, sse or http")

// Resource URIs.
const (
	HealthURI = "criticat://health"
	RubricURI = "criticat://rubric"
)

// Reviewer runs a review with a per-request configuration.
type Reviewer interface {
	Review(ctx context.Context, cfg config.Config, doc pipeline.Document) (*pipeline.Result, error)
}

// OrchestratorReviewer builds a Gemini-backed Orchestrator for every request.
type OrchestratorReviewer struct {
	Logger *slog.Logger
}

// Review implements Reviewer.
func (r OrchestratorReviewer) Review(ctx context.Context, cfg config.Config, doc pipeline.Document) (*pipeline.Result, error) {
	o, err := pipeline.NewFromConfig(ctx, cfg, r.Logger)
	if err != nil {
		return nil, err
	}
	return o.Review(ctx, doc)
}

// Server exposes the review pipeline as an MCP tool.
type Server struct {
	base     config.Config
	reviewer Reviewer
	logger   *slog.Logger
	version  string
	started  time.Time
	mcp      *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported to clients and by the health resource.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a Server. base supplies every setting a request does not
// override.
func New(base config.Config, reviewer Reviewer, opts ...Option) *Server {
	s := &Server{
		base:     base,
		reviewer: reviewer,
		version:  "dev",
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mcp = server.NewMCPServer(config.AppName, s.version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)
	s.mcp.AddTool(reviewTool(), s.handleReview)
	s.mcp.AddResource(mcp.NewResource(HealthURI, "health",
		mcp.WithResourceDescription("Service status"),
		mcp.WithMIMEType("application/json"),
	), s.handleHealth)
	s.mcp.AddResource(mcp.NewResource(RubricURI, "rubric",
		mcp.WithResourceDescription("Formatting categories the review checks"),
		mcp.WithMIMEType("application/json"),
	), s.handleRubric)

	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func reviewTool() mcp.Tool {
	return mcp.NewTool("review",
		mcp.WithDescription(`Review a PDF for formatting and layout problems. Every page is rendered and inspected by a vision model. Returns the criticat_feedback.json document: pass, issues per page, unanalyzed pages and jokes.`),
		mcp.WithString("pdf_path",
			mcp.Required(),
			mcp.Description("Path to the PDF document on the server"),
		),
		mcp.WithString("project_id",
			mcp.Description("Google Cloud project for Vertex AI (defaults to the server configuration)"),
		),
		mcp.WithString("location",
			mcp.Description("Vertex AI region (defaults to the server configuration)"),
		),
		mcp.WithString("joke_mode",
			mcp.Description("Cat joke mode: none, default or chaotic"),
			mcp.Enum(string(model.JokeModeNone), string(model.JokeModeDefault), string(model.JokeModeChaotic)),
		),
	)
}

// handleReview runs the review tool. Review failures are reported as tool
// errors so the client can show them.
func (s *Server) handleReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.base
	cfg.PDFPath = req.GetString("pdf_path", "")
	if v := req.GetString("project_id", ""); v != "" {
		cfg.ProjectID = v
	}
	if v := req.GetString("location", ""); v != "" {
		cfg.Location = v
	}
	if v := req.GetString("joke_mode", ""); v != "" {
		mode, err := model.ParseJokeMode(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg.JokeMode = mode
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(cfg.PDFPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", cfg.PDFPath, err)), nil
	}

	s.logger.Info("review requested", "document", cfg.PDFPath, "joke_mode", cfg.JokeMode)
	res, err := s.reviewer.Review(ctx, cfg, pipeline.Document{Name: cfg.PDFPath, Data: data})
	if err != nil {
		s.logger.Warn("review failed", "document", cfg.PDFPath, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(res.JSON)), nil
}

// Health is the body of the health resource.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, Health{
		Status:  "ok",
		Service: config.AppName,
		Version: s.version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

// RubricEntry describes one formatting category.
type RubricEntry struct {
	Category    model.Category `json:"category"`
	Title       string         `json:"title"`
	Criterion   string         `json:"criterion"`
	MinSeverity model.Severity `json:"min_severity"`
}

func (s *Server) handleRubric(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries := make([]RubricEntry, 0, len(model.Categories))
	for _, c := range model.Categories {
		info := model.GetCategoryInfo(c)
		entries = append(entries, RubricEntry{
			Category:    c,
			Title:       info.Title,
			Criterion:   info.Criterion,
			MinSeverity: info.MinSeverity,
		})
	}
	return jsonResource(req.Params.URI, entries)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// Serve exposes the server on transport until ctx is cancelled. addr is
// ignored for stdio.
func (s *Server) Serve(ctx context.Context, transport Transport, addr string) error {
	switch transport {
	case TransportStdio:
		s.logger.Info("serving MCP over stdio")
		return server.ServeStdio(s.mcp)
	case TransportSSE:
		sse := server.NewSSEServer(s.mcp)
		return s.serveHTTP(ctx, transport, addr, sse.Start, sse.Shutdown)
	case TransportHTTP:
		streamable := server.NewStreamableHTTPServer(s.mcp)
		return s.serveHTTP(ctx, transport, addr, streamable.Start, streamable.Shutdown)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}

func (s *Server) serveHTTP(ctx context.Context, transport Transport, addr string,
	start func(string) error, shutdown func(context.Context) error) error {
	s.logger.Info("serving MCP", "transport", transport, "address", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down %s server: %w", transport, err)
		}
		return nil
	}
}

// ParseTransport parses a transport name.
func ParseTransport(s string) (Transport, error) {
	for _, t := range Transports {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransport, s)
}
