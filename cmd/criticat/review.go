package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/FarDust/criticat/internal/config"
	"github.com/FarDust/criticat/internal/database"
	"github.com/FarDust/criticat/internal/github"
	"github.com/FarDust/criticat/internal/log"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/pipeline"
	"github.com/FarDust/criticat/internal/report"
)

// Output formats of the review command.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// errInvalidFormat is returned for an unknown --format value.
var errInvalidFormat = errors.New("invalid format: must be text, json or markdown")

// NewReviewCmd creates the review command.
func NewReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [pdf-path]",
		Short: "Review a PDF for formatting problems",
		Long: `Review renders every page of a PDF, asks a Gemini vision model on Vertex AI
to inspect it, and reports the formatting problems found.

The verdict is written to criticat_feedback.json:
  {"pass": false, "issues": [{"page": 1, "description": "...", "severity": "medium"}], "jokes": ["..."]}

Pages that could not be analyzed are listed under "unanalyzed_pages" and
make the review fail. The command exits 0 whenever the review completes,
even when the document fails it; it exits non-zero when the PDF cannot be
rendered, no page could be analyzed, or the review is interrupted.

When the review fails and --repository, --pr-number and a GitHub token are
set, the review is posted as a pull request comment.

Examples:
  # Review a document
  criticat review thesis.pdf --project-id my-project

  # Chaotic cat mode, Markdown on stdout
  criticat review thesis.pdf -j chaotic -f markdown

  # Comment on a pull request from CI
  criticat review paper.pdf --repository owner/repo --pr-number 42

  # Only fail on medium and high severity issues
  criticat review paper.pdf --fail-on medium`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReviewCmd,
	}

	flags := cmd.Flags()

	// Document and model
	flags.StringP("pdf-path", "p", "", "PDF document to review (alternative to the argument)")
	flags.String("project-id", "", "Google Cloud project for Vertex AI (env: CRITICAT_GCP_PROJECT_ID)")
	flags.StringP("location", "l", config.DefaultLocation, "Vertex AI region (env: CRITICAT_GCP_LOCATION)")
	flags.String("model", config.DefaultModel, "Gemini model")
	flags.Float32("temperature", config.DefaultTemperature, "Model sampling temperature (0-2)")

	// Review behavior
	flags.StringP("joke-mode", "j", string(model.JokeModeDefault), "Cat joke mode: none, default or chaotic")
	flags.String("fail-on", model.SeverityLow.String(), "Lowest issue severity that fails a page: low, medium or high")
	flags.Int("dpi", config.DefaultDPI, "Page render resolution")
	flags.Int("batch-size", config.DefaultBatchSize, "Pages per model call")
	flags.Int("concurrency", config.DefaultConcurrency, "Maximum model calls in flight")
	flags.Int("max-retries", config.DefaultMaxRetries, "Retries of transient model errors")
	flags.DurationP("timeout", "t", config.DefaultTimeout, "Deadline for the whole review (0 disables)")
	flags.Uint64("seed", 0, "Fix the joke selection for reproducible output")

	// Output
	flags.StringP("output", "o", config.DefaultOutputFile, "JSON feedback file (empty disables)")
	flags.StringP("markdown", "m", "", "Also write the review as Markdown to this file")
	flags.StringP("format", "f", formatText, "Output on stdout: text, json or markdown")
	flags.Bool("no-db", false, "Do not record the review in the history database")
	flags.String("db-dir", "", "History database directory (default: XDG data directory)")

	// GitHub
	flags.String("repository", "", "GitHub repository owner/name (env: CRITICAT_REPOSITORY, GITHUB_REPOSITORY)")
	flags.Int("pr-number", 0, "Pull request to comment on (env: CRITICAT_PR_NUMBER)")
	flags.String("github-token", "", "GitHub token (env: CRITICAT_GITHUB_TOKEN, GITHUB_TOKEN)")

	// Configuration sources
	flags.StringP("config", "c", "", "Configuration file path (default: .criticat in current or home directory)")
	flags.String("env-file", config.DefaultEnvFile, "dotenv file read when present")

	return cmd
}

// runReviewCmd executes the review command.
func runReviewCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := buildConfig(ctx, cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	orchestrator, err := pipeline.NewFromConfig(ctx, *cfg, logger)
	if err != nil {
		return err
	}

	var commenter github.Commenter
	if cfg.ShouldComment() {
		commenter, err = github.NewClient(cfg.GitHubToken, github.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	return runReview(ctx, cmd.OutOrStdout(), cfg, format, orchestrator, commenter, logger)
}

// reviewer runs the pipeline on one document.
type reviewer interface {
	Review(ctx context.Context, doc pipeline.Document) (*pipeline.Result, error)
}

// runReview reviews cfg.PDFPath and delivers the report: the feedback file,
// the optional Markdown file, stdout, the history database and the pull
// request comment. Only a failed review is an error; delivery problems
// after the report exists are logged.
func runReview(ctx context.Context, out io.Writer, cfg *config.Config, format string,
	r reviewer, commenter github.Commenter, logger *slog.Logger) error {
	data, err := os.ReadFile(cfg.PDFPath)
	if err != nil {
		return fmt.Errorf("failed to read PDF: %w", err)
	}

	res, err := r.Review(ctx, pipeline.Document{Name: cfg.PDFPath, Data: data})
	if err != nil {
		return fmt.Errorf("review of %s failed: %w", cfg.PDFPath, err)
	}

	if cfg.OutputFile != "" {
		if err := writeFile(cfg.OutputFile, res.JSON); err != nil {
			return err
		}
		logger.Info("feedback written", "path", cfg.OutputFile)
	}

	w := newStdoutWriter(out, format, cfg.Verbose)
	if cfg.MarkdownFile != "" {
		f, err := createFile(cfg.MarkdownFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = report.NewMultiWriter(w, report.NewMarkdownWriter(f))
	}
	if _, err := w.Write(res.Report); err != nil {
		return err
	}

	if cfg.SaveToDB {
		if err := saveReview(ctx, cfg.DBDir, res.Report, logger); err != nil {
			logger.Error("failed to save review", "error", err)
		}
	}

	if commenter != nil && !res.Report.Verdict.Pass {
		if err := commentOnPR(ctx, cfg, commenter, res.Report); err != nil {
			logger.Error("failed to comment on pull request", "error", err)
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	return nil
}

// newStdoutWriter returns the Writer for format.
func newStdoutWriter(out io.Writer, format string, verbose bool) report.Writer {
	switch format {
	case formatJSON:
		return report.NewJSONWriter(out)
	case formatMarkdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(verbose))
	}
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatMarkdown:
		return nil
	default:
		return fmt.Errorf("%w: %q", errInvalidFormat, format)
	}
}

// createFile creates path for writing, creating parent directories.
func createFile(path string) (*os.File, error) {
	if err := mkdirParent(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

func mkdirParent(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return nil
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if err := mkdirParent(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// saveReview records the review in the history database in dbDir.
func saveReview(ctx context.Context, dbDir string, r model.ReviewReport, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveReview(ctx, r)
	if err != nil {
		return err
	}
	logger.Info("review saved to database", "id", id, "document", r.Metadata.Document)
	return nil
}

// commentOnPR posts the Markdown review to the configured pull request.
func commentOnPR(ctx context.Context, cfg *config.Config, commenter github.Commenter, r model.ReviewReport) error {
	owner, repo, err := cfg.RepositoryParts()
	if err != nil {
		return err
	}
	body, err := report.RenderMarkdown(r)
	if err != nil {
		return err
	}
	_, err = commenter.Comment(ctx, github.Target{Owner: owner, Repo: repo, PR: cfg.PRNumber}, body)
	return err
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger returns the secure stderr logger.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// buildConfig creates a Config from the config file, the environment and
// the flags the user set, in increasing precedence.
func buildConfig(ctx context.Context, cmd *cobra.Command, args []string) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, configPath, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyReviewFlags(flags, cfg); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.PDFPath = args[0]
	}
	if cfg.PDFPath != "" {
		cfg.PDFPath = filepath.Clean(cfg.PDFPath)
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyReviewFlags overrides cfg with every flag set on the command line.
func applyReviewFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	setters := []error{
		setFlag(flags, "pdf-path", flags.GetString, &cfg.PDFPath),
		setFlag(flags, "project-id", flags.GetString, &cfg.ProjectID),
		setFlag(flags, "location", flags.GetString, &cfg.Location),
		setFlag(flags, "model", flags.GetString, &cfg.Model),
		setFlag(flags, "temperature", flags.GetFloat32, &cfg.Temperature),
		setFlag(flags, "dpi", flags.GetInt, &cfg.DPI),
		setFlag(flags, "batch-size", flags.GetInt, &cfg.BatchSize),
		setFlag(flags, "concurrency", flags.GetInt, &cfg.Concurrency),
		setFlag(flags, "max-retries", flags.GetInt, &cfg.MaxRetries),
		setFlag(flags, "timeout", flags.GetDuration, &cfg.Timeout),
		setFlag(flags, "output", flags.GetString, &cfg.OutputFile),
		setFlag(flags, "markdown", flags.GetString, &cfg.MarkdownFile),
		setFlag(flags, "repository", flags.GetString, &cfg.Repository),
		setFlag(flags, "pr-number", flags.GetInt, &cfg.PRNumber),
		setFlag(flags, "github-token", flags.GetString, &cfg.GitHubToken),
		setFlag(flags, "db-dir", flags.GetString, &cfg.DBDir),
	}
	if err := errors.Join(setters...); err != nil {
		return err
	}

	if flags.Changed("joke-mode") {
		v, err := flags.GetString("joke-mode")
		if err != nil {
			return err
		}
		mode, err := model.ParseJokeMode(v)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidJokeMode, err)
		}
		cfg.JokeMode = mode
	}

	if flags.Changed("fail-on") {
		v, err := flags.GetString("fail-on")
		if err != nil {
			return err
		}
		s, err := model.ParseSeverity(v)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidFailOn, err)
		}
		cfg.FailOn = s
	}

	if flags.Changed("seed") {
		seed, err := flags.GetUint64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = seed
		cfg.Seeded = true
	}

	return nil
}

// setFlag stores the value of flag name in dst when the user set it.
func setFlag[T any](flags *pflag.FlagSet, name string, get func(string) (T, error), dst *T) error {
	if flags.Lookup(name) == nil || !flags.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
