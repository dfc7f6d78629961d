package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/retry"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "criticat"

	// DefaultLocation is the Vertex AI region.
	DefaultLocation = "us-central1"

	// DefaultModel is the Gemini model that reviews pages.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature matches the sampling used for reviews since the
	// first release.
	DefaultTemperature float32 = 0.35

	// DefaultDPI is the page render resolution. 200 DPI keeps 10pt text
	// legible for the model while a letter page stays under 1 MB as JPEG.
	DefaultDPI = 200

	// DefaultJPEGQuality is the page image quality.
	DefaultJPEGQuality = 90

	// DefaultBatchSize is the number of pages sent in one model call.
	// One page per call gives the model the most attention per page.
	DefaultBatchSize = 1

	// DefaultConcurrency bounds parallel model calls to stay inside the
	// default Vertex AI per-minute quota.
	DefaultConcurrency = 4

	// DefaultMaxRetries is the number of retries for transient model errors.
	DefaultMaxRetries = 5

	// DefaultBaseBackoff and DefaultMaxBackoff bound the retry wait.
	DefaultBaseBackoff = time.Second
	DefaultMaxBackoff  = 60 * time.Second

	// DefaultTimeout bounds a whole review.
	DefaultTimeout = 10 * time.Minute

	// DefaultOutputFile is where the JSON feedback is written.
	DefaultOutputFile = "criticat_feedback.json"

	// DefaultEnvFile is the dotenv file read at startup when present.
	DefaultEnvFile = ".envrc"

	// DefaultServerAddress is where `criticat serve` listens for HTTP transports.
	DefaultServerAddress = "0.0.0.0:8000"
)

// Config holds every setting of a review run. It is assembled once from
// defaults, the config file, the environment and CLI flags, validated, and
// then passed by value.
type Config struct {
	// PDFPath is the document to review.
	PDFPath string

	// ProjectID and Location select the Google Cloud project and Vertex AI region.
	ProjectID string
	Location  string

	// Model is the Gemini model name.
	Model string

	// Temperature is the model sampling temperature (0-2).
	Temperature float32

	// JokeMode controls cat joke injection.
	JokeMode model.JokeMode

	// DPI and JPEGQuality control page rendering.
	DPI         int
	JPEGQuality int

	// BatchSize is the number of pages per model call.
	BatchSize int

	// Concurrency is the maximum number of model calls in flight.
	Concurrency int

	// MaxRetries, BaseBackoff and MaxBackoff bound retries of transient
	// model errors.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Timeout bounds the whole review. Zero disables the deadline.
	Timeout time.Duration

	// FailOn is the lowest issue severity that fails a page.
	FailOn model.Severity

	// OutputFile is the JSON feedback path. Empty disables the file.
	OutputFile string

	// MarkdownFile, when set, receives the Markdown rendering of the report.
	MarkdownFile string

	// Repository ("owner/name"), PRNumber and GitHubToken enable posting
	// the review as a pull request comment.
	Repository  string
	PRNumber    int
	GitHubToken string

	// DBDir is the directory of the review history database.
	DBDir string

	// SaveToDB records the review in the history database.
	SaveToDB bool

	// Seed fixes the joke selection when Seeded is true.
	Seed   uint64
	Seeded bool

	// ServerAddress is the listen address of the HTTP transports.
	ServerAddress string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the YAML config file. When empty, .criticat is
	// searched in the working directory and the home directory.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Location:      DefaultLocation,
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		JokeMode:      model.JokeModeDefault,
		DPI:           DefaultDPI,
		JPEGQuality:   DefaultJPEGQuality,
		BatchSize:     DefaultBatchSize,
		Concurrency:   DefaultConcurrency,
		MaxRetries:    DefaultMaxRetries,
		BaseBackoff:   DefaultBaseBackoff,
		MaxBackoff:    DefaultMaxBackoff,
		Timeout:       DefaultTimeout,
		FailOn:        model.SeverityLow,
		OutputFile:    DefaultOutputFile,
		DBDir:         XDGDataDir(),
		ServerAddress: DefaultServerAddress,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/criticat on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/criticat on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// RetryConfig returns the backoff settings for model calls.
func (c *Config) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = c.MaxRetries
	cfg.BaseBackoff = c.BaseBackoff
	cfg.MaxBackoff = c.MaxBackoff
	return cfg
}

// ShouldComment reports whether the review should be posted to a pull request.
func (c *Config) ShouldComment() bool {
	return c.Repository != "" && c.PRNumber > 0 && c.GitHubToken != ""
}

// RepositoryParts splits Repository into owner and name.
func (c *Config) RepositoryParts() (owner, name string, err error) {
	owner, name, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, c.Repository)
	}
	return owner, name, nil
}

// ValidateReview checks the settings shared by every review, regardless of
// where the document comes from. The first problem found is returned.
func (c *Config) ValidateReview() error {
	if c.ProjectID == "" {
		return ErrNoProjectID
	}
	if c.Location == "" {
		return ErrNoLocation
	}
	if _, err := model.ParseJokeMode(string(c.JokeMode)); err != nil || c.JokeMode == "" {
		return fmt.Errorf("%w: %q", ErrInvalidJokeMode, c.JokeMode)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrInvalidTemperature
	}
	if c.DPI < 36 || c.DPI > 600 {
		return ErrInvalidDPI
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return ErrInvalidJPEGQuality
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxRetries < 0 || c.BaseBackoff < 0 || c.MaxBackoff < c.BaseBackoff {
		return ErrInvalidRetry
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if !c.FailOn.Valid() {
		return ErrInvalidFailOn
	}
	if c.Repository != "" {
		if _, _, err := c.RepositoryParts(); err != nil {
			return err
		}
	}
	if c.PRNumber < 0 {
		return ErrInvalidPRNumber
	}
	return nil
}

// Validate checks a CLI review configuration: ValidateReview plus a
// document path.
func (c *Config) Validate() error {
	if c.PDFPath == "" {
		return ErrNoPDFPath
	}
	return c.ValidateReview()
}
