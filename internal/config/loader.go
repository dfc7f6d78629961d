package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/FarDust/criticat/internal/model"
)

// DefaultConfigFile is the configuration file name searched for.
const DefaultConfigFile = ".criticat"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile returns the configuration file to use, or "" when there is
// none. An explicit configPath is used only if it exists; otherwise
// .criticat is looked up in the working directory, then the home directory.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Apply overrides c with every setting present in f.
func (f *File) Apply(c *Config) error {
	setString(&c.ProjectID, f.ProjectID)
	setString(&c.Location, f.Location)
	setString(&c.Model, f.Model)
	setString(&c.OutputFile, f.Output)
	setString(&c.MarkdownFile, f.Markdown)
	setString(&c.DBDir, f.DBDir)
	setString(&c.ServerAddress, f.ServerAddress)
	setString(&c.Repository, f.GitHub.Repository)

	if f.Temperature != nil {
		c.Temperature = *f.Temperature
	}
	if f.JokeMode != "" {
		mode, err := model.ParseJokeMode(f.JokeMode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJokeMode, err)
		}
		c.JokeMode = mode
	}
	if f.FailOn != "" {
		s, err := model.ParseSeverity(f.FailOn)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFailOn, err)
		}
		c.FailOn = s
	}

	setInt(&c.DPI, f.Render.DPI)
	setInt(&c.JPEGQuality, f.Render.JPEGQuality)
	setInt(&c.BatchSize, f.Analysis.BatchSize)
	setInt(&c.Concurrency, f.Analysis.Concurrency)
	if f.Analysis.MaxRetries != nil {
		c.MaxRetries = *f.Analysis.MaxRetries
	}
	if f.Analysis.BaseBackoff != 0 {
		c.BaseBackoff = f.Analysis.BaseBackoff
	}
	if f.Analysis.MaxBackoff != 0 {
		c.MaxBackoff = f.Analysis.MaxBackoff
	}
	if f.Analysis.Timeout != 0 {
		c.Timeout = f.Analysis.Timeout
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
