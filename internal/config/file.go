package config

import "time"

// File is the structure of the .criticat YAML file. Every field is optional;
// zero values leave the current setting unchanged.
type File struct {
	ProjectID     string   `yaml:"project_id,omitempty"`
	Location      string   `yaml:"location,omitempty"`
	Model         string   `yaml:"model,omitempty"`
	Temperature   *float32 `yaml:"temperature,omitempty"`
	JokeMode      string   `yaml:"joke_mode,omitempty"`
	FailOn        string   `yaml:"fail_on,omitempty"`
	Output        string   `yaml:"output,omitempty"`
	Markdown      string   `yaml:"markdown_output,omitempty"`
	DBDir         string   `yaml:"db_dir,omitempty"`
	ServerAddress string   `yaml:"server_address,omitempty"`

	Render struct {
		DPI         int `yaml:"dpi,omitempty"`
		JPEGQuality int `yaml:"jpeg_quality,omitempty"`
	} `yaml:"render,omitempty"`

	Analysis struct {
		BatchSize   int           `yaml:"batch_size,omitempty"`
		Concurrency int           `yaml:"concurrency,omitempty"`
		MaxRetries  *int          `yaml:"max_retries,omitempty"`
		BaseBackoff time.Duration `yaml:"base_backoff,omitempty"`
		MaxBackoff  time.Duration `yaml:"max_backoff,omitempty"`
		Timeout     time.Duration `yaml:"timeout,omitempty"`
	} `yaml:"analysis,omitempty"`

	GitHub struct {
		Repository string `yaml:"repository,omitempty"`
	} `yaml:"github,omitempty"`
}
