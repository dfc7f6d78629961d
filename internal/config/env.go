package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/FarDust/criticat/internal/model"
)

// EnvPrefix prefixes every criticat environment variable.
const EnvPrefix = "CRITICAT_"

// Env holds the CRITICAT_* environment variables.
type Env struct {
	ProjectID   string `env:"GCP_PROJECT_ID"`
	Location    string `env:"GCP_LOCATION"`
	Model       string `env:"MODEL"`
	JokeMode    string `env:"JOKE_MODE"`
	FailOn      string `env:"FAIL_ON"`
	Concurrency int    `env:"CONCURRENCY"`
	BatchSize   int    `env:"BATCH_SIZE"`
	DPI         int    `env:"DPI"`
	GitHubToken string `env:"GITHUB_TOKEN"`
	Repository  string `env:"REPOSITORY"`
	PRNumber    int    `env:"PR_NUMBER"`
	ServerHost  string `env:"SERVER_HOST"`
	ServerPort  int    `env:"SERVER_PORT"`
}

// platformEnv holds variables set by gcloud and GitHub Actions that are
// used when the CRITICAT_* equivalent is absent.
type platformEnv struct {
	CloudSDKProject    string `env:"CLOUDSDK_CORE_PROJECT"`
	GoogleCloudProject string `env:"GOOGLE_CLOUD_PROJECT"`
	CloudSDKRegion     string `env:"CLOUDSDK_COMPUTE_REGION"`
	GitHubToken        string `env:"GITHUB_TOKEN"`
	GitHubRepository   string `env:"GITHUB_REPOSITORY"`
}

// NewLookuper returns a lookuper over the process environment, falling back
// to the variables in the dotenv file at envFile. A missing file is not an
// error.
func NewLookuper(envFile string) (envconfig.Lookuper, error) {
	base := envconfig.OsLookuper()
	if envFile == "" {
		return base, nil
	}
	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}
	return envconfig.MultiLookuper(base, envconfig.MapLookuper(values)), nil
}

// ApplyEnv overrides c with the environment visible through lookuper.
func ApplyEnv(ctx context.Context, c *Config, lookuper envconfig.Lookuper) error {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return fmt.Errorf("processing %s* environment: %w", EnvPrefix, err)
	}

	var platform platformEnv
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &platform,
		Lookuper: lookuper,
	}); err != nil {
		return fmt.Errorf("processing environment: %w", err)
	}

	setString(&c.ProjectID, firstNonEmpty(env.ProjectID, platform.CloudSDKProject, platform.GoogleCloudProject))
	setString(&c.Location, firstNonEmpty(env.Location, platform.CloudSDKRegion))
	setString(&c.Model, env.Model)
	setString(&c.GitHubToken, firstNonEmpty(env.GitHubToken, platform.GitHubToken))
	setString(&c.Repository, firstNonEmpty(env.Repository, platform.GitHubRepository))
	setInt(&c.PRNumber, env.PRNumber)
	setInt(&c.Concurrency, env.Concurrency)
	setInt(&c.BatchSize, env.BatchSize)
	setInt(&c.DPI, env.DPI)

	if env.JokeMode != "" {
		mode, err := model.ParseJokeMode(env.JokeMode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJokeMode, err)
		}
		c.JokeMode = mode
	}
	if env.FailOn != "" {
		s, err := model.ParseSeverity(env.FailOn)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFailOn, err)
		}
		c.FailOn = s
	}

	if env.ServerHost != "" || env.ServerPort != 0 {
		host, port := "0.0.0.0", 8000
		if env.ServerHost != "" {
			host = env.ServerHost
		}
		if env.ServerPort != 0 {
			port = env.ServerPort
		}
		c.ServerAddress = host + ":" + strconv.Itoa(port)
	}
	return nil
}

// Load builds a Config from defaults, the config file and the environment.
// CLI flags are applied on top by the caller.
func Load(ctx context.Context, configPath, envFile string) (*Config, error) {
	c := NewConfig()
	c.ConfigFilePath = configPath

	if path := FindConfigFile(configPath); path != "" {
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(c); err != nil {
			return nil, err
		}
		c.ConfigFilePath = path
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	lookuper, err := NewLookuper(envFile)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(ctx, c, lookuper); err != nil {
		return nil, err
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
