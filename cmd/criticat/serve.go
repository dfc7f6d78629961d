package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FarDust/criticat/internal/config"
	"github.com/FarDust/criticat/internal/log"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run criticat as an MCP server",
		Long: `Serve exposes the review pipeline to MCP clients.

The server offers one tool, review, which reviews a PDF on the server's
file system and returns the feedback JSON, and two resources:
criticat://health and criticat://rubric.

Settings from the configuration file and environment are the defaults of
every tool call; a call may override the project, region and joke mode.

Examples:
  # Serve over stdio for a local MCP client
  criticat serve

  # Serve streamable HTTP on port 8000
  criticat serve -t http -a 0.0.0.0:8000

  # Serve server-sent events
  criticat serve -t sse`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	flags := cmd.Flags()
	flags.StringP("transport", "t", string(server.TransportStdio), "Transport: stdio, sse or http")
	flags.StringP("address", "a", config.DefaultServerAddress, "Listen address for sse and http (env: CRITICAT_SERVER_HOST, CRITICAT_SERVER_PORT)")
	flags.String("project-id", "", "Google Cloud project for Vertex AI (env: CRITICAT_GCP_PROJECT_ID)")
	flags.StringP("location", "l", config.DefaultLocation, "Vertex AI region (env: CRITICAT_GCP_LOCATION)")
	flags.StringP("joke-mode", "j", string(model.JokeModeDefault), "Default cat joke mode: none, default or chaotic")
	flags.StringP("config", "c", "", "Configuration file path (default: .criticat in current or home directory)")
	flags.String("env-file", config.DefaultEnvFile, "dotenv file read when present")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := cmd.Flags()

	transportName, err := flags.GetString("transport")
	if err != nil {
		return err
	}
	transport, err := server.ParseTransport(transportName)
	if err != nil {
		return err
	}

	cfg, err := buildServeConfig(ctx, cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateReview(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// stdout carries the protocol on stdio; logs always go to stderr.
	logger := setupServeLogger(transport, cfg.Verbose)

	srv := server.New(*cfg,
		server.OrchestratorReviewer{Logger: logger},
		server.WithLogger(logger),
		server.WithVersion(getVersion()),
	)

	logger.Info("starting MCP server", "transport", transport, "address", cfg.ServerAddress)
	return srv.Serve(ctx, transport, cfg.ServerAddress)
}

// buildServeConfig loads the server defaults and applies the serve flags.
func buildServeConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
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

	if err := setFlag(flags, "address", flags.GetString, &cfg.ServerAddress); err != nil {
		return nil, err
	}
	if err := setFlag(flags, "project-id", flags.GetString, &cfg.ProjectID); err != nil {
		return nil, err
	}
	if err := setFlag(flags, "location", flags.GetString, &cfg.Location); err != nil {
		return nil, err
	}
	if flags.Changed("joke-mode") {
		v, err := flags.GetString("joke-mode")
		if err != nil {
			return nil, err
		}
		mode, err := model.ParseJokeMode(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidJokeMode, err)
		}
		cfg.JokeMode = mode
	}

	// The server never writes feedback files or history on its own.
	cfg.OutputFile = ""
	cfg.SaveToDB = false
	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// setupServeLogger logs JSON for the network transports and text on stdio.
func setupServeLogger(transport server.Transport, verbose bool) *slog.Logger {
	if transport == server.TransportStdio {
		return setupLogger(verbose)
	}
	return log.NewSecureJSONLogger(os.Stderr, verbose)
}
