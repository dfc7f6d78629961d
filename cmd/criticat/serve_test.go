package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/server"
)

// TestNewServeCmd tests the serve command creation.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("expected use 'serve', got %q", cmd.Use)
	}

	flag := cmd.Flags().Lookup("transport")
	if flag == nil {
		t.Fatal("expected transport flag")
	}
	if flag.Shorthand != "t" || flag.DefValue != string(server.TransportStdio) {
		t.Errorf("transport flag = -%s default %q", flag.Shorthand, flag.DefValue)
	}
	if cmd.Flags().Lookup("address") == nil {
		t.Error("expected address flag")
	}
}

func TestBuildServeConfig(t *testing.T) {
	t.Parallel()

	configPath := writeConfigFile(t, "project_id: p\nserver_address: 127.0.0.1:9000\noutput: feedback.json\n")
	noEnv := filepath.Join(t.TempDir(), "missing.envrc")

	cmd := NewServeCmd()
	args := []string{"-c", configPath, "--env-file", noEnv, "-a", "127.0.0.1:9100", "-j", "chaotic"}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildServeConfig(context.Background(), cmd)
	if err != nil {
		t.Fatalf("buildServeConfig() error = %v", err)
	}
	if cfg.ServerAddress != "127.0.0.1:9100" {
		t.Errorf("ServerAddress = %q", cfg.ServerAddress)
	}
	if cfg.JokeMode != model.JokeModeChaotic {
		t.Errorf("JokeMode = %q", cfg.JokeMode)
	}
	if cfg.OutputFile != "" || cfg.SaveToDB {
		t.Errorf("server must not write files: output %q, db %v", cfg.OutputFile, cfg.SaveToDB)
	}
}

func TestRunServeCmdUnknownTransport(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-t", "carrier-pigeon"})

	if err := cmd.Execute(); !errors.Is(err, server.ErrUnknownTransport) {
		t.Errorf("Execute() error = %v, want ErrUnknownTransport", err)
	}
}

func TestSetupServeLogger(t *testing.T) {
	t.Parallel()

	for _, transport := range server.Transports {
		for _, verbose := range []bool{false, true} {
			logger := setupServeLogger(transport, verbose)
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != verbose {
				t.Errorf("setupServeLogger(%s, %v) debug enabled = %v", transport, verbose, got)
			}
		}
	}
}
