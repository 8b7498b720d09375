package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestDefaultConfigAndValidate(t *testing.T) {
	cfg := DefaultConfig()

	// Basic defaults
	if cfg.Sink.Type != "console" {
		t.Fatalf("default sink.type = %q, want console", cfg.Sink.Type)
	}
	if cfg.Prometheus.Enable {
		t.Fatal("prometheus.enable should default to false")
	}
	if cfg.Source.PollInterval != 2*time.Second {
		t.Fatalf("source.poll-interval = %v, want 2s", cfg.Source.PollInterval)
	}
	if !cfg.Source.Reader.CachePatternMatching {
		t.Fatal("reader.cache-pattern-matching should default to true")
	}

	// File groups and the position file are required, so a bare default
	// config must not validate.
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing file groups, got nil")
	}

	cfg.Source.Reader.FileGroups = map[string]string{"app": filepath.Join(t.TempDir(), "*.log")}
	cfg.Source.Reader.PositionFilePath = filepath.Join(t.TempDir(), "positions.json")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config with file groups should validate, got error: %v", err)
	}
}

func TestValidate_SinkTypes(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Source.Reader.FileGroups = map[string]string{"app": "/var/log/app/*.log"}
		cfg.Source.Reader.PositionFilePath = filepath.Join(t.TempDir(), "positions.json")
		return cfg
	}

	// Invalid sink.type should error
	cfg := base()
	cfg.Sink.Type = "does-not-exist"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid sink.type, got nil")
	}

	// File sink requires a path
	cfg2 := base()
	cfg2.Sink.Type = "file"
	cfg2.Sink.File.Path = ""
	if err := cfg2.Validate(); err == nil {
		t.Fatal("expected error when sink.type=file and sink.file.path is empty")
	}
	cfg2.Sink.File.Path = filepath.Join(t.TempDir(), "out.log")
	if err := cfg2.Validate(); err != nil {
		t.Fatalf("unexpected error for valid file sink: %v", err)
	}

	// Prometheus enabled without an address should error
	cfg3 := base()
	cfg3.Prometheus.Enable = true
	cfg3.Prometheus.Addr = ""
	if err := cfg3.Validate(); err == nil {
		t.Fatal("expected error when prometheus.enable is true with empty addr")
	}
}

func TestLoadFromViper_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	configYAML := `
sink:
  type: console
  console:
    stream: stderr
source:
  poll-interval: 5s
  reader:
    file-groups:
      app: ` + filepath.Join(dir, "*.log") + `
    position-file: ` + filepath.Join(dir, "positions.json") + `
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	cmd := &cobra.Command{Use: "taildir-test"}
	cfg.SetupFlags(cmd)

	if err := cmd.Flags().Set("config", configPath); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	// Flags should take precedence over file values
	if err := cmd.Flags().Set("prometheus.enable", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("prometheus.addr", "127.0.0.1:0"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("skip-to-end", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	if err := cfg.LoadFromViper(cmd); err != nil {
		t.Fatalf("LoadFromViper failed: %v", err)
	}

	// Values from the file
	if got := cfg.Sink.Console.Stream; got != "stderr" {
		t.Fatalf("sink.console.stream from file = %q, want stderr", got)
	}
	if got := cfg.Source.PollInterval; got != 5*time.Second {
		t.Fatalf("source.poll-interval from file = %v, want 5s", got)
	}
	if len(cfg.Source.Reader.FileGroups) != 1 {
		t.Fatalf("file-groups from file = %#v, want one group", cfg.Source.Reader.FileGroups)
	}

	// Values from flags
	if !cfg.Prometheus.Enable {
		t.Fatal("prometheus.enable should be true from flag override")
	}
	if got := cfg.Prometheus.Addr; got != "127.0.0.1:0" {
		t.Fatalf("prometheus.addr = %q, want 127.0.0.1:0", got)
	}
	if !cfg.Source.Reader.SkipToEnd {
		t.Fatal("skip-to-end should be true from flag override")
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed after LoadFromViper: %v", err)
	}
}
