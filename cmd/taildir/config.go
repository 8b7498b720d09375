package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/renjunqu/taildir/cmd/taildir/sink/clickhouse"
	"github.com/renjunqu/taildir/cmd/taildir/sink/console"
	"github.com/renjunqu/taildir/cmd/taildir/sink/file"
	"github.com/renjunqu/taildir/cmd/taildir/sink/opensearch"
	"github.com/renjunqu/taildir/internal/source"
)

// SinkConfig selects and configures the delivery backend.
type SinkConfig struct {
	Type    string            `mapstructure:"type"` // "console", "file", "clickhouse", "opensearch"
	Include []string          `mapstructure:"include"`
	Exclude []string          `mapstructure:"exclude"`
	Host    string            `mapstructure:"host"`   // override host; default os.Hostname()
	Labels  map[string]string `mapstructure:"labels"` // optional key-value labels

	Console    console.Config    `mapstructure:"console"`
	ClickHouse clickhouse.Config `mapstructure:"clickhouse"`
	OpenSearch opensearch.Config `mapstructure:"opensearch"`
	File       file.Config       `mapstructure:"file"`
}

// PrometheusConfig holds metrics endpoint options.
type PrometheusConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
}

// Config holds all configuration options for the taildir application.
type Config struct {
	// Optional config file path (flag/env only)
	ConfigFile string
	// Source/reader configuration (nested)
	Source source.Config `mapstructure:"source"`
	// Delivery sink (nested)
	Sink SinkConfig `mapstructure:"sink"`
	// Metrics/Prometheus options
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// LoadFromViper binds flags to viper, reads file/env, and populates the
// Config fields via mapstructure.
func (c *Config) LoadFromViper(cmd *cobra.Command) error {
	v := viper.GetViper()
	v.SetEnvPrefix("TAILDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Determine config file path: --config flag or TAILDIR_CONFIG env.
	if c.ConfigFile == "" {
		c.ConfigFile = v.GetString("config")
	}
	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return err
	}
	return nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		Sink: SinkConfig{
			Type:    "console",
			Include: []string{},
			Exclude: []string{},
			Labels:  map[string]string{},
			Console: console.Config{Stream: "stdout"},
		},
		Prometheus: PrometheusConfig{Enable: false, Addr: ":2112"},
	}
	cfg.Source.Default()
	return cfg
}

// SetupFlags adds all command line flags to the provided cobra command.
func (c *Config) SetupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.ConfigFile, "config", c.ConfigFile, "Path to config file (yaml/json/toml)")

	// Reader flags (write directly into nested struct)
	cmd.Flags().StringToStringVarP(&c.Source.Reader.FileGroups, "file-group", "g", c.Source.Reader.FileGroups,
		"File group as name=glob (e.g., app=/var/log/app/*.log); repeatable")
	cmd.Flags().StringVarP(&c.Source.Reader.PositionFilePath, "position-file", "p", c.Source.Reader.PositionFilePath,
		"Path to the JSON position file")
	cmd.Flags().BoolVar(&c.Source.Reader.SkipToEnd, "skip-to-end", c.Source.Reader.SkipToEnd,
		"Start newly discovered files at their end instead of byte 0")
	cmd.Flags().BoolVar(&c.Source.Reader.AddByteOffset, "add-byte-offset", c.Source.Reader.AddByteOffset,
		"Attach each event's byte offset as a header")
	cmd.Flags().BoolVar(&c.Source.Reader.CachePatternMatching, "cache-pattern-matching", c.Source.Reader.CachePatternMatching,
		"Reuse directory match results until the directory changes")
	cmd.Flags().BoolVar(&c.Source.Reader.AnnotateFileName, "annotate-file-name", c.Source.Reader.AnnotateFileName,
		"Attach the source path and basename as headers")
	cmd.Flags().StringVar(&c.Source.Reader.FileNameHeaderKey, "file-name-header-key", c.Source.Reader.FileNameHeaderKey,
		"Header key for the source file path")

	// Scheduler flags
	cmd.Flags().DurationVarP(&c.Source.PollInterval, "poll-interval", "i", c.Source.PollInterval,
		"Interval between reconciliation passes")
	cmd.Flags().IntVarP(&c.Source.BatchSize, "batch-size", "b", c.Source.BatchSize,
		"Maximum number of events per read/commit cycle")
	cmd.Flags().DurationVar(&c.Source.WritePositionInterval, "write-position-interval", c.Source.WritePositionInterval,
		"Interval between position file writes")
	cmd.Flags().DurationVar(&c.Source.IdleTimeout, "idle-timeout", c.Source.IdleTimeout,
		"Close handles of files not updated for this long")

	// Sink backend credentials and group headers are configured via the
	// config file (--config or TAILDIR_CONFIG) or environment variables
	// (TAILDIR_SINK_TYPE, TAILDIR_SINK_CLICKHOUSE_ADDR, etc.).

	// Prometheus flags
	cmd.Flags().BoolVar(&c.Prometheus.Enable, "prometheus.enable", c.Prometheus.Enable, "Enable Prometheus metrics HTTP endpoint")
	cmd.Flags().StringVar(&c.Prometheus.Addr, "prometheus.addr", c.Prometheus.Addr, "Prometheus metrics listen address (e.g., :2112)")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Sink.Type {
	case "console":
		if err := c.Sink.Console.Validate(); err != nil {
			return err
		}
	case "file":
		if err := c.Sink.File.Validate(); err != nil {
			return err
		}
	case "clickhouse":
		if err := c.Sink.ClickHouse.Validate(); err != nil {
			return err
		}
	case "opensearch":
		if err := c.Sink.OpenSearch.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid sink.type: %s", c.Sink.Type)
	}

	if c.Prometheus.Enable && c.Prometheus.Addr == "" {
		return fmt.Errorf("prometheus.addr must be set when prometheus.enable is true")
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("invalid source config: %w", err)
	}
	return nil
}
