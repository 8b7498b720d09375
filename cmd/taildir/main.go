package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	cmdmetrics "github.com/renjunqu/taildir/cmd/taildir/metrics"
	"github.com/renjunqu/taildir/internal/metrics"
	"github.com/renjunqu/taildir/internal/source"
)

func main() {
	config := DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "taildir",
		Short: "Tails log file groups and forwards records with provenance headers",
		Long: `taildir watches glob-defined file groups, tracks per-file read offsets by
inode, checkpoints them to a JSON position file, and forwards decoded records
to a sink under an at-least-once delivery contract. Rotation and truncation
of the tailed files are detected without losing position.

Examples:
  # Tail one file group and print records to stdout
  taildir --file-group app=/var/log/app/*.log --position-file /var/lib/taildir/position.json

  # Start at the end of newly found files, custom poll interval
  taildir -g app=/var/log/app/*.log -p position.json --skip-to-end -i 5s

  # Forward to ClickHouse (backend settings in the config file)
  taildir --config taildir.yaml`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadFromViper(cmd); err != nil {
				return err
			}
			return config.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(config)
		},
	}

	config.SetupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func runSource(config *Config) error {
	// Optionally start Prometheus metrics endpoint
	var metricsStop = func() error { return nil }
	if config.Prometheus.Enable {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("failed to register prometheus metrics: %w", err)
		}
		if err := cmdmetrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("failed to register sink metrics: %w", err)
		}
		metricsServer, err := metrics.Start(config.Prometheus.Addr)
		if err != nil {
			return fmt.Errorf("failed to start prometheus endpoint: %w", err)
		}
		metricsStop = metricsServer.Stop
	}

	sink, err := buildSink(config)
	if err != nil {
		_ = metricsStop()
		return errors.New("error creating sink: " + err.Error())
	}

	src, err := source.New(config.Source, sink)
	if err != nil {
		_ = sink.Stop()
		_ = metricsStop()
		return errors.New("error creating source: " + err.Error())
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	src.Start()

	fmt.Println("Running... Press Ctrl+C to stop")
	<-sigCh

	fmt.Println("Shutting down...")
	src.Stop()
	if err := sink.Stop(); err != nil {
		slog.Error("failed to stop sink", "error", err)
	}
	_ = metricsStop()

	return nil
}
