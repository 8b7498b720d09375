package main

import (
	"fmt"
	"os"

	"github.com/renjunqu/taildir/cmd/taildir/sink/clickhouse"
	"github.com/renjunqu/taildir/cmd/taildir/sink/console"
	"github.com/renjunqu/taildir/cmd/taildir/sink/file"
	"github.com/renjunqu/taildir/cmd/taildir/sink/opensearch"
	"github.com/renjunqu/taildir/internal/source"
)

// buildSink constructs the configured delivery backend.
func buildSink(cfg *Config) (source.Sink, error) {
	host := cfg.Sink.Host
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		}
	}
	switch cfg.Sink.Type {
	case "console":
		return console.New(cfg.Sink.Console.Stream, cfg.Sink.Include, cfg.Sink.Exclude), nil
	case "file":
		return file.New(cfg.Sink.File, cfg.Sink.Include, cfg.Sink.Exclude)
	case "clickhouse":
		return clickhouse.New(cfg.Sink.ClickHouse, host, cfg.Sink.Labels, cfg.Sink.Include, cfg.Sink.Exclude)
	case "opensearch":
		return opensearch.New(cfg.Sink.OpenSearch, host, cfg.Sink.Labels, cfg.Sink.Include, cfg.Sink.Exclude)
	default:
		return nil, fmt.Errorf("invalid sink.type: %s", cfg.Sink.Type)
	}
}
