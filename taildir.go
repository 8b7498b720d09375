// Package taildir provides a simplified, stable root-level API for external
// users.
//
// Instead of importing internal subpackages like
// "github.com/renjunqu/taildir/internal/reader", consumers can just:
//
//	import "github.com/renjunqu/taildir"
//
// and then use taildir.NewReader or taildir.NewSource directly.
package taildir

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/renjunqu/taildir/internal/event"
	"github.com/renjunqu/taildir/internal/metrics"
	"github.com/renjunqu/taildir/internal/reader"
	"github.com/renjunqu/taildir/internal/source"
	"github.com/renjunqu/taildir/internal/tailfile"
)

// Event re-exports event.Event for root-level usage.
type Event = event.Event

// Reader re-exports reader.Reader so callers can keep the concrete type
// when using the root-level constructor.
type Reader = reader.Reader

// ReaderConfig re-exports reader.Config.
type ReaderConfig = reader.Config

// TailFile re-exports tailfile.TailFile.
type TailFile = tailfile.TailFile

// Source re-exports source.Source.
type Source = source.Source

// SourceConfig re-exports source.Config.
type SourceConfig = source.Config

// Sink re-exports source.Sink, the delivery boundary of the engine.
type Sink = source.Sink

// ErrNoCurrentFile re-exports the invalid-read-state sentinel.
var ErrNoCurrentFile = reader.ErrNoCurrentFile

// DefaultFileNameHeaderKey is the default header key carrying the source
// file's absolute path.
const DefaultFileNameHeaderKey = event.DefaultFileNameHeaderKey

// NewReader constructs a Reader using the provided configuration. It is a
// thin wrapper around reader.New.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	return reader.New(cfg)
}

// NewSource constructs a Source driving a fresh Reader into the given sink.
func NewSource(cfg SourceConfig, sink Sink) (*Source, error) {
	return source.New(cfg, sink)
}

// InodeFromPath re-exports the utility to resolve a path's inode.
func InodeFromPath(path string) (uint64, error) {
	return tailfile.InodeFromPath(path)
}

// StartMetrics registers taildir metrics on the default Prometheus registry
// and starts an HTTP server. It returns a stop function to gracefully shut
// down the metrics server.
func StartMetrics(addr string) (func() error, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}
	srv, err := metrics.Start(addr)
	if err != nil {
		return nil, err
	}
	return srv.Stop, nil
}
