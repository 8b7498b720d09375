// Package source drives a reader from a single goroutine: periodic
// reconciliation, batched read/deliver/commit, position persistence and
// idle-handle reclamation.
package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/renjunqu/taildir/internal/event"
	"github.com/renjunqu/taildir/internal/reader"
	"github.com/renjunqu/taildir/internal/tailfile"
)

// Sink receives batches of events. Deliver must not return nil unless the
// batch is durably accepted downstream; the source never commits a batch
// whose delivery failed.
type Sink interface {
	Deliver(ctx context.Context, events []event.Event) error
	Stop() error
}

// Source owns a Reader and a Sink and runs the poll loop.
type Source struct {
	cfg    Config
	reader *reader.Reader
	sink   Sink

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds the reader (initial reconciliation + position load happen
// here) and wires it to the sink. Nothing starts running until Start.
func New(cfg Config, sink Sink) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := reader.New(cfg.Reader)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		cfg:    cfg,
		reader: r,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Reader exposes the underlying reader, mainly for tests and for callers
// embedding the source into a larger pipeline.
func (s *Source) Reader() *reader.Reader { return s.reader }

// Start launches the run loop. Call Stop to shut it down.
func (s *Source) Start() {
	go s.run()
}

// Stop terminates the run loop, persists positions once and closes every
// tracked file. Safe to call once.
func (s *Source) Stop() {
	// Cancel first so an in-flight delivery retry unblocks promptly.
	s.cancel()
	close(s.stopCh)
	<-s.doneCh
	if err := s.reader.WritePositionFile(); err != nil {
		slog.Error("failed to write position file on shutdown", "error", err)
	}
	s.reader.Close()
}

func (s *Source) run() {
	defer close(s.doneCh)

	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()
	posTicker := time.NewTicker(s.cfg.WritePositionInterval)
	defer posTicker.Stop()
	idleTicker := time.NewTicker(s.cfg.IdleTimeout / 2)
	defer idleTicker.Stop()

	// Immediate pass on start so a short-lived run still ingests.
	s.process()

	for {
		select {
		case <-s.stopCh:
			return
		case <-pollTicker.C:
			s.process()
		case <-posTicker.C:
			s.writePositions()
		case <-idleTicker.C:
			s.closeIdleFiles()
		}
	}
}

// process runs one reconciliation pass and tails every file flagged as
// grown since the previous pass.
func (s *Source) process() {
	inodes := s.reader.UpdateTailFiles(false)
	files := s.reader.TailFiles()
	for _, inode := range inodes {
		tf, ok := files[inode]
		if !ok || !tf.NeedTail() {
			continue
		}
		s.tailFileProcess(tf)
		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}

// tailFileProcess drains one file batch by batch. A failed delivery leaves
// the batch uncommitted; the next read rolls back and produces it again.
func (s *Source) tailFileProcess(current *tailfile.TailFile) {
	s.reader.SetCurrentFile(current)
	for {
		events, err := s.reader.ReadEvents(s.cfg.BatchSize, s.cfg.BackoffWithoutNL)
		if err != nil {
			slog.Error("failed to read events", "path", current.Path(), "inode", current.Inode(), "error", err)
			return
		}
		if len(events) == 0 {
			return
		}
		if err := s.deliver(events); err != nil {
			slog.Error("failed to deliver batch, leaving it uncommitted",
				"path", current.Path(), "inode", current.Inode(), "count", len(events), "error", err)
			return
		}
		s.reader.Commit()
		if len(events) < s.cfg.BatchSize {
			return
		}
	}
}

// deliver pushes one batch to the sink with exponential backoff, bounded by
// MaxDeliveryElapsed and canceled on Stop.
func (s *Source) deliver(events []event.Event) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = s.cfg.MaxDeliveryElapsed
	return backoff.Retry(func() error {
		return s.sink.Deliver(s.ctx, events)
	}, backoff.WithContext(bo, s.ctx))
}

func (s *Source) writePositions() {
	if err := s.reader.WritePositionFile(); err != nil {
		slog.Error("failed to write position file", "error", err)
	}
}

// closeIdleFiles reclaims descriptors of files that have not grown for
// IdleTimeout. Entries stay tracked; the reconciler reopens on growth.
func (s *Source) closeIdleFiles() {
	for inode, tf := range s.reader.TailFiles() {
		if tf.HandleOpen() && time.Since(tf.LastUpdated()) > s.cfg.IdleTimeout {
			slog.Info("closing idle file", "path", tf.Path(), "inode", inode)
			tf.Close()
		}
	}
}
