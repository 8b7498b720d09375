package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	cmdmetrics "github.com/renjunqu/taildir/cmd/taildir/metrics"
	"github.com/renjunqu/taildir/cmd/taildir/sink/common"
	"github.com/renjunqu/taildir/internal/event"
)

// Sink appends event bodies to a rotated output file.
type Sink struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	filter common.Filter
}

// New returns a file sink writing to cfg.Path with lumberjack rotation.
func New(cfg Config, includes, excludes []string) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
		filter: common.Filter{Includes: includes, Excludes: excludes},
	}, nil
}

func (s *Sink) Deliver(_ context.Context, events []event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	delivered, filtered := 0, 0
	for _, ev := range events {
		line := string(ev.Body)
		if !s.filter.Allow(line) {
			filtered++
			continue
		}
		if _, err := fmt.Fprintln(s.out, line); err != nil {
			cmdmetrics.DeliveryObserve("file", delivered, time.Since(start), false)
			return err
		}
		delivered++
	}
	cmdmetrics.IncFiltered("file", filtered)
	cmdmetrics.DeliveryObserve("file", delivered, time.Since(start), true)
	return nil
}

func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
