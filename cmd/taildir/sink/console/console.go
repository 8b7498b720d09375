package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	cmdmetrics "github.com/renjunqu/taildir/cmd/taildir/metrics"
	"github.com/renjunqu/taildir/cmd/taildir/sink/common"
	"github.com/renjunqu/taildir/internal/event"
)

// Sink writes event bodies line by line to stdout or stderr.
type Sink struct {
	w      io.Writer
	filter common.Filter
}

// New returns a console sink. stream is "stdout" (default) or "stderr".
func New(stream string, includes, excludes []string) *Sink {
	w := io.Writer(os.Stdout)
	if stream == "stderr" {
		w = os.Stderr
	}
	return &Sink{w: w, filter: common.Filter{Includes: includes, Excludes: excludes}}
}

func (s *Sink) Deliver(_ context.Context, events []event.Event) error {
	start := time.Now()
	delivered, filtered := 0, 0
	for _, ev := range events {
		line := string(ev.Body)
		if !s.filter.Allow(line) {
			filtered++
			continue
		}
		if _, err := fmt.Fprintln(s.w, line); err != nil {
			cmdmetrics.DeliveryObserve("console", delivered, time.Since(start), false)
			return err
		}
		delivered++
	}
	cmdmetrics.IncFiltered("console", filtered)
	cmdmetrics.DeliveryObserve("console", delivered, time.Since(start), true)
	return nil
}

func (s *Sink) Stop() error { return nil }
