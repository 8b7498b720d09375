package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	osclient "github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchutil"

	cmdmetrics "github.com/renjunqu/taildir/cmd/taildir/metrics"
	"github.com/renjunqu/taildir/cmd/taildir/sink/common"
	"github.com/renjunqu/taildir/internal/event"
)

// Sink bulk-indexes events into an OpenSearch index.
type Sink struct {
	client *osclient.Client
	index  string
	host   string
	labels map[string]string
	filter common.Filter
}

// New returns an OpenSearch sink for the configured index.
func New(cfg Config, host string, labels map[string]string, includes, excludes []string) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clientCfg := osclient.Config{Addresses: []string{cfg.URL}}
	if cfg.User != "" {
		clientCfg.Username = cfg.User
		clientCfg.Password = cfg.Password
	}
	cli, err := osclient.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}
	return &Sink{
		client: cli,
		index:  cfg.Index,
		host:   host,
		labels: labels,
		filter: common.Filter{Includes: includes, Excludes: excludes},
	}, nil
}

func (s *Sink) Deliver(ctx context.Context, events []event.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	start := time.Now()

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: s.client,
		Index:  s.index,
	})
	if err != nil {
		cmdmetrics.DeliveryObserve("opensearch", 0, time.Since(start), false)
		return err
	}
	delivered, filtered := 0, 0
	for _, ev := range events {
		line := string(ev.Body)
		if !s.filter.Allow(line) {
			filtered++
			continue
		}
		doc := map[string]any{
			"@timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"message":    line,
			"host":       s.host,
			"labels":     s.labels,
			"headers":    ev.Headers,
		}
		b, _ := json.Marshal(doc)
		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(b),
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, resp opensearchutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.Error("opensearch bulk item error", "error", err)
					return
				}
				slog.Error("opensearch bulk item failed", "status", resp.Status, "error", resp.Error)
			},
		})
		if err != nil {
			cmdmetrics.DeliveryObserve("opensearch", 0, time.Since(start), false)
			return err
		}
		delivered++
	}
	if err := bi.Close(ctx); err != nil {
		cmdmetrics.DeliveryObserve("opensearch", 0, time.Since(start), false)
		return err
	}
	if stats := bi.Stats(); stats.NumFailed > 0 {
		cmdmetrics.DeliveryObserve("opensearch", 0, time.Since(start), false)
		return fmt.Errorf("opensearch bulk failed items: %d", stats.NumFailed)
	}
	cmdmetrics.IncFiltered("opensearch", filtered)
	cmdmetrics.DeliveryObserve("opensearch", delivered, time.Since(start), true)
	return nil
}

func (s *Sink) Stop() error { return nil }
