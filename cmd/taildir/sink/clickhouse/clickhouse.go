package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"

	cmdmetrics "github.com/renjunqu/taildir/cmd/taildir/metrics"
	"github.com/renjunqu/taildir/cmd/taildir/sink/common"
	"github.com/renjunqu/taildir/internal/event"
)

// Sink inserts events into a ClickHouse table in batches, carrying the
// provenance headers alongside the message body.
type Sink struct {
	conn     ch.Conn
	database string
	table    string
	host     string
	labels   map[string]string
	filter   common.Filter
}

// New connects to ClickHouse, applies the embedded migrations and returns
// the sink.
func New(cfg Config, host string, labels map[string]string, includes, excludes []string) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Build options: support HTTP and native.
	var opts ch.Options
	if strings.Contains(cfg.Addr, "://") {
		u, err := url.Parse(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("invalid ch addr: %w", err)
		}
		opts = ch.Options{Addr: []string{u.Host}, Protocol: ch.HTTP, Auth: ch.Auth{Username: cfg.User, Password: cfg.Password, Database: cfg.Database}}
		if u.Scheme == "https" {
			opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	} else {
		opts = ch.Options{Addr: []string{cfg.Addr}, Auth: ch.Auth{Username: cfg.User, Password: cfg.Password, Database: cfg.Database}}
	}
	if err := runMigrations(&opts, cfg.Database, cfg.Table); err != nil {
		return nil, err
	}
	conn, err := ch.Open(&opts)
	if err != nil {
		return nil, err
	}
	return &Sink{
		conn:     conn,
		database: cfg.Database,
		table:    cfg.Table,
		host:     host,
		labels:   labels,
		filter:   common.Filter{Includes: includes, Excludes: excludes},
	}, nil
}

func (s *Sink) Deliver(ctx context.Context, events []event.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	start := time.Now()

	tbl := s.table
	if s.database != "" && !strings.Contains(tbl, ".") {
		tbl = s.database + "." + s.table
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+tbl+" (ts, host, headers, message)")
	if err != nil {
		cmdmetrics.DeliveryObserve("clickhouse", 0, time.Since(start), false)
		return err
	}
	delivered, filtered := 0, 0
	for _, ev := range events {
		line := string(ev.Body)
		if !s.filter.Allow(line) {
			filtered++
			continue
		}
		headers := make(map[string]string, len(ev.Headers)+len(s.labels))
		for k, v := range s.labels {
			headers[k] = v
		}
		for k, v := range ev.Headers {
			headers[k] = v
		}
		if err := batch.Append(time.Now(), s.host, headers, line); err != nil {
			cmdmetrics.DeliveryObserve("clickhouse", 0, time.Since(start), false)
			return err
		}
		delivered++
	}
	if err := batch.Send(); err != nil {
		cmdmetrics.DeliveryObserve("clickhouse", 0, time.Since(start), false)
		return err
	}
	cmdmetrics.IncFiltered("clickhouse", filtered)
	cmdmetrics.DeliveryObserve("clickhouse", delivered, time.Since(start), true)
	return nil
}

func (s *Sink) Stop() error { return s.conn.Close() }
