package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/renjunqu/taildir/internal/event"
)

func TestBuildSink_InvalidType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sink.Type = "does-not-exist"
	if s, err := buildSink(cfg); err == nil || s != nil {
		t.Fatalf("invalid type: expected error, got s=%v err=%v", s, err)
	}
}

func TestBuildSink_FileWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	cfg := DefaultConfig()
	cfg.Sink.Type = "file"
	cfg.Sink.File.Path = path

	s, err := buildSink(cfg)
	if err != nil {
		t.Fatalf("buildSink(file): %v", err)
	}

	events := []event.Event{
		event.New([]byte("f1")),
		event.New([]byte("f2")),
	}
	if err := s.Deliver(context.Background(), events); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open out: %v", err)
	}
	defer func() { _ = f.Close() }()
	b, _ := io.ReadAll(f)
	if got := strings.TrimSpace(string(b)); got != "f1\nf2" {
		t.Fatalf("unexpected file content: %q", got)
	}
}

func TestBuildSink_FiltersAffectOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	cfg := DefaultConfig()
	cfg.Sink.Type = "file"
	cfg.Sink.File.Path = path
	cfg.Sink.Include = []string{"keep"}
	cfg.Sink.Exclude = []string{"drop"}

	s, err := buildSink(cfg)
	if err != nil {
		t.Fatalf("buildSink(file): %v", err)
	}

	var events []event.Event
	for _, ln := range []string{"noise", "keep A", "keep and drop", "drop only", "keep B"} {
		events = append(events, event.New([]byte(ln)))
	}
	if err := s.Deliver(context.Background(), events); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read out: %v", err)
	}
	var lines []string
	for _, line := range strings.Split(string(b), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	if joined := strings.Join(lines, "|"); joined != "keep A|keep B" {
		t.Fatalf("unexpected filtered output: %q", joined)
	}
}
