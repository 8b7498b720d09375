// Package reader implements the reliable tailed-file-set reader: it
// reconciles the live directory listing against an inode-keyed registry of
// tracked files and exposes a two-phase read-then-commit protocol with
// at-least-once delivery.
package reader

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/renjunqu/taildir/internal/event"
	"github.com/renjunqu/taildir/internal/matcher"
	"github.com/renjunqu/taildir/internal/metrics"
	"github.com/renjunqu/taildir/internal/position"
	"github.com/renjunqu/taildir/internal/tailfile"
)

// commitState makes the read/commit protocol explicit: a read transitions
// to batchPending, a commit back to committed. A read entered from
// batchPending first rolls the file that produced the pending batch back to
// its durable position, even if the caller has since selected another file.
type commitState int

const (
	stateIdle commitState = iota
	stateBatchPending
	stateCommitted
)

// Reader owns the tail registry and drives the read/commit protocol.
//
// It is not internally synchronized: one logical caller must drive
// UpdateTailFiles, ReadEvents and Commit sequentially, and exactly one
// Reader must own a given position file.
type Reader struct {
	matchers    []*matcher.Matcher
	headerTable map[string]map[string]string

	tailFiles   map[uint64]*tailfile.TailFile
	currentFile *tailfile.TailFile
	// pendingFile is the file whose batch is outstanding; it can differ
	// from currentFile when the caller moved on before committing.
	pendingFile *tailfile.TailFile
	updateTime  time.Time
	state       commitState

	addByteOffset     bool
	annotateFileName  bool
	fileNameHeaderKey string
	positionFilePath  string
}

// New constructs a Reader, performs the initial reconciliation pass and
// seeds positions from the position file.
func New(cfg Config) (*Reader, error) {
	if cfg.FileNameHeaderKey == "" {
		cfg.FileNameHeaderKey = event.DefaultFileNameHeaderKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	matchers := make([]*matcher.Matcher, 0, len(cfg.FileGroups))
	for group, pattern := range cfg.FileGroups {
		matchers = append(matchers, matcher.New(group, pattern, cfg.CachePatternMatching))
	}

	r := &Reader{
		matchers:          matchers,
		headerTable:       cfg.Headers,
		tailFiles:         make(map[uint64]*tailfile.TailFile),
		state:             stateIdle,
		addByteOffset:     cfg.AddByteOffset,
		annotateFileName:  cfg.AnnotateFileName,
		fileNameHeaderKey: cfg.FileNameHeaderKey,
		positionFilePath:  cfg.PositionFilePath,
	}

	r.UpdateTailFiles(cfg.SkipToEnd)

	slog.Info("updating positions from position file", "path", cfg.PositionFilePath)
	if err := r.LoadPositionFile(cfg.PositionFilePath); err != nil {
		return nil, err
	}
	return r, nil
}

// TailFiles returns the registry. Callers must not mutate entries while a
// reconciliation pass or read is in flight.
func (r *Reader) TailFiles() map[uint64]*tailfile.TailFile { return r.tailFiles }

// SetCurrentFile selects the file the next read will consume.
func (r *Reader) SetCurrentFile(tf *tailfile.TailFile) { r.currentFile = tf }

// SelectInode selects the tracked file for the given inode, reporting
// whether the inode is known.
func (r *Reader) SelectInode(inode uint64) bool {
	tf, ok := r.tailFiles[inode]
	if ok {
		r.currentFile = tf
	}
	return ok
}

// LoadPositionFile applies checkpointed positions to the registry. Records
// for unknown inodes are skipped: the directory scan, not the checkpoint,
// decides which files exist. A corrupt record aborts the load with an error
// after the records before it were applied.
func (r *Reader) LoadPositionFile(path string) error {
	records, err := position.Load(path)
	for _, rec := range records {
		tf, ok := r.tailFiles[rec.Inode]
		if !ok {
			slog.Info("missing file", "path", rec.File, "inode", rec.Inode, "pos", rec.Pos)
			continue
		}
		applied, uerr := tf.UpdatePos(rec.File, rec.Inode, rec.Pos)
		if uerr != nil {
			slog.Error("failed to apply position record", "path", rec.File, "inode", rec.Inode, "error", uerr)
			continue
		}
		if !applied {
			slog.Info("position record does not match tracked file", "path", rec.File, "inode", rec.Inode, "pos", rec.Pos)
		}
	}
	return err
}

// PositionRecords snapshots the registry as checkpoint records.
func (r *Reader) PositionRecords() []position.Record {
	records := make([]position.Record, 0, len(r.tailFiles))
	for inode, tf := range r.tailFiles {
		records = append(records, position.Record{Inode: inode, Pos: tf.Pos(), File: tf.Path()})
	}
	return records
}

// WritePositionFile persists the registry's current positions to the
// configured position file.
func (r *Reader) WritePositionFile() error {
	if err := position.Write(r.positionFilePath, r.PositionRecords()); err != nil {
		return err
	}
	metrics.IncPositionWrites()
	return nil
}

// ReadEvent reads a single event from the current file; ok is false when
// nothing new is available.
func (r *Reader) ReadEvent() (event.Event, bool, error) {
	events, err := r.ReadEvents(1, false)
	if err != nil || len(events) == 0 {
		return event.Event{}, false, err
	}
	return events[0], true, nil
}

// ReadEvents reads up to numEvents events from the current file. If the
// previous batch was never committed, the cursor is first reset to the last
// durable position so the same records are produced again.
func (r *Reader) ReadEvents(numEvents int, backoffWithoutNL bool) ([]event.Event, error) {
	if r.currentFile == nil {
		return nil, ErrNoCurrentFile
	}
	if r.state == stateBatchPending && r.pendingFile != nil {
		slog.Info("last read was never committed - resetting position",
			"path", r.pendingFile.Path(), "inode", r.pendingFile.Inode(), "pos", r.pendingFile.Pos())
		if err := r.pendingFile.UpdateFilePos(r.pendingFile.Pos()); err != nil {
			return nil, err
		}
		r.state = stateIdle
		r.pendingFile = nil
		metrics.IncRollbacks()
	}

	events, err := r.currentFile.ReadEvents(numEvents, backoffWithoutNL, r.addByteOffset)
	if err != nil {
		metrics.IncReadErrors()
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	headers := r.currentFile.Headers()
	for i := range events {
		events[i].MergeHeaders(headers)
		if r.annotateFileName {
			events[i].SetHeader(r.fileNameHeaderKey, r.currentFile.Path())
			events[i].SetHeader(event.BasenameHeaderKey, r.currentFile.BaseName())
		}
	}
	r.state = stateBatchPending
	r.pendingFile = r.currentFile
	metrics.IncEvents(len(events))
	return events, nil
}

// Commit advances the pending batch's file to its read cursor. It is a
// no-op when there is no outstanding batch.
func (r *Reader) Commit() {
	if r.state != stateBatchPending || r.pendingFile == nil {
		return
	}
	pos := r.pendingFile.LineReadPos()
	metrics.AddBytes(pos - r.pendingFile.Pos())
	r.pendingFile.SetPos(pos)
	r.pendingFile.SetLastUpdated(r.updateTime)
	r.state = stateCommitted
	r.pendingFile = nil
	metrics.IncCommits()
}

// UpdateTailFiles reconciles the registry against the matchers' current
// results and returns the inodes seen this pass.
//
// Identity is inode-first, path-prefix-second: an entry whose recorded path
// is a prefix of the newly observed path is treated as the same file, which
// tolerates rotation schemes that append a date suffix to a stable base
// path. A non-prefix path for a known inode replaces the entry.
func (r *Reader) UpdateTailFiles(skipToEnd bool) []uint64 {
	// Stamped before scanning so files modified during the scan are still
	// detected as updated on the following pass.
	r.updateTime = time.Now()

	var updatedInodes []uint64
	usedInodes := make(map[uint64]bool)

	for _, m := range r.matchers {
		headers := r.headerTable[m.FileGroup()]
		for _, path := range m.MatchingFiles() {
			info, err := os.Stat(path)
			if err != nil {
				slog.Warn("failed to stat matched file", "path", path, "error", err)
				continue
			}
			inode, err := tailfile.Inode(info)
			if err != nil {
				slog.Warn("failed to get inode", "path", path, "error", err)
				continue
			}

			tf := r.tailFiles[inode]
			if tf == nil || !strings.HasPrefix(path, tf.Path()) {
				startPos := int64(0)
				if skipToEnd {
					startPos = info.Size()
				}
				slog.Info("opening file", "path", path, "inode", inode, "pos", startPos)
				ntf, err := tailfile.Open(path, headers, inode, startPos)
				if err != nil {
					slog.Error("failed opening file", "path", path, "inode", inode, "error", err)
					continue
				}
				if tf != nil {
					tf.Close()
				}
				tf = ntf
			} else {
				tf.SetPath(path)
				updated := tf.LastUpdated().Before(info.ModTime())
				if updated {
					if !tf.HandleOpen() {
						if err := tf.Reopen(); err != nil {
							slog.Error("failed reopening file", "path", path, "inode", inode, "error", err)
							continue
						}
					}
					if info.Size() < tf.Pos() {
						slog.Info("pos is larger than file size, restarting from pos 0",
							"pos", tf.Pos(), "size", info.Size(), "path", tf.Path(), "inode", inode)
						if _, err := tf.UpdatePos(tf.Path(), inode, 0); err != nil {
							slog.Error("failed to reset position", "path", tf.Path(), "inode", inode, "error", err)
						}
						metrics.IncTruncations()
					}
				}
				tf.SetNeedTail(updated)
			}

			r.tailFiles[inode] = tf
			usedInodes[inode] = true
			updatedInodes = append(updatedInodes, inode)
		}
	}

	// Evict entries no matcher reported anymore; this bounds the position
	// file to live files and reclaims their descriptors.
	open := 0
	for inode, tf := range r.tailFiles {
		if !usedInodes[inode] {
			slog.Info("stopped tracking file", "path", tf.Path(), "inode", inode)
			tf.Close()
			if r.currentFile == tf {
				r.currentFile = nil
			}
			if r.pendingFile == tf {
				// The pending batch's file is gone; nothing left to roll back.
				r.pendingFile = nil
				r.state = stateIdle
			}
			delete(r.tailFiles, inode)
			continue
		}
		if tf.HandleOpen() {
			open++
		}
	}
	metrics.SetTrackedFiles(len(r.tailFiles))
	metrics.SetOpenFiles(open)
	return updatedInodes
}

// Close releases every open handle in the registry. It does not persist
// positions; that is the scheduler's responsibility. Idempotent.
func (r *Reader) Close() {
	for _, tf := range r.tailFiles {
		tf.Close()
	}
}
