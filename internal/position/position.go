// Package position reads and writes the position file: a JSON array of
// {"inode":N,"pos":N,"file":"/abs/path"} objects, one per tracked file.
// The position file only seeds where to resume; the live directory scan
// decides which files exist.
package position

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Record is one checkpointed file position.
type Record struct {
	Inode uint64 `json:"inode"`
	Pos   int64  `json:"pos"`
	File  string `json:"file"`
}

// rawRecord distinguishes absent keys from zero values during load.
type rawRecord struct {
	Inode *uint64 `json:"inode"`
	Pos   *int64  `json:"pos"`
	File  *string `json:"file"`
}

// CorruptRecordError indicates a position file record missing one of its
// mandatory keys. A half-written checkpoint must abort the load rather than
// silently losing offsets.
type CorruptRecordError struct {
	Path string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("detected missing value in position file %s", e.Path)
}

// Load reads records from the position file at path.
//
// An absent file is a first run, not an error. A record missing a mandatory
// key returns the records parsed so far together with a CorruptRecordError.
// Any other read or syntax failure is logged and the records parsed before
// the failure are returned without error.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("position file not found, not updating positions", "path", path)
			return nil, nil
		}
		slog.Error("failed to open position file", "path", path, "error", err)
		return nil, nil
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	if _, err := dec.Token(); err != nil {
		slog.Error("failed loading position file", "path", path, "error", err)
		return nil, nil
	}

	var records []Record
	for dec.More() {
		var raw rawRecord
		if err := dec.Decode(&raw); err != nil {
			slog.Error("failed loading position file", "path", path, "error", err)
			return records, nil
		}
		if raw.Inode == nil || raw.Pos == nil || raw.File == nil {
			return records, &CorruptRecordError{Path: path}
		}
		records = append(records, Record{Inode: *raw.Inode, Pos: *raw.Pos, File: *raw.File})
	}
	return records, nil
}

// Write atomically replaces the position file at path with the given
// records. Ordering is irrelevant to correctness.
func Write(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode position records: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp position file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write position file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close position file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace position file: %w", err)
	}
	return nil
}
