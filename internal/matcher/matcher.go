// Package matcher enumerates the files currently matching a file group's
// glob pattern.
package matcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Matcher resolves one file group's pattern against the filesystem.
//
// The pattern's directory part is taken literally; only the final path
// element may contain glob metacharacters. With caching enabled, the last
// result is reused until the parent directory's modification time changes,
// which avoids rescanning large directories on every poll.
type Matcher struct {
	fileGroup   string
	filePattern string
	cache       bool

	parentDir   string
	namePattern string

	lastSeenDirMTime int64
	lastMatched      []string
}

// New returns a Matcher for the given group name and glob pattern.
func New(fileGroup, filePattern string, cachePatternMatching bool) *Matcher {
	pattern := filepath.Clean(filePattern)
	return &Matcher{
		fileGroup:   fileGroup,
		filePattern: pattern,
		cache:       cachePatternMatching,
		parentDir:   filepath.Dir(pattern),
		namePattern: filepath.Base(pattern),
	}
}

// FileGroup returns the group name this matcher serves.
func (m *Matcher) FileGroup() string { return m.fileGroup }

// MatchingFiles returns the absolute paths of regular files currently
// matching the pattern. Scan failures are logged and yield partial results.
func (m *Matcher) MatchingFiles() []string {
	dirInfo, err := os.Stat(m.parentDir)
	if err != nil {
		slog.Warn("failed to stat parent directory", "group", m.fileGroup, "dir", m.parentDir, "error", err)
		return nil
	}
	mtime := dirInfo.ModTime().UnixNano()
	if m.cache && m.lastMatched != nil && mtime == m.lastSeenDirMTime {
		return append([]string(nil), m.lastMatched...)
	}

	entries, err := os.ReadDir(m.parentDir)
	if err != nil {
		slog.Warn("failed to read parent directory", "group", m.fileGroup, "dir", m.parentDir, "error", err)
		return nil
	}

	var matched []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(m.namePattern, e.Name())
		if err != nil {
			slog.Warn("invalid file pattern", "group", m.fileGroup, "pattern", m.namePattern, "error", err)
			return nil
		}
		if !ok {
			continue
		}
		p, err := filepath.Abs(filepath.Join(m.parentDir, e.Name()))
		if err != nil {
			slog.Warn("failed to resolve path", "group", m.fileGroup, "path", e.Name(), "error", err)
			continue
		}
		matched = append(matched, p)
	}
	sort.Strings(matched)

	if m.cache {
		m.lastSeenDirMTime = mtime
		m.lastMatched = append([]string(nil), matched...)
	}
	return matched
}
