package tailfile

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/renjunqu/taildir/internal/event"
)

// TailFile tracks one tailed file: its identity (inode), its current path,
// the durably committed position and the read cursor ahead of it.
//
// pos only moves when the owning reader commits; lineReadPos moves as lines
// are consumed and is rewound back to pos on rollback.
type TailFile struct {
	path        string
	inode       uint64
	pos         int64
	lineReadPos int64
	lastUpdated time.Time
	needTail    bool
	headers     map[string]string
	file        *os.File
	reader      *bufio.Reader
}

// Open opens path at the given position. The returned TailFile holds an open
// handle seeked to pos with the read cursor aligned to it.
func Open(path string, headers map[string]string, inode uint64, pos int64) (*TailFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	// lastUpdated deliberately starts at the zero time: the next
	// reconciliation pass must see any existing content as an update.
	return &TailFile{
		path:        path,
		inode:       inode,
		pos:         pos,
		lineReadPos: pos,
		headers:     headers,
		file:        f,
		reader:      bufio.NewReader(f),
	}, nil
}

func (t *TailFile) Path() string                { return t.path }
func (t *TailFile) SetPath(path string)         { t.path = path }
func (t *TailFile) BaseName() string            { return filepath.Base(t.path) }
func (t *TailFile) Inode() uint64               { return t.inode }
func (t *TailFile) Pos() int64                  { return t.pos }
func (t *TailFile) SetPos(pos int64)            { t.pos = pos }
func (t *TailFile) LineReadPos() int64          { return t.lineReadPos }
func (t *TailFile) LastUpdated() time.Time      { return t.lastUpdated }
func (t *TailFile) SetLastUpdated(ts time.Time) { t.lastUpdated = ts }
func (t *TailFile) NeedTail() bool              { return t.needTail }
func (t *TailFile) SetNeedTail(v bool)          { t.needTail = v }
func (t *TailFile) Headers() map[string]string  { return t.headers }

// HandleOpen reports whether the file handle is currently open. The
// reconciler reopens closed entries when growth is detected.
func (t *TailFile) HandleOpen() bool { return t.file != nil }

// Reopen reacquires the file handle at the current durable position.
func (t *TailFile) Reopen() error {
	if t.file != nil {
		return nil
	}
	f, err := os.Open(t.path)
	if err != nil {
		return &OpenError{Path: t.path, Err: err}
	}
	if _, err := f.Seek(t.pos, io.SeekStart); err != nil {
		_ = f.Close()
		return &OpenError{Path: t.path, Err: err}
	}
	t.file = f
	t.reader = bufio.NewReader(f)
	t.lineReadPos = t.pos
	return nil
}

// UpdateFilePos moves the read cursor to pos, discarding any buffered data.
// This is the rollback primitive: re-reading an uncommitted batch starts by
// seeking back to the last committed position.
func (t *TailFile) UpdateFilePos(pos int64) error {
	if t.file != nil {
		if _, err := t.file.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		t.reader.Reset(t.file)
	}
	t.lineReadPos = pos
	return nil
}

// UpdatePos validates identity before applying a position: both path and
// inode must match the tracked entry. Returns false on mismatch so stale
// checkpoint records cannot move the cursor of an unrelated file.
func (t *TailFile) UpdatePos(path string, inode uint64, pos int64) (bool, error) {
	if t.inode != inode || t.path != path {
		return false, nil
	}
	t.pos = pos
	if err := t.UpdateFilePos(pos); err != nil {
		return false, err
	}
	slog.Info("updated position", "path", path, "inode", inode, "pos", pos)
	return true, nil
}

// ReadEvents reads up to numEvents newline-terminated records starting at
// the read cursor. When backoffWithoutNL is set, an unterminated trailing
// line is held back (cursor rewound to its start) until a future append
// terminates it. addByteOffset attaches the line-start offset as a header.
func (t *TailFile) ReadEvents(numEvents int, backoffWithoutNL, addByteOffset bool) ([]event.Event, error) {
	if t.file == nil {
		if err := t.Reopen(); err != nil {
			return nil, err
		}
	}
	var events []event.Event
	for i := 0; i < numEvents; i++ {
		lineStart := t.lineReadPos
		line, err := t.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return events, err
		}
		if len(line) == 0 {
			break
		}
		if err == io.EOF {
			// Unterminated trailing line.
			if backoffWithoutNL {
				if serr := t.UpdateFilePos(lineStart); serr != nil {
					return events, serr
				}
				break
			}
		}
		t.lineReadPos += int64(len(line))
		ev := event.New(stripLineEnding(line))
		if addByteOffset {
			ev.SetHeader(event.ByteOffsetHeaderKey, strconv.FormatInt(lineStart, 10))
		}
		events = append(events, ev)
		if err == io.EOF {
			break
		}
	}
	return events, nil
}

// Close releases the file handle. The entry itself stays valid; a later
// reconciliation pass may reopen it.
func (t *TailFile) Close() {
	if t.file == nil {
		return
	}
	if err := t.file.Close(); err != nil {
		slog.Error("failed to close file", "path", t.path, "inode", t.inode, "error", err)
	}
	t.file = nil
	t.reader = nil
}

func stripLineEnding(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
