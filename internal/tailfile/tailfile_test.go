package tailfile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renjunqu/taildir/internal/event"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func mustInode(t *testing.T, path string) uint64 {
	t.Helper()
	inode, err := InodeFromPath(path)
	require.NoError(t, err)
	return inode
}

func TestTailFile_ReadEvents(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip inode-based tests on Windows")
	}
	dir := t.TempDir()

	t.Run("reads newline-terminated lines", func(t *testing.T) {
		p := writeFile(t, dir, "basic.log", "line1\nline2\nline3\n")
		tf, err := Open(p, nil, mustInode(t, p), 0)
		require.NoError(t, err)
		defer tf.Close()

		events, err := tf.ReadEvents(10, false, false)
		assert.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "line1", string(events[0].Body))
		assert.Equal(t, "line3", string(events[2].Body))
		assert.Equal(t, int64(len("line1\nline2\nline3\n")), tf.LineReadPos())
	})

	t.Run("respects numEvents", func(t *testing.T) {
		p := writeFile(t, dir, "limited.log", "a\nb\nc\n")
		tf, err := Open(p, nil, mustInode(t, p), 0)
		require.NoError(t, err)
		defer tf.Close()

		events, err := tf.ReadEvents(2, false, false)
		assert.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, int64(4), tf.LineReadPos())

		events, err = tf.ReadEvents(2, false, false)
		assert.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "c", string(events[0].Body))
	})

	t.Run("strips CRLF", func(t *testing.T) {
		p := writeFile(t, dir, "crlf.log", "a\r\nb\r\n")
		tf, err := Open(p, nil, mustInode(t, p), 0)
		require.NoError(t, err)
		defer tf.Close()

		events, err := tf.ReadEvents(10, false, false)
		assert.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "a", string(events[0].Body))
		assert.Equal(t, "b", string(events[1].Body))
		// Cursor still covers the separators.
		assert.Equal(t, int64(len("a\r\nb\r\n")), tf.LineReadPos())
	})

	t.Run("holds back unterminated line with backoffWithoutNL", func(t *testing.T) {
		p := writeFile(t, dir, "partial.log", "done\npart")
		tf, err := Open(p, nil, mustInode(t, p), 0)
		require.NoError(t, err)
		defer tf.Close()

		events, err := tf.ReadEvents(10, true, false)
		assert.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "done", string(events[0].Body))
		assert.Equal(t, int64(len("done\n")), tf.LineReadPos())

		// Terminate the line; the next read picks it up whole.
		f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString("ial\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		events, err = tf.ReadEvents(10, true, false)
		assert.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "partial", string(events[0].Body))
	})

	t.Run("emits unterminated line without backoffWithoutNL", func(t *testing.T) {
		p := writeFile(t, dir, "nopartialhold.log", "done\npart")
		tf, err := Open(p, nil, mustInode(t, p), 0)
		require.NoError(t, err)
		defer tf.Close()

		events, err := tf.ReadEvents(10, false, false)
		assert.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "part", string(events[1].Body))
		assert.Equal(t, int64(len("done\npart")), tf.LineReadPos())
	})

	t.Run("attaches byte offset header", func(t *testing.T) {
		p := writeFile(t, dir, "offsets.log", "aa\nbbbb\n")
		tf, err := Open(p, nil, mustInode(t, p), 0)
		require.NoError(t, err)
		defer tf.Close()

		events, err := tf.ReadEvents(10, false, true)
		assert.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "0", events[0].Headers[event.ByteOffsetHeaderKey])
		assert.Equal(t, "3", events[1].Headers[event.ByteOffsetHeaderKey])
	})
}

func TestTailFile_UpdateFilePos(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip inode-based tests on Windows")
	}
	dir := t.TempDir()
	p := writeFile(t, dir, "rollback.log", "one\ntwo\nthree\n")
	tf, err := Open(p, nil, mustInode(t, p), 0)
	require.NoError(t, err)
	defer tf.Close()

	first, err := tf.ReadEvents(10, false, false)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// Rewind to the committed position and read again: same records.
	require.NoError(t, tf.UpdateFilePos(tf.Pos()))
	second, err := tf.ReadEvents(10, false, false)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, string(first[i].Body), string(second[i].Body))
	}
}

func TestTailFile_UpdatePos(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip inode-based tests on Windows")
	}
	dir := t.TempDir()
	p := writeFile(t, dir, "identity.log", "one\ntwo\n")
	inode := mustInode(t, p)
	tf, err := Open(p, nil, inode, 0)
	require.NoError(t, err)
	defer tf.Close()

	t.Run("applies on matching identity", func(t *testing.T) {
		ok, err := tf.UpdatePos(p, inode, 4)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(4), tf.Pos())
		assert.Equal(t, int64(4), tf.LineReadPos())

		events, err := tf.ReadEvents(10, false, false)
		assert.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "two", string(events[0].Body))
	})

	t.Run("rejects inode mismatch", func(t *testing.T) {
		ok, err := tf.UpdatePos(p, inode+1, 0)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(4), tf.Pos())
	})

	t.Run("rejects path mismatch", func(t *testing.T) {
		ok, err := tf.UpdatePos(filepath.Join(dir, "other.log"), inode, 0)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(4), tf.Pos())
	})
}

func TestTailFile_CloseAndReopen(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip inode-based tests on Windows")
	}
	dir := t.TempDir()
	p := writeFile(t, dir, "reopen.log", "one\ntwo\n")
	tf, err := Open(p, nil, mustInode(t, p), 0)
	require.NoError(t, err)

	events, err := tf.ReadEvents(1, false, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	tf.SetPos(tf.LineReadPos())

	assert.True(t, tf.HandleOpen())
	tf.Close()
	tf.Close() // idempotent
	assert.False(t, tf.HandleOpen())

	// Reopen resumes from the durable position.
	require.NoError(t, tf.Reopen())
	events, err = tf.ReadEvents(10, false, false)
	assert.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "two", string(events[0].Body))
	tf.Close()
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.log"), nil, 1, 0)
	require.Error(t, err)
	assert.True(t, IsOpenError(err))
}
