package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchChunkClamps(t *testing.T) {
	m := NewMemory(nil)
	id := m.OpenText("a.txt", "zero\none\ntwo\nthree")
	ctx := context.Background()

	lines, err := m.FetchChunk(ctx, id, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, lines)

	lines, err = m.FetchChunk(ctx, id, 2, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"two", "three"}, lines)

	lines, err = m.FetchChunk(ctx, id, 10, 20)
	require.NoError(t, err)
	require.Empty(t, lines)

	_, err = m.FetchChunk(ctx, "missing", 0, 1)
	require.ErrorIs(t, err, ErrUnknownDocument)
}

func TestTotalLineCount(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	n, err := m.TotalLineCount(ctx, m.OpenText("empty", ""))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = m.TotalLineCount(ctx, m.OpenText("crlf", "a\r\nb\r\n"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestReplaceLineUndoRedo(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	id := m.OpenText("doc", "a\nb\nc")
	require.False(t, m.Modified(id))

	require.NoError(t, m.ReplaceLine(ctx, id, 1, "B"))
	text, _ := m.Text(id)
	require.Equal(t, "a\nB\nc", text)
	require.True(t, m.Modified(id))

	require.NoError(t, m.ReplaceLine(ctx, id, 2, "c1\nc2"))
	n, _ := m.TotalLineCount(ctx, id)
	require.Equal(t, 4, n)

	require.NoError(t, m.Undo(ctx, id))
	text, _ = m.Text(id)
	require.Equal(t, "a\nB\nc", text)

	require.NoError(t, m.Undo(ctx, id))
	text, _ = m.Text(id)
	require.Equal(t, "a\nb\nc", text)
	require.False(t, m.Modified(id))
	require.ErrorIs(t, m.Undo(ctx, id), ErrNothingToUndo)

	require.NoError(t, m.Redo(ctx, id))
	require.NoError(t, m.Redo(ctx, id))
	text, _ = m.Text(id)
	require.Equal(t, "a\nB\nc1\nc2", text)
	require.ErrorIs(t, m.Redo(ctx, id), ErrNothingToRedo)
}

func TestNewEditClearsRedo(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	id := m.OpenText("doc", "a\nb")
	require.NoError(t, m.ReplaceLine(ctx, id, 0, "x"))
	require.NoError(t, m.Undo(ctx, id))
	require.NoError(t, m.ReplaceLine(ctx, id, 1, "y"))
	require.ErrorIs(t, m.Redo(ctx, id), ErrNothingToRedo)
}

func TestReplaceLineOutOfRange(t *testing.T) {
	m := NewMemory(nil)
	id := m.OpenText("doc", "a")
	err := m.ReplaceLine(context.Background(), id, 3, "x")
	require.ErrorIs(t, err, ErrLineOutOfRange)
}

func TestCancelledContext(t *testing.T) {
	m := NewMemory(nil)
	id := m.OpenText("doc", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.FetchChunk(ctx, id, 0, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpenSaveReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo"), 0o644))

	m := NewMemory(nil)
	id, err := m.Open(path)
	require.NoError(t, err)
	info, err := m.Info(id)
	require.NoError(t, err)
	require.Equal(t, "notes.txt", info.Name)
	require.Equal(t, 2, info.Lines)

	ctx := context.Background()
	require.NoError(t, m.ReplaceLine(ctx, id, 0, "ONE"))
	require.NoError(t, m.Save(id, ""))
	require.False(t, m.Modified(id))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ONE\ntwo", string(data))

	// Undo past the save point is a modification.
	require.NoError(t, m.Undo(ctx, id))
	require.True(t, m.Modified(id))

	require.NoError(t, os.WriteFile(path, []byte("fresh"), 0o644))
	require.NoError(t, m.Reload(id))
	text, _ := m.Text(id)
	require.Equal(t, "fresh", text)
	require.False(t, m.Modified(id))
	require.ErrorIs(t, m.Undo(ctx, id), ErrNothingToUndo)
}

func TestSaveKeepsCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dos.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\r\ntwo\r\nthree\r\n"), 0o644))

	m := NewMemory(nil)
	id, err := m.Open(path)
	require.NoError(t, err)
	lines, err := m.FetchChunk(context.Background(), id, 0, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, lines)

	require.NoError(t, m.ReplaceLine(context.Background(), id, 1, "TWO"))
	require.NoError(t, m.Save(id, ""))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one\r\nTWO\r\nthree\r\n", string(data))

	changed, err := m.ApplyFormat(id, RemoveBlankLines)
	require.NoError(t, err)
	require.True(t, changed, "trailing empty line removed")
	text, err := m.Text(id)
	require.NoError(t, err)
	require.Equal(t, "one\r\nTWO\r\nthree", text)
}

func TestSaveWithoutPath(t *testing.T) {
	m := NewMemory(nil)
	id := m.OpenText("scratch", "x")
	require.ErrorIs(t, m.Save(id, ""), ErrNoPath)
	m.Close(id)
	_, err := m.Info(id)
	require.ErrorIs(t, err, ErrUnknownDocument)
}
