package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadMem(t *testing.T, lines int) (*Engine, *memStore, string) {
	t.Helper()
	store, id := newMemStore(lines)
	e := newTestEngine(t, store, 24)
	e.LoadDocument(Document{ID: id, TotalLines: lines}, 1)
	settle(t, e)
	return e, store, id
}

func TestEditLineThenRefresh(t *testing.T) {
	e, store, id := loadMem(t, 10)
	sub := e.Subscribe(context.Background())

	_, ok := e.BeginEdit(5)
	require.False(t, ok, "edit mode is off")

	require.True(t, e.ToggleEditMode())
	text, ok := e.BeginEdit(5)
	require.True(t, ok)
	require.Equal(t, "line 5", text)
	line, editing := e.Editing()
	require.True(t, editing)
	require.Equal(t, 5, line)
	require.True(t, e.Layout().Lines[4].Editing)

	require.True(t, e.CommitEdit("fifth line, edited"))
	// Shown right away while the store works.
	require.Equal(t, "fifth line, edited", lineText(t, e, 4))
	settle(t, e)

	e.RefreshContent()
	settle(t, e)

	require.Equal(t, "fifth line, edited", lineText(t, e, 4))
	require.False(t, e.Layout().Lines[4].Editing)
	require.True(t, store.Modified(id))

	events := drain(sub)
	require.Equal(t, 1, countOf[Modified](events))
	require.Equal(t, 1, countOf[EditModeChanged](events))
	require.Contains(t, events, Notification(Modified{DocumentID: id}))
}

func TestCommitUnchangedTextIsNoop(t *testing.T) {
	e, _, _ := loadMem(t, 10)
	sub := e.Subscribe(context.Background())
	e.ToggleEditMode()

	_, ok := e.BeginEdit(3)
	require.True(t, ok)
	require.False(t, e.CommitEdit("line 3"))
	require.True(t, e.Idle())
	_, editing := e.Editing()
	require.False(t, editing)
	require.Zero(t, countOf[Modified](drain(sub)))
}

func TestEditFailureReverts(t *testing.T) {
	e, store, _ := loadMem(t, 10)
	sub := e.Subscribe(context.Background())
	e.ToggleEditMode()
	store.failReplace(errors.New("read-only file"))

	before := e.Stats()
	gen := e.Generation()
	_, ok := e.BeginEdit(2)
	require.True(t, ok)
	require.True(t, e.CommitEdit("nope"))
	settle(t, e)

	require.Equal(t, "line 2", lineText(t, e, 1))
	require.Equal(t, before.Cached, e.Stats().Cached, "cache must not be invalidated")
	require.Equal(t, before.Fetches, e.Stats().Fetches)
	require.Equal(t, gen, e.Generation())

	events := drain(sub)
	require.Zero(t, countOf[Modified](events))
	require.Equal(t, 1, countOf[EditFailed](events))
	for _, ev := range events {
		if f, ok := ev.(EditFailed); ok {
			require.Equal(t, 2, f.Line)
			require.EqualError(t, f.Err, "read-only file")
		}
	}
}

func TestEditSplittingLineChangesTotal(t *testing.T) {
	e, _, _ := loadMem(t, 10)
	e.ToggleEditMode()
	_, ok := e.BeginEdit(10)
	require.True(t, ok)
	e.CommitEdit("ten\neleven")
	settle(t, e)

	require.Equal(t, 11, e.GetTotalLines())
	require.Equal(t, "eleven", lineText(t, e, 10))
}

func TestUndoRedo(t *testing.T) {
	e, _, _ := loadMem(t, 10)
	sub := e.Subscribe(context.Background())
	e.ToggleEditMode()
	e.BeginEdit(1)
	e.CommitEdit("first")
	settle(t, e)

	e.Undo()
	settle(t, e)
	require.Equal(t, "line 1", lineText(t, e, 0))

	e.Redo()
	settle(t, e)
	require.Equal(t, "first", lineText(t, e, 0))

	e.Redo()
	settle(t, e)
	require.Equal(t, "first", lineText(t, e, 0))

	require.Equal(t, 3, countOf[Modified](drain(sub)))
}

func TestLeavingEditModeCancels(t *testing.T) {
	e, _, _ := loadMem(t, 10)
	e.ToggleEditMode()
	_, ok := e.BeginEdit(4)
	require.True(t, ok)
	require.False(t, e.ToggleEditMode())
	_, editing := e.Editing()
	require.False(t, editing)
	require.False(t, e.CommitEdit("late"))
}

func TestBeginEditNeedsMaterializedLine(t *testing.T) {
	store := newSyntheticStore(10_000)
	e := newTestEngine(t, store, 24)
	e.LoadDocument(Document{ID: "doc", TotalLines: 10_000}, 1)
	settle(t, e)
	e.ToggleEditMode()

	_, ok := e.BeginEdit(9000)
	require.False(t, ok)
	_, ok = e.BeginEdit(20)
	require.True(t, ok)
}
