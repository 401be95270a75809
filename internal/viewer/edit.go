package viewer

import (
	"context"

	"go.uber.org/zap"
)

type editState struct {
	line       int
	original   string
	text       string
	committing bool
	committed  bool
}

// ToggleEditMode switches edit mode and notifies subscribers. Leaving edit
// mode drops an uncommitted edit.
func (e *Engine) ToggleEditMode() bool {
	e.editMode = !e.editMode
	if !e.editMode {
		e.CancelEdit()
	}
	e.publish(EditModeChanged{Enabled: e.editMode})
	return e.editMode
}

// EditMode reports whether lines can be edited.
func (e *Engine) EditMode() bool { return e.editMode }

// BeginEdit starts editing line (1-based) and returns its text. The line
// must be materialized and edit mode must be on.
func (e *Engine) BeginEdit(line int) (string, bool) {
	if !e.editMode || e.docID == "" {
		return "", false
	}
	if e.edit != nil && e.edit.committing {
		return "", false
	}
	idx := line - 1
	if _, _, ok := e.lineBox(idx); !ok {
		return "", false
	}
	text := e.lines[idx-e.rendered.Start].Text
	e.edit = &editState{line: idx, original: text, text: text}
	return text, true
}

// Editing returns the 1-based line being edited.
func (e *Engine) Editing() (int, bool) {
	if e.edit == nil || e.edit.committing {
		return 0, false
	}
	return e.edit.line + 1, true
}

// CancelEdit abandons the current edit. A commit already sent to the store
// cannot be cancelled.
func (e *Engine) CancelEdit() {
	if e.edit != nil && !e.edit.committing {
		e.edit = nil
	}
}

// CommitEdit sends text to the store if it differs from the line's
// original text. The new text is shown until the store answers; a rejected
// edit reverts and raises EditFailed.
func (e *Engine) CommitEdit(text string) bool {
	ed := e.edit
	if ed == nil || ed.committing {
		return false
	}
	if text == ed.original {
		e.edit = nil
		return false
	}
	ed.text = text
	ed.committing = true
	id := e.docID
	e.ops++
	go func() {
		err := e.store.ReplaceLine(e.ctx, id, ed.line, text)
		total := -1
		if err == nil {
			total = e.totalLines(e.ctx, id)
		}
		e.post(func() { e.onCommitted(id, ed, total, err) })
	}()
	return true
}

func (e *Engine) onCommitted(id string, ed *editState, total int, err error) {
	e.ops--
	if id != e.docID {
		return
	}
	if err != nil {
		e.log.Warn("edit rejected", zap.Int("line", ed.line+1), zap.Error(err))
		if e.edit == ed {
			e.edit = nil
		}
		e.publish(EditFailed{Line: ed.line + 1, Err: err})
		return
	}
	if e.edit == ed {
		ed.committed = true
	}
	e.storeChanged(total)
}

// Undo asks the store to roll back its last change. Failures are ignored.
func (e *Engine) Undo() {
	e.history("undo", e.store.Undo)
}

// Redo asks the store to re-apply the last undone change. Failures are
// ignored.
func (e *Engine) Redo() {
	e.history("redo", e.store.Redo)
}

func (e *Engine) history(name string, fn func(ctx context.Context, id string) error) {
	if e.docID == "" {
		return
	}
	e.CancelEdit()
	id := e.docID
	e.ops++
	go func() {
		err := fn(e.ctx, id)
		total := -1
		if err == nil {
			total = e.totalLines(e.ctx, id)
		}
		e.post(func() {
			e.ops--
			if id != e.docID {
				return
			}
			if err != nil {
				e.log.Debug(name+" ignored", zap.Error(err))
				return
			}
			e.storeChanged(total)
		})
	}()
}

// RefreshContent drops cached chunks, reloads the line count and renders
// again without moving the view. Hosts call it after changing the document
// behind the engine's back.
func (e *Engine) RefreshContent() {
	if e.docID == "" {
		return
	}
	e.fetcher.InvalidateAll()
	e.gen++
	id := e.docID
	e.ops++
	go func() {
		total := e.totalLines(e.ctx, id)
		e.post(func() {
			e.ops--
			if id != e.docID {
				return
			}
			e.setTotal(total)
			e.gen++
			e.keepPosition()
		})
	}()
}

// storeChanged runs after the store accepted a modification.
func (e *Engine) storeChanged(total int) {
	e.setTotal(total)
	e.fetcher.InvalidateAll()
	e.gen++
	e.publish(Modified{DocumentID: e.docID})
	e.keepPosition()
}

// totalLines runs on a store goroutine; it returns -1 on failure.
func (e *Engine) totalLines(ctx context.Context, id string) int {
	n, err := e.store.TotalLineCount(ctx, id)
	if err != nil {
		e.log.Warn("line count unavailable", zap.String("id", id), zap.Error(err))
		return -1
	}
	return n
}

func (e *Engine) setTotal(n int) {
	if n < 0 || n == e.geo.TotalLines {
		return
	}
	e.geo.TotalLines = n
}
