package viewer

// Notification is anything the engine publishes to its subscribers.
type Notification interface {
	notification()
}

// Modified is raised after the store accepted an edit, undo or redo.
type Modified struct {
	DocumentID string
}

// LineChanged is raised when the current line or the line count changes.
// Current is 1-based; it is 0 when no document is loaded.
type LineChanged struct {
	Current int
	Total   int
}

// EditModeChanged follows ToggleEditMode.
type EditModeChanged struct {
	Enabled bool
}

// EditFailed reports a commit the store rejected. The line shows its
// previous text again.
type EditFailed struct {
	Line int
	Err  error
}

func (Modified) notification()        {}
func (LineChanged) notification()     {}
func (EditModeChanged) notification() {}
func (EditFailed) notification()      {}
