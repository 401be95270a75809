// Package docstore holds line-indexed text documents and the edit history
// the viewer drives through fetch, replace, undo and redo.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrLineOutOfRange  = errors.New("line out of range")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
	ErrUnknownFormat   = errors.New("unknown format")
	ErrNoPath          = errors.New("document has no file path")
)

// Store is the line-level document backend the viewer engine talks to.
// Every call may block and may fail; implementations must be safe for
// concurrent use.
type Store interface {
	FetchChunk(ctx context.Context, id string, start, end int) ([]string, error)
	TotalLineCount(ctx context.Context, id string) (int, error)
	ReplaceLine(ctx context.Context, id string, line int, text string) error
	Undo(ctx context.Context, id string) error
	Redo(ctx context.Context, id string) error
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// lineEnding returns "\r\n" when the first line break is CRLF.
func lineEnding(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

func joinLines(lines []string, eol string) string {
	return strings.Join(lines, eol)
}
