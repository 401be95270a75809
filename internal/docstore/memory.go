package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type opKind int

const (
	opReplaceLines opKind = iota
	opReplaceAll
)

// op is one undoable step. before and after hold the lines that occupy
// [line, line+len) before and after the step was applied.
type op struct {
	kind   opKind
	line   int
	before []string
	after  []string
}

func (o op) inverse() op {
	return op{kind: o.kind, line: o.line, before: o.after, after: o.before}
}

type document struct {
	id        string
	name      string
	path      string
	eol       string
	lines     []string
	undo      []op
	redo      []op
	savePoint int
}

func (d *document) modified() bool {
	return len(d.undo) != d.savePoint
}

func (d *document) apply(o op) {
	switch o.kind {
	case opReplaceAll:
		d.lines = append([]string(nil), o.after...)
	default:
		tail := append([]string(nil), d.lines[o.line+len(o.before):]...)
		d.lines = append(append(d.lines[:o.line], o.after...), tail...)
	}
	if len(d.lines) == 0 {
		d.lines = []string{""}
	}
}

func (d *document) record(o op) {
	d.apply(o)
	if d.savePoint > len(d.undo) {
		d.savePoint = -1
	}
	d.undo = append(d.undo, o)
	d.redo = nil
}

// Info describes an open document.
type Info struct {
	ID       string
	Name     string
	Path     string
	Lines    int
	Modified bool
}

// Memory keeps every open document fully in memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*document
	log  *zap.Logger
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory(log *zap.Logger) *Memory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Memory{docs: make(map[string]*document), log: log}
}

// Open reads a file from disk and returns the new document id.
func (m *Memory) Open(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	id := m.add(filepath.Base(path), abs, string(data))
	m.log.Debug("document opened", zap.String("id", id), zap.String("path", abs))
	return id, nil
}

// OpenText registers an unsaved document with the given contents.
func (m *Memory) OpenText(name, text string) string {
	return m.add(name, "", text)
}

func (m *Memory) add(name, path, text string) string {
	d := &document{
		id:    uuid.NewString(),
		name:  name,
		path:  path,
		eol:   lineEnding(text),
		lines: splitLines(text),
	}
	m.mu.Lock()
	m.docs[d.id] = d
	m.mu.Unlock()
	return d.id
}

// Close forgets a document.
func (m *Memory) Close(id string) {
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
}

func (m *Memory) get(id string) (*document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return d, nil
}

// Info returns a snapshot of the document's metadata.
func (m *Memory) Info(id string) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	return Info{ID: d.id, Name: d.name, Path: d.path, Lines: len(d.lines), Modified: d.modified()}, nil
}

// Modified reports whether the document differs from its last save.
func (m *Memory) Modified(id string) bool {
	info, err := m.Info(id)
	return err == nil && info.Modified
}

// Path returns the file the document was opened from or saved to.
func (m *Memory) Path(id string) string {
	info, _ := m.Info(id)
	return info.Path
}

// Text returns the whole document joined with its line ending.
func (m *Memory) Text(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.get(id)
	if err != nil {
		return "", err
	}
	return joinLines(d.lines, d.eol), nil
}

// lfText is Text with "\n" line breaks, the form the formatters work on.
func (m *Memory) lfText(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.get(id)
	if err != nil {
		return "", err
	}
	return joinLines(d.lines, "\n"), nil
}

// Save writes the document to path, or to its own path when path is empty.
func (m *Memory) Save(id, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if path == "" {
		path = d.path
	}
	if path == "" {
		return ErrNoPath
	}
	if err := os.WriteFile(path, []byte(joinLines(d.lines, d.eol)), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	d.path = path
	d.name = filepath.Base(path)
	d.savePoint = len(d.undo)
	return nil
}

// Reload replaces the document with the current file contents and drops
// its history.
func (m *Memory) Reload(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if d.path == "" {
		return ErrNoPath
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return err
	}
	d.eol = lineEnding(string(data))
	d.lines = splitLines(string(data))
	d.undo = nil
	d.redo = nil
	d.savePoint = 0
	return nil
}

// FetchChunk returns lines [start, end), clamped to the document.
func (m *Memory) FetchChunk(ctx context.Context, id string, start, end int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.get(id)
	if err != nil {
		return nil, err
	}
	total := len(d.lines)
	start = min(max(start, 0), total)
	end = min(max(end, start), total)
	out := make([]string, end-start)
	copy(out, d.lines[start:end])
	return out, nil
}

// TotalLineCount returns the number of lines, never less than one.
func (m *Memory) TotalLineCount(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return len(d.lines), nil
}

// ReplaceLine replaces one line. Newlines in text split it into several
// lines, so the line count may change.
func (m *Memory) ReplaceLine(ctx context.Context, id string, line int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if line < 0 || line >= len(d.lines) {
		return fmt.Errorf("%w: %d of %d", ErrLineOutOfRange, line, len(d.lines))
	}
	d.record(op{
		kind:   opReplaceLines,
		line:   line,
		before: []string{d.lines[line]},
		after:  splitLines(text),
	})
	return nil
}

// ReplaceAllLines swaps the whole document for lines as a single undo step.
func (m *Memory) ReplaceAllLines(id string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	d.record(op{
		kind:   opReplaceAll,
		before: append([]string(nil), d.lines...),
		after:  append([]string(nil), lines...),
	})
	return nil
}

// Undo reverts the most recent step.
func (m *Memory) Undo(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if len(d.undo) == 0 {
		return ErrNothingToUndo
	}
	o := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.apply(o.inverse())
	d.redo = append(d.redo, o)
	return nil
}

// Redo re-applies the most recently undone step.
func (m *Memory) Redo(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if len(d.redo) == 0 {
		return ErrNothingToRedo
	}
	o := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]
	d.apply(o)
	d.undo = append(d.undo, o)
	return nil
}
