package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxSearches = 50

// Bookmark marks a 1-based line with an optional memo.
type Bookmark struct {
	Line    int       `json:"line"`
	Memo    string    `json:"memo,omitempty"`
	Created time.Time `json:"created"`
}

// FileState stores where a file was left
type FileState struct {
	Line      int        `json:"line"`
	Wrap      *bool      `json:"wrap,omitempty"`
	Bookmarks []Bookmark `json:"bookmarks,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Session stores the complete viewer session state
type Session struct {
	Files      map[string]FileState `json:"files"`
	ActiveFile string               `json:"active_file,omitempty"`
	Searches   []string             `json:"searches,omitempty"`
	LastSaved  time.Time            `json:"last_saved"`
}

// Manager handles session persistence
type Manager struct {
	mu       sync.RWMutex
	session  Session
	path     string
	dirty    bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager backed by the state directory and
// starts autosaving.
func NewManager() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	m := Open(path)
	go m.autosaveLoop(15 * time.Second)
	return m, nil
}

// OpenDefault loads the session from the state directory without autosave.
func OpenDefault() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	return Open(path), nil
}

// Open loads the session stored at path without autosave. A missing or
// unreadable file starts a fresh session.
func Open(path string) *Manager {
	m := &Manager{
		session: Session{
			Files: make(map[string]FileState),
		},
		path:     path,
		stopChan: make(chan struct{}),
	}
	m.load()
	return m
}

func sessionPath() (string, error) {
	stateDir := os.Getenv("QVIEW_STATE_HOME")
	if stateDir == "" {
		stateDir = os.Getenv("XDG_STATE_HOME")
		if stateDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			stateDir = filepath.Join(home, ".local", "state")
		}
		stateDir = filepath.Join(stateDir, "qview")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "session.json"), nil
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return
	}
	if session.Files == nil {
		session.Files = make(map[string]FileState)
	}
	m.session = session
}

// Save persists the session to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	m.session.LastSaved = time.Now()
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return err
	}

	m.dirty = false
	return nil
}

// ForceSave saves even if not dirty
func (m *Manager) ForceSave() error {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
	return m.Save()
}

// GetFileState returns the saved state for a file
func (m *Manager) GetFileState(absPath string) (FileState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.session.Files[absPath]
	return state, ok
}

// SetFileState updates the state for a file
func (m *Manager) SetFileState(absPath string, state FileState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.UpdatedAt = time.Now()
	m.session.Files[absPath] = state
	m.session.ActiveFile = absPath
	m.dirty = true
}

// LastLine returns the 1-based line a file was left at, or 0.
func (m *Manager) LastLine(absPath string) int {
	state, ok := m.GetFileState(absPath)
	if !ok || state.Line < 1 {
		return 0
	}
	return state.Line
}

// SetPosition records where a file was left, keeping its bookmarks.
func (m *Manager) SetPosition(absPath string, line int, wrap bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.session.Files[absPath]
	state.Line = line
	state.Wrap = &wrap
	state.UpdatedAt = time.Now()
	m.session.Files[absPath] = state
	m.session.ActiveFile = absPath
	m.dirty = true
}

// GetActiveFile returns the last active file
func (m *Manager) GetActiveFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.ActiveFile
}

// AddSearch records a query, most recent last, without duplicates.
func (m *Manager) AddSearch(query string) {
	if query == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.session.Searches[:0]
	for _, q := range m.session.Searches {
		if q != query {
			out = append(out, q)
		}
	}
	out = append(out, query)
	if len(out) > maxSearches {
		out = out[len(out)-maxSearches:]
	}
	m.session.Searches = out
	m.dirty = true
}

// Searches returns the search history, oldest first.
func (m *Manager) Searches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.session.Searches...)
}

// AddBookmark marks line in absPath. An existing bookmark on the same line
// gets the new memo.
func (m *Manager) AddBookmark(absPath string, line int, memo string) {
	if line < 1 {
		return
	}
	memo = strings.TrimSpace(memo)
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.session.Files[absPath]
	marks := slices.Clone(state.Bookmarks)
	i, found := slices.BinarySearchFunc(marks, line, func(b Bookmark, line int) int { return b.Line - line })
	if found {
		marks[i].Memo = memo
	} else {
		marks = slices.Insert(marks, i, Bookmark{Line: line, Memo: memo, Created: time.Now()})
	}
	state.Bookmarks = marks
	m.session.Files[absPath] = state
	m.dirty = true
}

// RemoveBookmark deletes the bookmark on line and reports whether there
// was one.
func (m *Manager) RemoveBookmark(absPath string, line int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.session.Files[absPath]
	if !ok {
		return false
	}
	i := slices.IndexFunc(state.Bookmarks, func(b Bookmark) bool { return b.Line == line })
	if i < 0 {
		return false
	}
	state.Bookmarks = slices.Delete(slices.Clone(state.Bookmarks), i, i+1)
	m.session.Files[absPath] = state
	m.dirty = true
	return true
}

// MoveBookmark moves the bookmark on from to line to, replacing whatever
// was bookmarked there.
func (m *Manager) MoveBookmark(absPath string, from, to int) bool {
	if to < 1 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.session.Files[absPath]
	if !ok {
		return false
	}
	i := slices.IndexFunc(state.Bookmarks, func(b Bookmark) bool { return b.Line == from })
	if i < 0 {
		return false
	}
	moved := state.Bookmarks[i]
	moved.Line = to
	marks := slices.DeleteFunc(slices.Clone(state.Bookmarks), func(b Bookmark) bool {
		return b.Line == from || b.Line == to
	})
	j, _ := slices.BinarySearchFunc(marks, to, func(b Bookmark, line int) int { return b.Line - line })
	state.Bookmarks = slices.Insert(marks, j, moved)
	m.session.Files[absPath] = state
	m.dirty = true
	return true
}

// Bookmarks returns the bookmarks of absPath ordered by line.
func (m *Manager) Bookmarks(absPath string) []Bookmark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.session.Files[absPath].Bookmarks)
}

// SearchBookmarks returns the bookmarks of absPath whose memo contains
// query, ignoring case.
func (m *Manager) SearchBookmarks(absPath, query string) []Bookmark {
	query = strings.ToLower(query)
	var out []Bookmark
	for _, b := range m.Bookmarks(absPath) {
		if strings.Contains(strings.ToLower(b.Memo), query) {
			out = append(out, b)
		}
	}
	return out
}

// RecentFiles returns up to n files, most recently left first.
func (m *Manager) RecentFiles(n int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.session.Files))
	for p := range m.session.Files {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := m.session.Files[paths[i]].UpdatedAt, m.session.Files[paths[j]].UpdatedAt
		if a.Equal(b) {
			return paths[i] < paths[j]
		}
		return a.After(b)
	})
	if n >= 0 && len(paths) > n {
		paths = paths[:n]
	}
	return paths
}

func (m *Manager) autosaveLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.Save()
		case <-m.stopChan:
			return
		}
	}
}

// Stop stops the autosave loop and saves final state
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	return m.ForceSave()
}
