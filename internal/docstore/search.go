package docstore

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Match is one search hit. Start and End are rune columns within Line.
type Match struct {
	Line    int
	Start   int
	End     int
	Context string
}

// SearchOptions controls how a query is interpreted.
type SearchOptions struct {
	CaseSensitive bool
	Regex         bool
}

func compileQuery(query string, opts SearchOptions) (*regexp.Regexp, error) {
	pattern := query
	if !opts.Regex {
		pattern = regexp.QuoteMeta(query)
	}
	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad query %q: %w", query, err)
	}
	return re, nil
}

func searchLines(lines []string, re *regexp.Regexp) []Match {
	var out []Match
	for row, line := range lines {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if loc[0] == loc[1] {
				continue
			}
			col := utf8.RuneCountInString(line[:loc[0]])
			out = append(out, Match{
				Line:    row,
				Start:   col,
				End:     col + utf8.RuneCountInString(line[loc[0]:loc[1]]),
				Context: line,
			})
		}
	}
	return out
}

// Search returns every non-overlapping occurrence of query, ordered by line
// and column. An empty query matches nothing.
func (m *Memory) Search(id, query string, opts SearchOptions) ([]Match, error) {
	if query == "" {
		return nil, nil
	}
	re, err := compileQuery(query, opts)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return searchLines(d.lines, re), nil
}

// ReplaceAll substitutes replacement for every occurrence of query as one
// undo step and returns the number of replacements.
func (m *Memory) ReplaceAll(id, query, replacement string, opts SearchOptions) (int, error) {
	if query == "" {
		return 0, nil
	}
	re, err := compileQuery(query, opts)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return 0, err
	}
	count := 0
	next := make([]string, len(d.lines))
	for i, line := range d.lines {
		n := len(re.FindAllStringIndex(line, -1))
		if n == 0 {
			next[i] = line
			continue
		}
		count += n
		if opts.Regex {
			next[i] = re.ReplaceAllString(line, replacement)
		} else {
			next[i] = re.ReplaceAllLiteralString(line, replacement)
		}
	}
	if count == 0 {
		return 0, nil
	}
	d.record(op{
		kind:   opReplaceAll,
		before: append([]string(nil), d.lines...),
		after:  splitLines(joinLines(next, "\n")),
	})
	return count, nil
}
