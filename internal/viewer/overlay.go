package viewer

import (
	"sort"
	"unicode/utf8"
)

// Match is a search hit supplied by the host. Line is a 0-based line index;
// Start and End are rune columns within that line.
type Match struct {
	Line  int
	Start int
	End   int
}

// SegmentKind tells the presentation how to style a run of text.
type SegmentKind int

const (
	SegmentPlain SegmentKind = iota
	SegmentMatch
	SegmentActiveMatch
)

// Segment is a run of a line's text. Start and End are rune columns.
// Ordinal is the index of the match in the supplied list, -1 for plain text.
type Segment struct {
	Text    string
	Start   int
	End     int
	Kind    SegmentKind
	Ordinal int
}

type span struct {
	start, end int
	ordinal    int
	active     bool
}

// splitSegments cuts text into plain and highlighted runs. Spans are
// clamped to the line and sorted by start; a span overlapping an earlier
// one is merged into it.
func splitSegments(text string, spans []span) []Segment {
	n := utf8.RuneCountInString(text)
	if len(spans) == 0 {
		return []Segment{{Text: text, Start: 0, End: n, Kind: SegmentPlain, Ordinal: -1}}
	}

	clamped := make([]span, 0, len(spans))
	for _, s := range spans {
		s.start = min(max(s.start, 0), n)
		s.end = min(max(s.end, 0), n)
		if s.end > s.start {
			clamped = append(clamped, s)
		}
	}
	sort.SliceStable(clamped, func(i, j int) bool {
		return clamped[i].start < clamped[j].start
	})

	merged := clamped[:0]
	for _, s := range clamped {
		if k := len(merged); k > 0 && s.start < merged[k-1].end {
			last := &merged[k-1]
			last.end = max(last.end, s.end)
			last.active = last.active || s.active
			continue
		}
		merged = append(merged, s)
	}

	runes := []rune(text)
	out := make([]Segment, 0, 2*len(merged)+1)
	cursor := 0
	for _, s := range merged {
		if s.start > cursor {
			out = append(out, Segment{Text: string(runes[cursor:s.start]), Start: cursor, End: s.start, Kind: SegmentPlain, Ordinal: -1})
		}
		kind := SegmentMatch
		if s.active {
			kind = SegmentActiveMatch
		}
		out = append(out, Segment{Text: string(runes[s.start:s.end]), Start: s.start, End: s.end, Kind: kind, Ordinal: s.ordinal})
		cursor = s.end
	}
	if cursor < n || len(out) == 0 {
		out = append(out, Segment{Text: string(runes[cursor:]), Start: cursor, End: n, Kind: SegmentPlain, Ordinal: -1})
	}
	return out
}

func (e *Engine) indexMatches() {
	e.matchesByLine = make(map[int][]int, len(e.matches))
	for i, m := range e.matches {
		e.matchesByLine[m.Line] = append(e.matchesByLine[m.Line], i)
	}
}

func (e *Engine) decorate(line int, text string) []Segment {
	ords := e.matchesByLine[line]
	if len(ords) == 0 {
		return splitSegments(text, nil)
	}
	spans := make([]span, len(ords))
	for i, ord := range ords {
		m := e.matches[ord]
		spans[i] = span{start: m.Start, end: m.End, ordinal: ord, active: ord == e.active}
	}
	return splitSegments(text, spans)
}

func (e *Engine) redecorate() {
	for i := range e.lines {
		e.lines[i].Segments = e.decorate(e.lines[i].Index, e.lines[i].Text)
	}
}

// SetSearchMatches replaces the highlighted matches and re-renders. When
// active names a match the view jumps to it.
func (e *Engine) SetSearchMatches(matches []Match, active int) {
	e.matches = append([]Match(nil), matches...)
	e.indexMatches()
	if active < 0 || active >= len(e.matches) {
		active = -1
	}
	e.active = active
	if e.docID == "" {
		return
	}
	e.fetcher.InvalidateAll()
	e.gen++
	if active >= 0 {
		e.jumpTo(e.matches[active].Line, jumpCenter)
		return
	}
	e.keepPosition()
}

// SetActiveMatch makes match i the active one and centres its line.
func (e *Engine) SetActiveMatch(i int) bool {
	if i < 0 || i >= len(e.matches) || e.docID == "" {
		return false
	}
	e.active = i
	e.redecorate()
	e.jumpTo(e.matches[i].Line, jumpCenter)
	return true
}

// NextMatch activates the match after the active one, wrapping around.
func (e *Engine) NextMatch() (int, bool) {
	if len(e.matches) == 0 {
		return -1, false
	}
	i := (e.active + 1) % len(e.matches)
	return i, e.SetActiveMatch(i)
}

// PrevMatch activates the match before the active one, wrapping around.
func (e *Engine) PrevMatch() (int, bool) {
	if len(e.matches) == 0 {
		return -1, false
	}
	i := e.active - 1
	if i < 0 {
		i = len(e.matches) - 1
	}
	return i, e.SetActiveMatch(i)
}

// ClearSearchHighlights drops every match. The window is redecorated in
// place without fetching.
func (e *Engine) ClearSearchHighlights() {
	e.matches = nil
	e.matchesByLine = nil
	e.active = -1
	e.redecorate()
}

// Matches returns the current match list and the active ordinal.
func (e *Engine) Matches() ([]Match, int) {
	return e.matches, e.active
}
