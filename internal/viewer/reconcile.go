package viewer

import (
	"math"
	"sort"

	"github.com/kobzarvs/qview/internal/chunk"
	"go.uber.org/zap"
)

// Measurer reports how tall a line of text renders. The terminal pager
// counts wrapped rows; other surfaces may measure real layout.
type Measurer interface {
	Measure(text string, lineHeight float64) float64
}

// UniformMeasurer gives every line the nominal height.
type UniformMeasurer struct{}

func (UniformMeasurer) Measure(_ string, lineHeight float64) float64 { return lineHeight }

// Line is one materialized line. Index is 0-based; Top is measured from the
// top of the scrollable area.
type Line struct {
	Index    int
	Text     string
	Top      float64
	Height   float64
	Segments []Segment
	Editing  bool
}

// Layout is a snapshot of what the presentation should draw.
type Layout struct {
	ScrollTop      float64
	ViewportHeight float64
	TopSpacer      float64
	BottomSpacer   float64
	Height         float64
	Start          int
	End            int
	Lines          []Line
	Current        int
}

// Layout returns the materialized window. Start and End are -1 before the
// first successful render.
func (e *Engine) Layout() Layout {
	l := Layout{
		ScrollTop:      e.scrollTop,
		ViewportHeight: e.viewportH,
		TopSpacer:      e.topSpacer,
		BottomSpacer:   e.bottomSpacer,
		Height:         e.layoutHeight(),
		Start:          e.rendered.Start,
		End:            e.rendered.End,
		Current:        e.current,
	}
	if !e.hasRender {
		l.Start, l.End = -1, -1
		return l
	}
	l.Lines = make([]Line, len(e.lines))
	copy(l.Lines, e.lines)
	if e.edit != nil {
		if i := e.edit.line - e.rendered.Start; i >= 0 && i < len(l.Lines) {
			ln := &l.Lines[i]
			ln.Editing = !e.edit.committing
			if e.edit.committing {
				ln.Text = e.edit.text
				ln.Segments = splitSegments(e.edit.text, nil)
			}
		}
	}
	return l
}

func (e *Engine) contentHeight() float64 {
	if len(e.lines) == 0 {
		return 0
	}
	last := e.lines[len(e.lines)-1]
	return last.Top + last.Height - e.topSpacer
}

func (e *Engine) layoutHeight() float64 {
	if !e.hasRender {
		return 0
	}
	return e.topSpacer + e.contentHeight() + e.bottomSpacer
}

// lineBox returns the position of a materialized line.
func (e *Engine) lineBox(idx int) (top, height float64, ok bool) {
	if !e.hasRender {
		return 0, 0, false
	}
	i := idx - e.rendered.Start
	if i < 0 || i >= len(e.lines) {
		return 0, 0, false
	}
	return e.lines[i].Top, e.lines[i].Height, true
}

// lineAt returns the line under px. Inside the window the measured layout
// decides; outside it the theoretical mapping does, kept monotonic with the
// window.
// epsilon absorbs rounding when px was derived from a line's own top.
const epsilon = 1e-6

func (e *Engine) lineAt(px float64) int {
	px += epsilon
	theory := e.geo.LineAtScrollTop(px)
	if !e.hasRender || len(e.lines) == 0 {
		return theory
	}
	if px < e.topSpacer {
		if e.rendered.Start == 0 {
			return 0
		}
		return min(theory, e.rendered.Start-1)
	}
	last := e.lines[len(e.lines)-1]
	if px >= last.Top+last.Height {
		return e.geo.ClampLine(max(theory, last.Index+1))
	}
	i := sort.Search(len(e.lines), func(i int) bool {
		return e.lines[i].Top+e.lines[i].Height > px
	})
	return e.lines[i].Index
}

func (e *Engine) firstVisible() int {
	return e.lineAt(e.scrollTop)
}

// covers reports whether the window already holds the visible range plus
// the re-render margin on both sides.
func (e *Engine) covers(first, visible int) bool {
	if !e.hasRender {
		return false
	}
	lo := max(first-e.opts.RerenderMargin, 0)
	hi := min(first+visible+e.opts.RerenderMargin, e.geo.TotalLines)
	return e.rendered.Start <= lo && e.rendered.End >= hi
}

// windowFor returns the aligned window around first, with the larger buffer
// in the scroll direction.
func (e *Engine) windowFor(first, visible, dir int) chunk.Key {
	before, after := e.opts.BufferBehind, e.opts.BufferAhead
	if dir < 0 {
		before, after = after, before
	}
	return chunk.Align(first-before, first+visible+after, e.opts.ChunkAlignment, e.geo.TotalLines)
}

func (e *Engine) render(force bool) {
	if e.docID == "" || e.geo.TotalLines == 0 {
		e.finishRender()
		return
	}
	if e.jump != nil {
		force = true
	}
	visible := e.geo.VisibleCount(e.viewportH)

	var first int
	switch {
	case e.jump != nil:
		first = e.jump.line
		if e.jump.offset > 0 {
			first -= int(math.Ceil(e.jump.offset / e.geo.LineHeight))
		}
		first = e.geo.ClampLine(first)
	case force:
		first = e.geo.LineAtScrollTop(e.scrollTop)
	default:
		first = e.firstVisible()
	}

	if !force && !e.remeasure && e.covers(first, visible) {
		e.finishRender()
		return
	}
	key := e.windowFor(first, visible, e.direction)
	if !force && !e.remeasure && e.hasRender && key == e.rendered {
		e.finishRender()
		return
	}

	gen, pass := e.gen, e.pass
	e.fetcher.Get(e.ctx, key, func(c *chunk.Chunk, err error) {
		e.onChunk(pass, gen, visible, key, c, err)
	})
}

func (e *Engine) onChunk(pass, gen uint64, visible int, key chunk.Key, c *chunk.Chunk, err error) {
	if pass != e.pass || e.sched.state != stateRendering {
		return
	}
	if gen != e.gen {
		e.log.Debug("stale chunk discarded", zap.Stringer("key", key), zap.Uint64("gen", gen), zap.Uint64("current", e.gen))
		e.finishRender()
		return
	}
	if err != nil {
		e.log.Warn("render aborted", zap.Stringer("key", key), zap.Error(err))
		e.finishRender()
		return
	}
	if !e.commit(key, c) {
		e.finishRender()
		return
	}
	if e.opts.Prefetch {
		e.prefetch(visible)
	}
	e.finishRender()
}

// commit replaces the window with the fetched chunk and positions it so the
// anchor line keeps its place on screen. scrollTop only changes when the
// window would start above the scrollable area.
func (e *Engine) commit(key chunk.Key, c *chunk.Chunk) bool {
	n := min(len(c.Lines), key.Len())
	if n == 0 {
		e.log.Warn("empty chunk", zap.Stringer("key", key))
		return false
	}
	end := key.Start + n

	anchor, anchorTop := -1, 0.0
	if e.jump == nil && e.hasRender {
		a := e.firstVisible()
		if top, _, ok := e.lineBox(a); ok && a >= key.Start && a < end {
			anchor, anchorTop = a, top
		}
	}

	lh := e.geo.LineHeight
	lines := make([]Line, n)
	for i := range lines {
		h := e.measurer.Measure(c.Lines[i], lh)
		if h <= 0 || math.IsNaN(h) {
			h = lh
		}
		lines[i] = Line{Index: key.Start + i, Text: c.Lines[i], Height: h}
	}
	before := func(idx int) float64 {
		sum := 0.0
		for _, l := range lines[:idx-key.Start] {
			sum += l.Height
		}
		return sum
	}
	clampIdx := func(idx int) int {
		return min(max(idx, key.Start), end-1)
	}

	var top float64
	target := -1
	switch {
	case e.jump != nil:
		target = clampIdx(e.jump.line)
		offset := e.jump.offset
		if e.jump.mode == jumpCenter {
			offset += (lh - lines[target-key.Start].Height) / 2
		}
		top = e.scrollTop + offset - before(target)
	case anchor >= 0:
		top = anchorTop - before(anchor)
	default:
		first := clampIdx(e.geo.LineAtScrollTop(e.scrollTop))
		top = e.geo.ScrollTopForLine(first) - before(first)
	}
	// Near the document start the measured lines above the anchor rarely
	// match the theoretical spacer. Move the layout so it starts at 0 and
	// move scrollTop with it; nothing shifts on screen and no scroll event
	// is raised.
	switch {
	case top < 0:
		e.scrollTop -= top
		top = 0
	case top > 0 && key.Start == 0:
		shift := min(top, e.scrollTop)
		e.scrollTop -= shift
		top -= shift
	}

	y := top
	for i := range lines {
		lines[i].Top = y
		y += lines[i].Height
	}
	content := y - top

	if e.jump != nil && e.jump.mode != jumpKeep {
		e.refOffset = max(lines[target-key.Start].Top-e.scrollTop, 0)
	}

	e.rendered = chunk.Key{Start: key.Start, End: end}
	e.hasRender = true
	e.lines = lines
	e.topSpacer = top
	e.bottomSpacer = max(e.geo.VirtualHeight()-top-content, 0)
	e.jump = nil
	e.remeasure = false
	if e.edit != nil && e.edit.committing && e.edit.committed {
		e.edit = nil
	}
	e.redecorate()
	return true
}

// prefetch warms the window the next render in the scroll direction is
// expected to ask for.
func (e *Engine) prefetch(visible int) {
	dir := e.direction
	if dir == 0 {
		dir = 1
	}
	var next int
	if dir > 0 {
		if e.rendered.End >= e.geo.TotalLines {
			return
		}
		next = e.rendered.End - visible - e.opts.RerenderMargin + 1
	} else {
		if e.rendered.Start <= 0 {
			return
		}
		next = e.rendered.Start + e.opts.RerenderMargin - 1
	}
	k := e.windowFor(e.geo.ClampLine(next), visible, dir)
	if k == e.rendered {
		return
	}
	e.fetcher.Prefetch(e.ctx, k)
}

func (e *Engine) finishRender() {
	e.sched.finish()
	e.updateCurrentLine()
}
