// Package viewer is the virtual-scrolling engine: it keeps a bounded window
// of materialized lines around the viewport, fetches line ranges from a
// document store, and holds the line under the reading point steady while
// wrapped line heights are discovered.
//
// An Engine is owned by one goroutine. Store calls run on their own
// goroutines and come back as Completion values on Completions(); the owner
// passes each one to Resume. The host calls Frame on every display tick.
package viewer

import (
	"context"
	"math"

	"github.com/kobzarvs/qview/internal/chunk"
	"github.com/kobzarvs/qview/internal/docstore"
	"github.com/kobzarvs/qview/internal/geometry"
	"github.com/kobzarvs/qview/internal/notify"
	"go.uber.org/zap"
)

// Document identifies what to show. TotalLines is the store's count.
type Document struct {
	ID         string
	TotalLines int
}

// Completion is the result of an asynchronous store call, to be run by
// Resume on the owner goroutine.
type Completion struct {
	fn func()
}

type jumpMode int

const (
	jumpTop jumpMode = iota
	jumpCenter
	jumpKeep
)

// jumpTarget places line at offset pixels below the viewport top on the
// next render. For jumpCenter the offset is corrected once the line's
// measured height is known.
type jumpTarget struct {
	line   int
	offset float64
	mode   jumpMode
}

// Engine renders one document at a time.
type Engine struct {
	store            docstore.Store
	opts             Options
	log              *zap.Logger
	measurer         Measurer
	broker           *notify.Broker[Notification]
	completions      chan Completion
	completionBuffer int

	ctx    context.Context
	cancel context.CancelFunc

	docID   string
	geo     geometry.Model
	fetcher *chunk.Fetcher

	viewportH float64
	scrollTop float64
	direction int
	refOffset float64
	jump      *jumpTarget
	remeasure bool

	sched scheduler
	gen   uint64
	pass  uint64

	rendered     chunk.Key
	hasRender    bool
	lines        []Line
	topSpacer    float64
	bottomSpacer float64

	matches       []Match
	matchesByLine map[int][]int
	active        int

	editMode bool
	edit     *editState
	ops      int

	current     int
	notifiedCur int
	notifiedTot int
}

// New creates an engine reading from store.
func New(store docstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		opts:             DefaultOptions(),
		log:              zap.NewNop(),
		completionBuffer: 256,
		active:           -1,
		notifiedCur:      -1,
		notifiedTot:      -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.opts = e.opts.normalized()
	if e.measurer == nil {
		e.measurer = UniformMeasurer{}
	}
	e.broker = notify.NewBroker[Notification](0)
	e.completions = make(chan Completion, e.completionBuffer)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.geo = geometry.New(0, e.opts.LineHeight, e.opts.MaxVirtualHeight)
	e.fetcher = e.newFetcher("")
	return e
}

// Close cancels outstanding store calls and ends all subscriptions.
func (e *Engine) Close() {
	e.cancel()
	e.broker.Close()
}

// Subscribe returns a channel of notifications that stays open until ctx
// is done or the engine is closed.
func (e *Engine) Subscribe(ctx context.Context) <-chan notify.Event[Notification] {
	return e.broker.Subscribe(ctx)
}

// Completions delivers results of store calls. Pass each to Resume.
func (e *Engine) Completions() <-chan Completion {
	return e.completions
}

// Resume runs a completion on the owner goroutine.
func (e *Engine) Resume(c Completion) {
	if c.fn != nil {
		c.fn()
	}
}

// post hands fn back to the owner. It is called from store goroutines.
func (e *Engine) post(fn func()) {
	select {
	case e.completions <- Completion{fn: fn}:
	case <-e.ctx.Done():
	}
}

func (e *Engine) newFetcher(id string) *chunk.Fetcher {
	store := chunk.NewStore(e.opts.CacheCapacity, e.opts.CachePolicy)
	source := func(ctx context.Context, k chunk.Key) ([]string, error) {
		if id == "" {
			return nil, docstore.ErrUnknownDocument
		}
		return e.store.FetchChunk(ctx, id, k.Start, k.End)
	}
	return chunk.NewFetcher(store, source, e.post, e.log)
}

// Frame runs the scheduled render, if any. It reports whether a render
// pass started.
func (e *Engine) Frame() bool {
	force, ok := e.sched.begin()
	if !ok {
		return false
	}
	e.pass++
	e.render(force)
	return true
}

// NeedsFrame reports whether a render is waiting for the next frame.
func (e *Engine) NeedsFrame() bool {
	return e.sched.state == stateScheduled
}

// Idle reports whether nothing is scheduled, rendering or in flight.
func (e *Engine) Idle() bool {
	return e.sched.state == stateIdle && e.ops == 0 && e.fetcher.InFlight() == 0
}

// LoadDocument replaces the current document and jumps to startLine
// (1-based).
func (e *Engine) LoadDocument(doc Document, startLine int) {
	e.edit = nil
	e.docID = doc.ID
	e.geo = geometry.New(doc.TotalLines, e.opts.LineHeight, e.opts.MaxVirtualHeight)
	e.fetcher = e.newFetcher(doc.ID)
	e.resetWindow()
	e.scrollTop = 0
	e.direction = 0
	e.refOffset = 0
	e.matches = nil
	e.matchesByLine = nil
	e.active = -1
	e.gen++
	e.log.Debug("document loaded", zap.String("id", doc.ID), zap.Int("lines", doc.TotalLines))
	if doc.TotalLines <= 0 {
		e.updateCurrentLine()
		return
	}
	e.jumpTo(startLine-1, jumpTop)
}

// Clear unloads the document.
func (e *Engine) Clear() {
	e.edit = nil
	e.docID = ""
	e.geo = geometry.New(0, e.opts.LineHeight, e.opts.MaxVirtualHeight)
	e.fetcher = e.newFetcher("")
	e.resetWindow()
	e.scrollTop = 0
	e.jump = nil
	e.matches = nil
	e.matchesByLine = nil
	e.active = -1
	e.gen++
	e.updateCurrentLine()
}

func (e *Engine) resetWindow() {
	e.rendered = chunk.Key{Start: -1, End: -1}
	e.hasRender = false
	e.lines = nil
	e.topSpacer = 0
	e.bottomSpacer = 0
}

// DocumentID returns the loaded document, or "".
func (e *Engine) DocumentID() string { return e.docID }

// ScrollTo moves the viewport top to px.
func (e *Engine) ScrollTo(px float64) {
	if e.docID == "" {
		return
	}
	px = e.clampScrollTop(px)
	switch {
	case px > e.scrollTop:
		e.direction = 1
	case px < e.scrollTop:
		e.direction = -1
	default:
		return
	}
	e.scrollTop = px
	e.jump = nil
	e.refOffset = 0
	e.sched.request(false)
}

// ScrollBy moves the viewport by dy pixels.
func (e *Engine) ScrollBy(dy float64) {
	e.ScrollTo(e.scrollTop + dy)
}

// ScrollToLine jumps so that line (1-based) is at the top of the viewport.
func (e *Engine) ScrollToLine(line int) {
	if e.docID == "" {
		return
	}
	e.jumpTo(line-1, jumpTop)
}

// ScrollTop returns the viewport offset.
func (e *Engine) ScrollTop() float64 { return e.scrollTop }

// Resize changes the viewport height. Lines are re-measured on the next
// render while the line under the viewport top stays put.
func (e *Engine) Resize(height float64) {
	if height < 0 {
		height = 0
	}
	if height == e.viewportH && e.hasRender {
		return
	}
	e.viewportH = height
	e.refOffset = min(e.refOffset, max(height-e.geo.LineHeight, 0))
	e.gen++
	e.remeasure = true
	if e.docID == "" {
		return
	}
	e.scrollTop = e.clampScrollTop(e.scrollTop)
	e.sched.request(false)
}

// Remeasure asks for every line height to be measured again, e.g. after
// the surface width changed.
func (e *Engine) Remeasure() {
	e.gen++
	e.remeasure = true
	if e.docID != "" {
		e.sched.request(false)
	}
}

// SetLineHeight changes the nominal line height and keeps the first
// visible line at the top.
func (e *Engine) SetLineHeight(h float64) {
	if h <= 0 || h == e.geo.LineHeight {
		return
	}
	first := e.firstVisible()
	e.opts.LineHeight = h
	e.geo = geometry.New(e.geo.TotalLines, h, e.opts.MaxVirtualHeight)
	e.remeasure = true
	if e.docID == "" {
		return
	}
	e.jumpTo(first, jumpTop)
}

// LineHeight returns the nominal line height.
func (e *Engine) LineHeight() float64 { return e.geo.LineHeight }

// GetCurrentLine returns the 1-based line under the reading point, or 0
// when nothing is loaded. The reading point is the viewport top, or the
// line a jump placed (e.g. a centred search match) until the next scroll.
func (e *Engine) GetCurrentLine() int {
	if e.docID == "" || e.geo.TotalLines == 0 {
		return 0
	}
	return e.current + 1
}

// GetFirstVisibleLine returns the 1-based line at the viewport top.
func (e *Engine) GetFirstVisibleLine() int {
	if e.docID == "" || e.geo.TotalLines == 0 {
		return 0
	}
	return e.firstVisible() + 1
}

// GetTotalLines returns the line count of the loaded document.
func (e *Engine) GetTotalLines() int {
	return e.geo.TotalLines
}

// Geometry returns the current scroll mapping.
func (e *Engine) Geometry() geometry.Model { return e.geo }

// Generation returns the render generation.
func (e *Engine) Generation() uint64 { return e.gen }

// Stats reports store round trips and cache counters.
type Stats struct {
	Fetches   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Cached    int
}

func (e *Engine) Stats() Stats {
	hits, misses, evictions := e.fetcher.Store().Stats()
	return Stats{
		Fetches:   e.fetcher.Fetches(),
		Hits:      hits,
		Misses:    misses,
		Evictions: evictions,
		Cached:    e.fetcher.Store().Len(),
	}
}

func (e *Engine) clampScrollTop(px float64) float64 {
	limit := e.geo.MaxScrollTop(e.viewportH)
	if h := e.layoutHeight() - e.viewportH; h > limit {
		limit = h
	}
	if px > limit {
		px = limit
	}
	if px < 0 || math.IsNaN(px) {
		px = 0
	}
	return px
}

// jumpTo scrolls so that line (0-based) lands at the top or the centre of
// the viewport and schedules a forced render.
func (e *Engine) jumpTo(line int, mode jumpMode) {
	line = e.geo.ClampLine(line)
	want := 0.0
	if mode == jumpCenter {
		want = (e.viewportH - e.geo.LineHeight) / 2
		if want < 0 {
			want = 0
		}
	}
	natural := e.geo.ScrollTopForLine(line)
	top := e.geo.ClampScrollTop(natural-want, e.viewportH)
	e.scrollTop = top
	e.direction = 0
	e.jump = &jumpTarget{line: line, offset: natural - top, mode: mode}
	e.refOffset = natural - top
	e.gen++
	e.sched.request(true)
}

// keepPosition schedules a forced render that leaves the first visible
// line where it is on screen.
func (e *Engine) keepPosition() {
	if e.docID == "" {
		return
	}
	first := e.firstVisible()
	offset := 0.0
	if top, _, ok := e.lineBox(first); ok {
		offset = top - e.scrollTop
	}
	e.jump = &jumpTarget{line: first, offset: offset, mode: jumpKeep}
	e.sched.request(true)
}

func (e *Engine) publish(n Notification) {
	e.broker.Publish(n)
}

func (e *Engine) updateCurrentLine() {
	cur, total := 0, e.geo.TotalLines
	if e.docID != "" && total > 0 {
		e.current = e.lineAt(e.scrollTop + e.refOffset)
		cur = e.current + 1
	} else {
		e.current = 0
	}
	if cur == e.notifiedCur && total == e.notifiedTot {
		return
	}
	e.notifiedCur, e.notifiedTot = cur, total
	e.publish(LineChanged{Current: cur, Total: total})
}
