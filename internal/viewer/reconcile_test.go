package viewer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type measureFunc func(text string, lineHeight float64) float64

func (f measureFunc) Measure(text string, lineHeight float64) float64 { return f(text, lineHeight) }

// uneven gives line N a height of 1 + N%3 rows.
var uneven = measureFunc(func(text string, lh float64) float64 {
	return float64(1+lineNumber(text)%3) * lh
})

func lineTop(t *testing.T, e *Engine, idx int) float64 {
	t.Helper()
	top, _, ok := e.lineBox(idx)
	require.True(t, ok, "line %d not materialized", idx)
	return top
}

func TestAnchorHoldsAcrossWindowChange(t *testing.T) {
	store := newSyntheticStore(10_000)
	e := newTestEngine(t, store, 24, WithMeasurer(uneven))
	e.LoadDocument(Document{ID: "doc", TotalLines: 10_000}, 1)
	settle(t, e)
	require.Equal(t, 0, e.Layout().Start)

	top := lineTop(t, e, 240)
	e.ScrollTo(top)
	settle(t, e)

	l := e.Layout()
	require.Equal(t, 100, l.Start, "window moved")
	require.Equal(t, top, e.ScrollTop(), "scroll offset untouched")
	require.InDelta(t, top, lineTop(t, e, 240), 1e-9)
	require.Equal(t, 241, e.GetFirstVisibleLine())
	assertCovers(t, e)
}

func TestAnchorHoldsScrollingUpToFirstLine(t *testing.T) {
	store := newSyntheticStore(1000)
	e := newTestEngine(t, store, 10, WithMeasurer(uneven))
	e.LoadDocument(Document{ID: "doc", TotalLines: 1000}, 201)
	settle(t, e)

	for step := 0; e.ScrollTop() > 0; step++ {
		require.Less(t, step, 5000, "scrolling up never reached the top")
		next := max(e.ScrollTop()-3, 0)
		want := e.lineAt(next)
		top, _, ok := e.lineBox(want)
		check := ok && next >= e.topSpacer
		row := top - next

		e.ScrollTo(next)
		settle(t, e)
		require.GreaterOrEqual(t, e.Layout().TopSpacer, 0.0)
		if !check {
			continue
		}
		require.Equal(t, want+1, e.GetFirstVisibleLine(), "step %d", step)
		require.InDelta(t, row, lineTop(t, e, want)-e.ScrollTop(), 1e-9, "step %d", step)
	}

	l := e.Layout()
	require.Equal(t, 0, l.Start)
	require.Equal(t, 0.0, l.TopSpacer)
	require.Equal(t, 0.0, l.Lines[0].Top)
	require.Equal(t, 1, e.GetFirstVisibleLine())
}

func TestAnchorHoldsAcrossResize(t *testing.T) {
	store := newSyntheticStore(10_000)
	e := newTestEngine(t, store, 24, WithMeasurer(uneven))
	e.LoadDocument(Document{ID: "doc", TotalLines: 10_000}, 3000)
	settle(t, e)

	e.ScrollBy(7)
	settle(t, e)
	first := e.GetFirstVisibleLine()
	top := lineTop(t, e, first-1)
	fetches := e.Stats().Fetches
	gen := e.Generation()

	e.Resize(60)
	settle(t, e)
	require.Greater(t, e.Generation(), gen)
	require.Equal(t, first, e.GetFirstVisibleLine())
	require.InDelta(t, top, lineTop(t, e, first-1), 1e-9)
	require.GreaterOrEqual(t, e.Stats().Fetches, fetches)
	assertCovers(t, e)
}

func TestJumpPlacesLineAtTop(t *testing.T) {
	store := newSyntheticStore(10_000)
	e := newTestEngine(t, store, 24, WithMeasurer(uneven))
	e.LoadDocument(Document{ID: "doc", TotalLines: 10_000}, 1)
	settle(t, e)

	e.ScrollToLine(7000)
	settle(t, e)
	require.Equal(t, 7000, e.GetCurrentLine())
	require.Equal(t, 7000, e.GetFirstVisibleLine())
	require.InDelta(t, e.ScrollTop(), lineTop(t, e, 6999), 1e-9)

	l := e.Layout()
	require.GreaterOrEqual(t, l.TopSpacer, 0.0)
	require.GreaterOrEqual(t, l.BottomSpacer, 0.0)
}

func TestForcedRenderIgnoresCoverage(t *testing.T) {
	store := newSyntheticStore(1000)
	e := newTestEngine(t, store, 24)
	e.LoadDocument(Document{ID: "doc", TotalLines: 1000}, 1)
	settle(t, e)
	calls := store.fetchCalls()

	e.RefreshContent()
	settle(t, e)
	require.Greater(t, store.fetchCalls(), calls)
	require.Equal(t, 1, e.GetCurrentLine())
}

func TestLineHeightChangeKeepsFirstLine(t *testing.T) {
	store := newSyntheticStore(10_000)
	e := newTestEngine(t, store, 240)
	e.LoadDocument(Document{ID: "doc", TotalLines: 10_000}, 4000)
	settle(t, e)

	e.SetLineHeight(10)
	settle(t, e)
	require.Equal(t, 10.0, e.LineHeight())
	require.Equal(t, 4000, e.GetFirstVisibleLine())
	require.Equal(t, 24, e.Geometry().VisibleCount(240))
	assertCovers(t, e)
}

func TestWindowCoversViewport(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 20_000).Draw(rt, "total")
		height := rapid.IntRange(1, 120).Draw(rt, "height")
		store := newSyntheticStore(total)

		e := New(store)
		defer e.Close()
		e.Resize(float64(height))
		e.LoadDocument(Document{ID: "doc", TotalLines: total}, rapid.IntRange(1, total).Draw(rt, "start"))
		settle(rt, e)
		assertCovers(rt, e)

		steps := rapid.IntRange(1, 15).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				e.ScrollTo(rapid.Float64Range(0, e.Geometry().VirtualHeight()).Draw(rt, "px"))
			case 1:
				e.ScrollBy(float64(rapid.IntRange(-400, 400).Draw(rt, "dy")))
			case 2:
				e.ScrollToLine(rapid.IntRange(1, total).Draw(rt, "line"))
			case 3:
				e.Resize(float64(rapid.IntRange(1, 120).Draw(rt, "resize")))
			}
			settle(rt, e)
			assertCovers(rt, e)
			if cur := e.GetCurrentLine(); cur < 1 || cur > total {
				rt.Fatalf("current line %d outside [1,%d]", cur, total)
			}
		}
	})
}
