// Package geometry converts between pixel scroll offsets and logical line
// indexes for documents whose natural height may exceed what the host
// surface can scroll.
package geometry

import "math"

// DefaultMaxHeight is the largest virtual scroll height handed to the
// presentation surface.
const DefaultMaxHeight = 10_000_000

// Model maps a document of TotalLines lines, each LineHeight pixels tall,
// onto a scrollable region no taller than MaxHeight.
type Model struct {
	TotalLines int
	LineHeight float64
	MaxHeight  float64
}

// New returns a model with degenerate inputs clamped.
func New(totalLines int, lineHeight, maxHeight float64) Model {
	m := Model{TotalLines: totalLines, LineHeight: lineHeight, MaxHeight: maxHeight}
	return m.normalized()
}

func (m Model) normalized() Model {
	if m.TotalLines < 0 {
		m.TotalLines = 0
	}
	if m.LineHeight <= 0 || math.IsNaN(m.LineHeight) || math.IsInf(m.LineHeight, 0) {
		m.LineHeight = 1
	}
	if m.MaxHeight <= 0 || math.IsNaN(m.MaxHeight) {
		m.MaxHeight = DefaultMaxHeight
	}
	return m
}

// NaturalHeight is the height the document would have without compression.
func (m Model) NaturalHeight() float64 {
	m = m.normalized()
	return float64(m.TotalLines) * m.LineHeight
}

// ScrollRatio returns 1 when the document fits under MaxHeight, otherwise
// the factor that squeezes the natural height into MaxHeight.
func (m Model) ScrollRatio() float64 {
	m = m.normalized()
	natural := m.NaturalHeight()
	if natural <= m.MaxHeight || natural == 0 {
		return 1
	}
	return m.MaxHeight / natural
}

// VirtualHeight is the total scrollable height after compression.
func (m Model) VirtualHeight() float64 {
	return m.NaturalHeight() * m.ScrollRatio()
}

// LinePitch is the number of virtual pixels one logical line occupies.
func (m Model) LinePitch() float64 {
	m = m.normalized()
	return m.LineHeight * m.ScrollRatio()
}

// LineAtScrollTop returns the line whose virtual slot contains px. The
// result is always a valid line index (0 for an empty document).
func (m Model) LineAtScrollTop(px float64) int {
	m = m.normalized()
	if m.TotalLines == 0 || px <= 0 || math.IsNaN(px) {
		return 0
	}
	line := int(math.Floor(px / m.LinePitch()))
	return m.ClampLine(line)
}

// ScrollTopForLine is the inverse of LineAtScrollTop.
func (m Model) ScrollTopForLine(line int) float64 {
	m = m.normalized()
	if m.TotalLines == 0 {
		return 0
	}
	return float64(m.ClampLine(line)) * m.LinePitch()
}

// ClampLine clamps line into [0, TotalLines-1].
func (m Model) ClampLine(line int) int {
	if line < 0 || m.TotalLines <= 0 {
		return 0
	}
	if line >= m.TotalLines {
		return m.TotalLines - 1
	}
	return line
}

// VisibleCount returns how many lines of LineHeight fit in viewportHeight,
// rounded up, never less than one.
func (m Model) VisibleCount(viewportHeight float64) int {
	m = m.normalized()
	if viewportHeight <= 0 {
		return 1
	}
	n := int(math.Ceil(viewportHeight / m.LineHeight))
	if n < 1 {
		n = 1
	}
	return n
}

// MaxScrollTop is the largest scroll offset that still fills the viewport.
func (m Model) MaxScrollTop(viewportHeight float64) float64 {
	top := m.VirtualHeight() - viewportHeight
	if top < 0 {
		return 0
	}
	return top
}

// ClampScrollTop clamps px into [0, MaxScrollTop(viewportHeight)].
func (m Model) ClampScrollTop(px, viewportHeight float64) float64 {
	if px < 0 || math.IsNaN(px) {
		return 0
	}
	if limit := m.MaxScrollTop(viewportHeight); px > limit {
		return limit
	}
	return px
}
