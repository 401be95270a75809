package pager

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// cell is one grapheme cluster placed on screen. Col is the rune offset of
// the cluster in the source line, so search segments can be mapped onto it.
type cell struct {
	text  string
	width int
	col   int
}

// layoutCells splits text into grapheme cells and expands tabs to spaces.
func layoutCells(text string, tabWidth int) []cell {
	if tabWidth < 1 {
		tabWidth = 1
	}
	cells := make([]cell, 0, len(text))
	state := -1
	col, vis := 0, 0
	for text != "" {
		var cluster string
		cluster, text, _, state = uniseg.StepString(text, state)
		if cluster == "\t" {
			n := tabWidth - vis%tabWidth
			for i := 0; i < n; i++ {
				cells = append(cells, cell{text: " ", width: 1, col: col})
			}
			vis += n
			col++
			continue
		}
		w := uniseg.StringWidth(cluster)
		if w == 0 {
			// Control characters still take a cell so the line stays editable.
			cluster, w = "?", 1
		}
		cells = append(cells, cell{text: cluster, width: w, col: col})
		vis += w
		col += utf8.RuneCountInString(cluster)
	}
	return cells
}

// wrapRows breaks cells into rows at most cols wide. A wide cluster that
// does not fit moves to the next row. Without wrap everything stays on one
// row and the caller clips it.
func wrapRows(cells []cell, cols int, wrap bool) [][]cell {
	if !wrap || cols < 1 || len(cells) == 0 {
		return [][]cell{cells}
	}
	var rows [][]cell
	start, used := 0, 0
	for i, c := range cells {
		if used+c.width > cols && i > start {
			rows = append(rows, cells[start:i])
			start, used = i, 0
		}
		used += c.width
	}
	return append(rows, cells[start:])
}

// WrapMeasurer sizes lines by the number of terminal rows they wrap to.
// Width is the text area in columns; the pager updates it on resize and
// then asks the engine to remeasure.
type WrapMeasurer struct {
	Width    int
	TabWidth int
	Wrap     bool
}

func NewWrapMeasurer(tabWidth int, wrap bool) *WrapMeasurer {
	return &WrapMeasurer{TabWidth: tabWidth, Wrap: wrap}
}

// Rows returns how many screen rows text occupies, at least one.
func (m *WrapMeasurer) Rows(text string) int {
	if !m.Wrap || m.Width < 1 {
		return 1
	}
	if text == "" {
		return 1
	}
	// Short ASCII lines cannot wrap; skip the grapheme walk.
	if len(text) <= m.Width && isPlainASCII(text) {
		return 1
	}
	return len(wrapRows(layoutCells(text, m.TabWidth), m.Width, true))
}

// Measure implements viewer.Measurer. Each wrapped row takes lineHeight
// terminal rows.
func (m *WrapMeasurer) Measure(text string, lineHeight float64) float64 {
	return float64(m.Rows(text)) * lineHeight
}

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
