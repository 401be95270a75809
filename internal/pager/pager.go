// Package pager draws a viewer.Engine on a tcell screen and turns key
// presses into engine calls.
package pager

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/docstore"
	"github.com/kobzarvs/qview/internal/session"
	"github.com/kobzarvs/qview/internal/viewer"
)

type Mode int

const (
	ModeView Mode = iota
	ModeGoto
	ModeSearch
	ModeEdit
	ModeReplace
	ModeBookmark
)

func (m Mode) String() string {
	switch m {
	case ModeGoto:
		return "GOTO"
	case ModeSearch:
		return "SEARCH"
	case ModeEdit:
		return "EDIT"
	case ModeReplace:
		return "REPLACE"
	case ModeBookmark:
		return "MARK"
	default:
		return "VIEW"
	}
}

const maxLineHeight = 4

// Documents is the part of the document store the pager talks to directly.
// Line content always goes through the engine.
type Documents interface {
	Info(id string) (docstore.Info, error)
	Search(id, query string, opts docstore.SearchOptions) ([]docstore.Match, error)
	ReplaceAll(id, query, replacement string, opts docstore.SearchOptions) (int, error)
	ApplyFormat(id string, kind docstore.FormatKind) (bool, error)
	PreviewFormat(id string, kind docstore.FormatKind) (string, error)
	Save(id, path string) error
}

// Bookmarks keeps per-file line bookmarks, keyed by absolute path.
type Bookmarks interface {
	AddBookmark(path string, line int, memo string)
	RemoveBookmark(path string, line int) bool
	Bookmarks(path string) []session.Bookmark
}

type styles struct {
	main        tcell.Style
	status      tcell.Style
	statusMod   tcell.Style
	command     tcell.Style
	commandErr  tcell.Style
	lineNumber  tcell.Style
	lineActive  tcell.Style
	edit        tcell.Style
	match       tcell.Style
	activeMatch tcell.Style
	scrollThumb tcell.Style
	scrollTrack tcell.Style
}

func newStyles(t config.Theme) styles {
	mainFg := parseColor(t.Foreground, tcell.ColorWhite)
	mainBg := parseColor(t.Background, tcell.ColorBlack)
	statusFg := parseColor(t.StatuslineForeground, tcell.ColorBlack)
	statusBg := parseColor(t.StatuslineBackground, tcell.ColorGray)
	commandFg := parseColor(t.CommandlineForeground, statusFg)
	commandBg := parseColor(t.CommandlineBackground, statusBg)
	base := tcell.StyleDefault.Foreground(mainFg).Background(mainBg)
	return styles{
		main:        base,
		status:      tcell.StyleDefault.Foreground(statusFg).Background(statusBg),
		statusMod:   tcell.StyleDefault.Foreground(parseColor(t.ModifiedForeground, statusFg)).Background(statusBg),
		command:     tcell.StyleDefault.Foreground(commandFg).Background(commandBg),
		commandErr:  tcell.StyleDefault.Foreground(parseColor(t.ErrorForeground, tcell.ColorRed)).Background(commandBg),
		lineNumber:  base.Foreground(parseColor(t.LineNumberForeground, tcell.ColorGray)),
		lineActive:  base.Foreground(parseColor(t.LineNumberActiveForeground, mainFg)),
		edit:        tcell.StyleDefault.Foreground(parseColor(t.EditLineForeground, mainFg)).Background(parseColor(t.EditLineBackground, mainBg)),
		match:       tcell.StyleDefault.Foreground(parseColor(t.SearchMatchForeground, mainFg)).Background(parseColor(t.SearchMatchBackground, tcell.ColorNavy)),
		activeMatch: tcell.StyleDefault.Foreground(parseColor(t.ActiveMatchForeground, tcell.ColorBlack)).Background(parseColor(t.ActiveMatchBackground, tcell.ColorYellow)),
		scrollThumb: base.Foreground(parseColor(t.ScrollIndicatorForeground, tcell.ColorGray)),
		scrollTrack: base,
	}
}

// Pager owns no goroutines; every method runs on the loop that owns the
// engine.
type Pager struct {
	eng      *viewer.Engine
	docs     Documents
	measurer *WrapMeasurer
	keymap   map[string]string
	style    styles
	log      *zap.Logger

	lineNumbers bool

	width, height int
	textWidth     int

	mode       Mode
	prompt     []rune
	message    string
	messageErr bool
	lastQuery  string
	history    []string
	historyPos int
	branch     string
	bookmarks  Bookmarks
	markLine   int

	// OnSearch is called with every submitted query.
	OnSearch func(query string)
}

func New(eng *viewer.Engine, docs Documents, m *WrapMeasurer, cfg config.Config, log *zap.Logger) *Pager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pager{
		eng:         eng,
		docs:        docs,
		measurer:    m,
		keymap:      cfg.Keymap.Normal,
		style:       newStyles(cfg.Theme),
		log:         log,
		lineNumbers: cfg.Viewer.LineNumbers,
	}
}

func (p *Pager) Mode() Mode { return p.mode }

// Message returns the text shown on the prompt line in view mode.
func (p *Pager) Message() string { return p.message }

// SetHistory seeds the search history, oldest first.
func (p *Pager) SetHistory(queries []string) {
	p.history = append([]string(nil), queries...)
	p.historyPos = len(p.history)
}

// SetBookmarks enables the bookmark actions.
func (p *Pager) SetBookmarks(b Bookmarks) { p.bookmarks = b }

// SetBranch sets the git branch shown before the document name.
func (p *Pager) SetBranch(branch string) { p.branch = branch }

// Notice shows msg on the prompt line until the next key press.
func (p *Pager) Notice(msg string) {
	p.message = msg
	p.messageErr = false
}

func (p *Pager) setMessage(format string, args ...any) {
	p.message = fmt.Sprintf(format, args...)
	p.messageErr = false
}

func (p *Pager) setError(err error) {
	p.message = err.Error()
	p.messageErr = true
}

func (p *Pager) viewHeight() int {
	return max(p.height-2, 0)
}

func (p *Pager) gutterWidth() int {
	if !p.lineNumbers {
		return 0
	}
	digits := len(strconv.Itoa(max(p.eng.GetTotalLines(), 1)))
	return max(digits, 2) + 2
}

// Fit adapts the engine to a w×h screen. The last two rows hold the
// status and prompt lines; the last column holds the scroll indicator.
// Cheap when nothing changed, so the loop calls it before every draw.
func (p *Pager) Fit(w, h int) {
	text := max(w-p.gutterWidth()-1, 1)
	sized := w != p.width || h != p.height
	p.width, p.height = w, h
	if text != p.textWidth {
		p.textWidth = text
		p.measurer.Width = text
		if !sized {
			p.eng.Remeasure()
		}
	}
	if sized {
		p.eng.Resize(float64(p.viewHeight()))
	}
}

func (p *Pager) rowPitch() int {
	return max(int(p.eng.LineHeight()), 1)
}

// Draw paints the current layout. Lines are placed at Top−ScrollTop rows;
// lines outside the viewport are skipped.
func (p *Pager) Draw(s tcell.Screen) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}
	viewH := max(h-2, 0)
	for y := 0; y < viewH; y++ {
		clearLine(s, y, w, p.style.main)
	}

	l := p.eng.Layout()
	gutter := p.gutterWidth()
	pitch := p.rowPitch()
	current := p.eng.GetCurrentLine()
	for _, ln := range l.Lines {
		y0 := int(math.Round(ln.Top - l.ScrollTop))
		if y0 >= viewH {
			break
		}
		if y0+int(math.Round(ln.Height)) <= 0 {
			continue
		}
		p.drawLine(s, ln, current, y0, viewH, gutter, pitch)
	}
	p.drawScrollIndicator(s, w, viewH, l)
	if h >= 2 {
		p.drawStatusline(s, w, h-2, current)
	}
	p.drawPromptline(s, w, h-1)
}

func (p *Pager) drawLine(s tcell.Screen, ln viewer.Line, current, y0, viewH, gutter, pitch int) {
	rows := wrapRows(layoutCells(ln.Text, p.measurer.TabWidth), p.textWidth, p.measurer.Wrap)
	base := p.style.main
	if ln.Editing {
		base = p.style.edit
	}
	// Segments are sorted by column; seg advances with the cells.
	seg := 0
	styleAt := func(col int) tcell.Style {
		for seg < len(ln.Segments) && ln.Segments[seg].End <= col {
			seg++
		}
		if seg < len(ln.Segments) && ln.Segments[seg].Start <= col {
			switch ln.Segments[seg].Kind {
			case viewer.SegmentMatch:
				return p.style.match
			case viewer.SegmentActiveMatch:
				return p.style.activeMatch
			}
		}
		return base
	}
	for i, row := range rows {
		y := y0 + i*pitch
		if y >= viewH {
			return
		}
		if y < 0 {
			continue
		}
		if gutter > 0 {
			p.drawGutter(s, y, gutter, ln.Index, i == 0, ln.Index+1 == current)
		}
		x := gutter
		limit := gutter + p.textWidth
		if ln.Editing {
			for cx := x; cx < limit; cx++ {
				s.SetContent(cx, y, ' ', nil, base)
			}
		}
		for _, c := range row {
			if x+c.width > limit {
				break
			}
			r := []rune(c.text)
			s.SetContent(x, y, r[0], r[1:], styleAt(c.col))
			x += c.width
		}
	}
}

func (p *Pager) drawGutter(s tcell.Screen, y, gutter, index int, first, active bool) {
	style := p.style.lineNumber
	if active {
		style = p.style.lineActive
	}
	label := ""
	if first {
		label = strconv.Itoa(index + 1)
	}
	text := " " + strings.Repeat(" ", max(gutter-2-len(label), 0)) + label + " "
	for i, r := range text {
		if i >= gutter {
			break
		}
		s.SetContent(i, y, r, nil, style)
	}
}

// drawScrollIndicator places a thumb in the last column proportional to
// the scroll position within the virtual height.
func (p *Pager) drawScrollIndicator(s tcell.Screen, w, viewH int, l viewer.Layout) {
	if viewH < 1 || w < 1 {
		return
	}
	g := p.eng.Geometry()
	maxTop := g.MaxScrollTop(float64(viewH))
	if maxTop <= 0 {
		return
	}
	thumb := max(int(float64(viewH)*float64(viewH)/(maxTop+float64(viewH))), 1)
	pos := int(math.Round(l.ScrollTop / maxTop * float64(viewH-thumb)))
	pos = min(max(pos, 0), viewH-thumb)
	x := w - 1
	for y := 0; y < viewH; y++ {
		if y >= pos && y < pos+thumb {
			s.SetContent(x, y, '█', nil, p.style.scrollThumb)
		} else {
			s.SetContent(x, y, '│', nil, p.style.scrollTrack)
		}
	}
}

func (p *Pager) drawStatusline(s tcell.Screen, w, y, current int) {
	mode := p.mode.String()
	if p.mode == ModeView && p.eng.EditMode() {
		mode = "EDIT"
	}
	name := "[No Document]"
	modified := false
	if id := p.eng.DocumentID(); id != "" {
		if info, err := p.docs.Info(id); err == nil {
			name = info.Name
			modified = info.Modified
		}
	}
	dirty := ""
	if modified {
		dirty = "*"
	}
	left := fmt.Sprintf(" %s | %s%s ", mode, name, dirty)
	if p.branch != "" {
		left = fmt.Sprintf(" %s | %s | %s%s ", mode, p.branch, name, dirty)
	}

	total := p.eng.GetTotalLines()
	right := fmt.Sprintf(" Ln %d/%d", current, total)
	if total > 0 {
		right += fmt.Sprintf(" %d%%", current*100/total)
	}
	if matches, active := p.eng.Matches(); len(matches) > 0 {
		right += " | " + matchCounter(active, len(matches))
	}
	right += " "

	line := composeStatusLine(left, right, w)
	nameEnd := len([]rune(left)) - 1
	for x, r := range line {
		if x >= w {
			break
		}
		style := p.style.status
		if modified && x == nameEnd-1 {
			style = p.style.statusMod
		}
		s.SetContent(x, y, r, nil, style)
	}
}

func matchCounter(active, n int) string {
	if active < 0 {
		return fmt.Sprintf("[-/%d]", n)
	}
	return fmt.Sprintf("[%d/%d]", active+1, n)
}

func (p *Pager) drawPromptline(s tcell.Screen, w, y int) {
	clearLine(s, y, w, p.style.command)
	var left []rune
	right := ""
	style := p.style.command
	switch p.mode {
	case ModeGoto:
		left = append([]rune{':'}, p.prompt...)
	case ModeSearch:
		left = append([]rune{'/'}, p.prompt...)
		if matches, active := p.eng.Matches(); len(matches) > 0 {
			right = " " + matchCounter(active, len(matches)) + " "
		}
	case ModeEdit:
		line, _ := p.eng.Editing()
		left = append([]rune(fmt.Sprintf("%d> ", line)), p.prompt...)
	case ModeReplace:
		left = append([]rune("s/"+p.lastQuery+"/"), p.prompt...)
	case ModeBookmark:
		left = append([]rune(fmt.Sprintf("mark %d: ", p.markLine)), p.prompt...)
	default:
		left = []rune(p.message)
		if p.messageErr {
			style = p.style.commandErr
		}
	}
	line := composeStatusLine(string(left), right, w)
	for x, r := range line {
		s.SetContent(x, y, r, nil, style)
	}
	if p.mode != ModeView {
		s.ShowCursor(min(len(left), w-1), y)
	} else {
		s.HideCursor()
	}
}

// HandleKey applies a key press and reports whether the user asked to quit.
func (p *Pager) HandleKey(ev *tcell.EventKey) bool {
	if p.mode != ModeView {
		p.handlePromptKey(ev)
		return false
	}
	p.message = ""
	key := keyString(ev)
	action, ok := p.keymap[key]
	if !ok {
		return false
	}
	return p.Run(action)
}

// HandleMouse scrolls on wheel events.
func (p *Pager) HandleMouse(ev *tcell.EventMouse) {
	step := 3 * p.eng.LineHeight()
	switch {
	case ev.Buttons()&tcell.WheelUp != 0:
		p.eng.ScrollBy(-step)
	case ev.Buttons()&tcell.WheelDown != 0:
		p.eng.ScrollBy(step)
	}
}

// Run executes a keymap action by name and reports whether it was quit.
func (p *Pager) Run(action string) bool {
	lh := p.eng.LineHeight()
	page := float64(p.viewHeight())
	switch action {
	case "scroll_down":
		p.eng.ScrollBy(lh)
	case "scroll_up":
		p.eng.ScrollBy(-lh)
	case "half_page_down":
		p.eng.ScrollBy(math.Max(math.Floor(page/2), lh))
	case "half_page_up":
		p.eng.ScrollBy(-math.Max(math.Floor(page/2), lh))
	case "page_down":
		p.eng.ScrollBy(math.Max(page-lh, lh))
	case "page_up":
		p.eng.ScrollBy(-math.Max(page-lh, lh))
	case "file_start":
		p.eng.ScrollToLine(1)
	case "file_end":
		p.eng.ScrollToLine(p.eng.GetTotalLines())
	case "goto_line_prompt":
		p.enterPrompt(ModeGoto, "")
	case "search_forward":
		p.historyPos = len(p.history)
		p.enterPrompt(ModeSearch, p.lastQuery)
	case "search_next":
		if _, ok := p.eng.NextMatch(); !ok {
			p.setMessage("no matches")
		}
	case "search_prev":
		if _, ok := p.eng.PrevMatch(); !ok {
			p.setMessage("no matches")
		}
	case "clear_search":
		p.eng.ClearSearchHighlights()
	case "replace_prompt":
		if p.lastQuery == "" {
			p.setMessage("search first, then replace")
			break
		}
		p.enterPrompt(ModeReplace, "")
	case "toggle_edit":
		if p.eng.ToggleEditMode() {
			p.setMessage("edit mode on: enter edits the current line")
		} else {
			p.setMessage("edit mode off")
		}
	case "edit_line":
		p.beginEdit()
	case "undo":
		p.eng.Undo()
	case "redo":
		p.eng.Redo()
	case "save":
		p.save()
	case "refresh":
		p.eng.RefreshContent()
	case "format_sentence_breaks":
		p.format(docstore.SentenceBreaks)
	case "format_compress_blank_lines":
		p.format(docstore.CompressBlankLines)
	case "format_remove_blank_lines":
		p.format(docstore.RemoveBlankLines)
	case "format_preview":
		p.previewFormats()
	case "bookmark_add":
		if _, ok := p.bookmarkPath(); ok {
			p.markLine = p.eng.GetCurrentLine()
			p.enterPrompt(ModeBookmark, "")
		}
	case "bookmark_remove":
		p.removeBookmark()
	case "bookmark_next":
		p.jumpBookmark(true)
	case "bookmark_prev":
		p.jumpBookmark(false)
	case "bookmark_list":
		p.listBookmarks()
	case "toggle_wrap":
		p.measurer.Wrap = !p.measurer.Wrap
		p.eng.Remeasure()
	case "toggle_line_numbers":
		p.lineNumbers = !p.lineNumbers
		p.Fit(p.width, p.height)
	case "line_height_up":
		p.eng.SetLineHeight(math.Min(lh+1, maxLineHeight))
	case "line_height_down":
		p.eng.SetLineHeight(math.Max(lh-1, 1))
	case "quit":
		return true
	default:
		p.log.Debug("unknown action", zap.String("action", action))
	}
	return false
}

func (p *Pager) enterPrompt(mode Mode, text string) {
	p.mode = mode
	p.prompt = []rune(text)
	p.message = ""
}

func (p *Pager) leavePrompt() {
	p.mode = ModeView
	p.prompt = nil
}

func (p *Pager) beginEdit() {
	if !p.eng.EditMode() {
		p.setMessage("edit mode is off")
		return
	}
	line := p.eng.GetCurrentLine()
	text, ok := p.eng.BeginEdit(line)
	if !ok {
		p.setMessage("line %d is not loaded yet", line)
		return
	}
	p.enterPrompt(ModeEdit, text)
}

func (p *Pager) save() {
	id := p.eng.DocumentID()
	if id == "" {
		return
	}
	if err := p.docs.Save(id, ""); err != nil {
		p.log.Warn("save failed", zap.String("doc", id), zap.Error(err))
		p.setError(err)
		return
	}
	p.setMessage("saved")
}

func (p *Pager) format(kind docstore.FormatKind) {
	id := p.eng.DocumentID()
	if id == "" {
		return
	}
	changed, err := p.docs.ApplyFormat(id, kind)
	if err != nil {
		p.setError(err)
		return
	}
	if !changed {
		p.setMessage("%s: nothing to change", kind)
		return
	}
	p.eng.RefreshContent()
	p.setMessage("%s applied", kind)
}

// previewFormats reports how many lines each rewrite would leave.
func (p *Pager) previewFormats() {
	id := p.eng.DocumentID()
	if id == "" {
		return
	}
	info, err := p.docs.Info(id)
	if err != nil {
		p.setError(err)
		return
	}
	parts := make([]string, 0, len(docstore.FormatKinds))
	for _, kind := range docstore.FormatKinds {
		text, err := p.docs.PreviewFormat(id, kind)
		if err != nil {
			p.setError(err)
			return
		}
		parts = append(parts, fmt.Sprintf("%s %d->%d", kind, info.Lines, strings.Count(text, "\n")+1))
	}
	p.setMessage("%s", strings.Join(parts, " | "))
}

func (p *Pager) replace(replacement string) {
	id := p.eng.DocumentID()
	if id == "" || p.lastQuery == "" {
		return
	}
	query, opts := searchQuery(p.lastQuery)
	n, err := p.docs.ReplaceAll(id, query, replacement, opts)
	if err != nil {
		p.setError(err)
		return
	}
	if n == 0 {
		p.setMessage("no matches for %q", query)
		return
	}
	p.eng.ClearSearchHighlights()
	p.eng.RefreshContent()
	p.setMessage("%d replaced", n)
}

func (p *Pager) bookmarkPath() (string, bool) {
	if p.bookmarks == nil {
		p.setMessage("bookmarks are unavailable")
		return "", false
	}
	info, err := p.docs.Info(p.eng.DocumentID())
	if err != nil || info.Path == "" {
		p.setMessage("bookmarks need a file on disk")
		return "", false
	}
	return info.Path, true
}

func (p *Pager) addBookmark(memo string) {
	path, ok := p.bookmarkPath()
	if !ok || p.markLine < 1 {
		return
	}
	p.bookmarks.AddBookmark(path, p.markLine, memo)
	p.setMessage("bookmarked line %d", p.markLine)
}

func (p *Pager) removeBookmark() {
	path, ok := p.bookmarkPath()
	if !ok {
		return
	}
	line := p.eng.GetCurrentLine()
	if p.bookmarks.RemoveBookmark(path, line) {
		p.setMessage("bookmark on line %d removed", line)
	} else {
		p.setMessage("no bookmark on line %d", line)
	}
}

// jumpBookmark moves to the next bookmark after the current line, or the
// previous one before it, wrapping around.
func (p *Pager) jumpBookmark(forward bool) {
	path, ok := p.bookmarkPath()
	if !ok {
		return
	}
	marks := p.bookmarks.Bookmarks(path)
	if len(marks) == 0 {
		p.setMessage("no bookmarks")
		return
	}
	cur := p.eng.GetCurrentLine()
	i := 0
	if forward {
		for j, b := range marks {
			if b.Line > cur {
				i = j
				break
			}
		}
	} else {
		i = len(marks) - 1
		for j := len(marks) - 1; j >= 0; j-- {
			if marks[j].Line < cur {
				i = j
				break
			}
		}
	}
	b := marks[i]
	p.eng.ScrollToLine(min(b.Line, p.eng.GetTotalLines()))
	p.setMessage("bookmark %d/%d: %s", i+1, len(marks), bookmarkLabel(b))
}

func (p *Pager) listBookmarks() {
	path, ok := p.bookmarkPath()
	if !ok {
		return
	}
	marks := p.bookmarks.Bookmarks(path)
	if len(marks) == 0 {
		p.setMessage("no bookmarks")
		return
	}
	labels := make([]string, len(marks))
	for i, b := range marks {
		labels[i] = bookmarkLabel(b)
	}
	p.setMessage("bookmarks: %s", strings.Join(labels, " | "))
}

func bookmarkLabel(b session.Bookmark) string {
	if b.Memo == "" {
		return strconv.Itoa(b.Line)
	}
	return fmt.Sprintf("%d %s", b.Line, b.Memo)
}

func (p *Pager) handlePromptKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		if p.mode == ModeEdit {
			p.eng.CancelEdit()
		}
		p.leavePrompt()
	case tcell.KeyEnter:
		p.submit()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.prompt) > 0 {
			p.prompt = p.prompt[:len(p.prompt)-1]
		} else if p.mode != ModeEdit {
			p.leavePrompt()
		}
	case tcell.KeyUp, tcell.KeyDown:
		if p.mode == ModeSearch {
			p.recall(ev.Key() == tcell.KeyUp)
		}
	case tcell.KeyCtrlU:
		p.prompt = nil
	case tcell.KeyTab:
		if p.mode == ModeEdit {
			p.prompt = append(p.prompt, '\t')
		}
	case tcell.KeyRune:
		p.prompt = append(p.prompt, ev.Rune())
	}
}

func (p *Pager) recall(older bool) {
	if len(p.history) == 0 {
		return
	}
	if older {
		p.historyPos = max(p.historyPos-1, 0)
	} else {
		p.historyPos = min(p.historyPos+1, len(p.history))
	}
	if p.historyPos == len(p.history) {
		p.prompt = nil
		return
	}
	p.prompt = []rune(p.history[p.historyPos])
}

func (p *Pager) submit() {
	text := string(p.prompt)
	mode := p.mode
	p.leavePrompt()
	switch mode {
	case ModeGoto:
		p.gotoLine(text)
	case ModeSearch:
		p.search(text)
	case ModeEdit:
		p.eng.CommitEdit(text)
	case ModeReplace:
		p.replace(text)
	case ModeBookmark:
		p.addBookmark(text)
	}
}

var errBadLine = errors.New("not a line number")

// parseLine accepts "N", "+N", "-N" relative to current and "P%".
func parseLine(text string, current, total int) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, errBadLine
	}
	if pct, ok := strings.CutSuffix(text, "%"); ok {
		n, err := strconv.Atoi(pct)
		if err != nil {
			return 0, errBadLine
		}
		return max(int(math.Round(float64(total)*float64(n)/100)), 1), nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, errBadLine
	}
	if text[0] == '+' || text[0] == '-' {
		return current + n, nil
	}
	return n, nil
}

func (p *Pager) gotoLine(text string) {
	total := p.eng.GetTotalLines()
	line, err := parseLine(text, p.eng.GetCurrentLine(), total)
	if err != nil {
		p.setError(fmt.Errorf("%q: %w", text, err))
		return
	}
	p.eng.ScrollToLine(min(max(line, 1), total))
}

func (p *Pager) search(query string) {
	id := p.eng.DocumentID()
	if query == "" || id == "" {
		return
	}
	p.lastQuery = query
	p.remember(query)
	if p.OnSearch != nil {
		p.OnSearch(query)
	}
	query, opts := searchQuery(query)
	found, err := p.docs.Search(id, query, opts)
	if err != nil {
		p.setError(err)
		return
	}
	if len(found) == 0 {
		p.eng.ClearSearchHighlights()
		p.setMessage("no matches for %q", query)
		return
	}
	matches := make([]viewer.Match, len(found))
	active := 0
	from := p.eng.GetCurrentLine() - 1
	for i, m := range found {
		matches[i] = viewer.Match{Line: m.Line, Start: m.Start, End: m.End}
		if m.Line < from {
			active = (i + 1) % len(found)
		}
	}
	p.eng.SetSearchMatches(matches, active)
}

// searchQuery applies smart case and the "re:" regex prefix.
func searchQuery(query string) (string, docstore.SearchOptions) {
	opts := docstore.SearchOptions{CaseSensitive: hasUpper(query)}
	if re, ok := strings.CutPrefix(query, "re:"); ok && re != "" {
		query, opts.Regex = re, true
	}
	return query, opts
}

func (p *Pager) remember(query string) {
	out := p.history[:0]
	for _, q := range p.history {
		if q != query {
			out = append(out, q)
		}
	}
	p.history = append(out, query)
	p.historyPos = len(p.history)
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// Notify turns engine notifications into prompt line messages.
func (p *Pager) Notify(n viewer.Notification) {
	switch n := n.(type) {
	case viewer.EditFailed:
		p.setError(fmt.Errorf("line %d not saved: %w", n.Line, n.Err))
	case viewer.EditModeChanged:
		if !n.Enabled && p.mode == ModeEdit {
			p.leavePrompt()
		}
	}
}
