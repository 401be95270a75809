package docstore

import (
	"fmt"
	"strings"
	"unicode"
)

// FormatKind names a whole-document rewrite.
type FormatKind string

const (
	SentenceBreaks     FormatKind = "sentence_breaks"
	CompressBlankLines FormatKind = "compress_blank_lines"
	RemoveBlankLines   FormatKind = "remove_blank_lines"
)

// FormatKinds lists the supported rewrites in menu order.
var FormatKinds = []FormatKind{SentenceBreaks, CompressBlankLines, RemoveBlankLines}

// Format applies kind to text.
func Format(text string, kind FormatKind) (string, error) {
	switch kind {
	case SentenceBreaks:
		return addSentenceBreaks(text), nil
	case CompressBlankLines:
		return compressBlankLines(text), nil
	case RemoveBlankLines:
		return removeBlankLines(text), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, kind)
	}
}

// addSentenceBreaks turns ". X" (also "?" and "!") into ".\nX".
func addSentenceBreaks(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if (r == '.' || r == '?' || r == '!') &&
			i+2 < len(runes) && runes[i+1] == ' ' && !unicode.IsSpace(runes[i+2]) {
			b.WriteByte('\n')
			i++
		}
	}
	return b.String()
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// compressBlankLines keeps one empty line out of every run of blank lines.
func compressBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		if isBlank(line) {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		out = append(out, line)
		prevBlank = false
	}
	return strings.Join(out, "\n")
}

func removeBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if !isBlank(line) {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// PreviewFormat returns the document as it would look after kind.
func (m *Memory) PreviewFormat(id string, kind FormatKind) (string, error) {
	text, err := m.lfText(id)
	if err != nil {
		return "", err
	}
	return Format(text, kind)
}

// ApplyFormat rewrites the document as one undo step. It reports whether
// anything changed.
func (m *Memory) ApplyFormat(id string, kind FormatKind) (bool, error) {
	text, err := m.lfText(id)
	if err != nil {
		return false, err
	}
	formatted, err := Format(text, kind)
	if err != nil {
		return false, err
	}
	if formatted == text {
		return false, nil
	}
	if err := m.ReplaceAllLines(id, splitLines(formatted)); err != nil {
		return false, err
	}
	return true, nil
}
