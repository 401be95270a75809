package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		kind FormatKind
		in   string
		want string
	}{
		{"sentences", SentenceBreaks, "One. Two? Three! Four", "One.\nTwo?\nThree!\nFour"},
		{"sentence needs a following word", SentenceBreaks, "End. \nx. ", "End. \nx. "},
		{"abbreviation spacing kept", SentenceBreaks, "a.b. c", "a.b.\nc"},
		{"compress", CompressBlankLines, "a\n\n \n\nb\n\nc", "a\n\nb\n\nc"},
		{"compress leading", CompressBlankLines, "\n\n\na", "\na"},
		{"remove", RemoveBlankLines, "a\n\n  \nb\n", "a\nb"},
		{"remove everything", RemoveBlankLines, "\n \n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.in, tt.kind)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := Format("x", "shout")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestApplyFormatUndoable(t *testing.T) {
	m := NewMemory(nil)
	id := m.OpenText("doc", "a\n\n\n\nb")

	preview, err := m.PreviewFormat(id, CompressBlankLines)
	require.NoError(t, err)
	require.Equal(t, "a\n\nb", preview)
	require.False(t, m.Modified(id), "preview must not touch the document")

	changed, err := m.ApplyFormat(id, CompressBlankLines)
	require.NoError(t, err)
	require.True(t, changed)
	n, _ := m.TotalLineCount(context.Background(), id)
	require.Equal(t, 3, n)

	changed, err = m.ApplyFormat(id, CompressBlankLines)
	require.NoError(t, err)
	require.False(t, changed)

	require.NoError(t, m.Undo(context.Background(), id))
	text, _ := m.Text(id)
	require.Equal(t, "a\n\n\n\nb", text)
}
