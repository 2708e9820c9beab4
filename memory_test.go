package pickcolor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEditorApplyEdit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("current snapshot", func(t *testing.T) {
		t.Parallel()
		m := NewMemoryEditor("mem://a", "color: #fff;", 8, FontSettings{})
		doc, err := m.ActiveEditor(ctx)
		require.NoError(t, err)

		applied, err := m.ApplyEdit(ctx, doc, Range{Start: 7, End: 11}, "#123456")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "color: #123456;", m.Text())
		assert.Equal(t, 1, m.Edits())
	})

	t.Run("stale snapshot on other lines", func(t *testing.T) {
		t.Parallel()
		m := NewMemoryEditor("mem://a", "a: #111;\nb: #222;\nc: #333;", 0, FontSettings{})
		doc, err := m.ActiveEditor(ctx)
		require.NoError(t, err)

		_, err = m.ApplyEdit(ctx, doc, Range{Start: 12, End: 16}, "#BBBBBB")
		require.NoError(t, err)
		_, err = m.ApplyEdit(ctx, doc, Range{Start: 3, End: 7}, "rgb(1, 2, 3)")
		require.NoError(t, err)
		_, err = m.ApplyEdit(ctx, doc, Range{Start: 21, End: 25}, "#CCC")
		require.NoError(t, err)

		assert.Equal(t, "a: rgb(1, 2, 3);\nb: #BBBBBB;\nc: #CCC;", m.Text())
		assert.Equal(t, 3, m.Edits())
	})
}

func TestMemoryEditorClosedDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryEditor("mem://a", "#fff", 0, FontSettings{})
	doc, err := m.ActiveEditor(ctx)
	require.NoError(t, err)

	m.CloseDocument()
	_, err = m.ApplyEdit(ctx, doc, Range{Start: 0, End: 4}, "#000")
	assert.ErrorIs(t, err, ErrNoActiveEditor)
	assert.Equal(t, 0, m.Edits())
}
