package design

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joke-plugin/internal/dispatch"
	"joke-plugin/internal/models"
)

func seed(t *testing.T, texts ...string) *Document {
	t.Helper()
	doc := NewDocument(1)
	for _, s := range texts {
		require.NoError(t, doc.InsertText(context.Background(), models.TextElement{Text: s}))
	}
	return doc
}

func TestInsertAssignsIDs(t *testing.T) {
	doc := seed(t, "a", "b")

	els := doc.Elements()
	require.Len(t, els, 2)
	assert.Equal(t, int64(1), els[0].ID)
	assert.Equal(t, int64(2), els[1].ID)
	assert.Equal(t, int64(1), els[1].DesignID)
}

func TestSelectAndCount(t *testing.T) {
	ctx := context.Background()
	doc := seed(t, "a", "b", "c")

	n, _ := doc.Count(ctx)
	assert.Zero(t, n)

	require.NoError(t, doc.Select(1, 3))
	n, _ = doc.Count(ctx)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, doc.Select(9), ErrElementNotFound)

	doc.ClearSelection()
	n, _ = doc.Count(ctx)
	assert.Zero(t, n)
}

func TestReadIsDetachedUntilSave(t *testing.T) {
	ctx := context.Background()
	doc := seed(t, "a", "b", "c")
	require.NoError(t, doc.Select(2, 3))

	sel, err := doc.Read(ctx)
	require.NoError(t, err)
	require.Len(t, sel.Contents(), 2)

	for _, item := range sel.Contents() {
		*item.Text = "joke"
	}
	assert.Equal(t, "b", doc.Elements()[1].Text, "not saved yet")

	require.NoError(t, sel.Save(ctx))

	els := doc.Elements()
	assert.Equal(t, "a", els[0].Text)
	assert.Equal(t, "joke", els[1].Text)
	assert.Equal(t, "joke", els[2].Text)
}

func TestDispatchAgainstDocument(t *testing.T) {
	ctx := context.Background()
	doc := seed(t, "a", "b", "c")
	require.NoError(t, doc.Select(1, 2, 3))

	err := dispatch.New().Execute(ctx, models.ModeReplace, "X", doc, doc)
	require.NoError(t, err)

	for _, el := range doc.Elements() {
		assert.Equal(t, "X", el.Text)
	}

	require.NoError(t, dispatch.New().Execute(ctx, models.ModeAdd, "Y", doc, doc))
	els := doc.Elements()
	require.Len(t, els, 4)
	assert.Equal(t, "Y", els[3].Text)
	assert.False(t, els[3].Selected)
}
