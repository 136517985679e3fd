package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_MissingDocument(t *testing.T) {
	m := NewMemory()

	doc, found, err := m.GetDocument(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, doc)
}

func TestMemory_MergePreservesUnspecifiedFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetDocumentMerged(ctx, "u1", map[string]any{"theme": "dark", "language": "en"}))
	require.NoError(t, m.SetDocumentMerged(ctx, "u1", map[string]any{"theme": "light"}))

	doc, found, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "light", doc["theme"])
	assert.Equal(t, "en", doc["language"], "unspecified field must survive the merge")
}

func TestMemory_MergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	fields := map[string]any{"qaza-count": float64(2), "theme": "dark"}
	require.NoError(t, m.SetDocumentMerged(ctx, "u1", fields))
	once, _, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, m.SetDocumentMerged(ctx, "u1", fields))
	twice, _, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestMemory_NilValueDeletesField(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetDocumentMerged(ctx, "u1", map[string]any{"sort-order": "name"}))
	require.NoError(t, m.SetDocumentMerged(ctx, "u1", map[string]any{"sort-order": nil}))

	doc, _, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)
	assert.NotContains(t, doc, "sort-order")
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetDocumentMerged(ctx, "u1", map[string]any{"prayer-log": map[string]any{"2024-01-01": map[string]any{"Fajr": "completed"}}}))

	doc, _, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)
	doc["prayer-log"] = "stomped"

	doc2, _, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, doc2["prayer-log"])
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetDocumentMerged(ctx, "u1", map[string]any{"theme": "dark"}))
	require.NoError(t, m.DeleteDocument(ctx, "u1"))

	_, found, err := m.GetDocument(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)
}
