package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	col, err := NewMemory().Collection("posts")
	require.NoError(t, err)

	inserted, err := col.Insert(ctx, document.Document{"id": "0", "title": "first"})
	require.NoError(t, err)
	assert.Equal(t, "0", inserted.ID())

	got, err := col.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "first", got["title"])

	require.NoError(t, col.Update(ctx, "0", document.Document{"status": "publish"}))
	got, err = col.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "first", got["title"], "update merges, it does not replace")
	assert.Equal(t, "publish", got["status"])

	require.NoError(t, col.Replace(ctx, "0", document.Document{"title": "rewritten"}))
	got, err = col.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got["title"])
	_, hasStatus := got["status"]
	assert.False(t, hasStatus, "replace drops unmentioned fields")

	require.NoError(t, col.Remove(ctx, "0"))
	_, err = col.FindByID(ctx, "0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	col, _ := NewMemory().Collection("posts")

	_, err := col.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, col.Update(ctx, "missing", document.Document{}), ErrNotFound)
	assert.ErrorIs(t, col.Replace(ctx, "missing", document.Document{}), ErrNotFound)
	assert.ErrorIs(t, col.Remove(ctx, "missing"), ErrNotFound)
}

func TestMemoryDuplicateID(t *testing.T) {
	ctx := context.Background()
	col, _ := NewMemory().Collection("posts")

	_, err := col.Insert(ctx, document.Document{"id": "0"})
	require.NoError(t, err)
	_, err = col.Insert(ctx, document.Document{"id": "0"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryInsertRequiresID(t *testing.T) {
	col, _ := NewMemory().Collection("posts")
	_, err := col.Insert(context.Background(), document.Document{"title": "no id"})
	assert.Error(t, err)
}

func TestMemoryUniqueIndex(t *testing.T) {
	ctx := context.Background()
	col, _ := NewMemory().Collection("posts")
	require.NoError(t, col.EnsureIndex(ctx, IndexSpec{Field: "slug", Unique: true, Sparse: true}))

	_, err := col.Insert(ctx, document.Document{"id": "0", "slug": "hello"})
	require.NoError(t, err)

	_, err = col.Insert(ctx, document.Document{"id": "1", "slug": "hello"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Sparse: documents without the field are fine.
	_, err = col.Insert(ctx, document.Document{"id": "2"})
	assert.NoError(t, err)
	_, err = col.Insert(ctx, document.Document{"id": "3"})
	assert.NoError(t, err)

	// The constraint also applies to merges.
	assert.ErrorIs(t, col.Update(ctx, "2", document.Document{"slug": "hello"}), ErrDuplicate)
}

func TestMemoryFind(t *testing.T) {
	ctx := context.Background()
	col, _ := NewMemory().Collection("posts")
	for i, status := range []string{"publish", "draft", "publish", "publish"} {
		_, err := col.Insert(ctx, document.Document{
			"id":     string(rune('0' + i)),
			"status": status,
		})
		require.NoError(t, err)
	}

	all, err := col.Find(ctx, nil, FindOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	published, err := col.Find(ctx, document.Query{"status": "publish"}, FindOptions{})
	require.NoError(t, err)
	assert.Len(t, published, 3)

	none, err := col.Find(ctx, document.Query{"status": "gone"}, FindOptions{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryFindSortLimitSkip(t *testing.T) {
	ctx := context.Background()
	col, _ := NewMemory().Collection("posts")
	for _, id := range []string{"2", "0", "10", "1"} {
		_, err := col.Insert(ctx, document.Document{"id": id})
		require.NoError(t, err)
	}

	docs, err := col.Find(ctx, nil, FindOptions{
		Sort: &document.Sort{Field: document.FieldID, Descending: true},
	})
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	assert.Equal(t, []string{"10", "2", "1", "0"}, ids)

	page, err := col.Find(ctx, nil, FindOptions{
		Sort:  &document.Sort{Field: document.FieldID, Descending: true},
		Skip:  1,
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2", page[0].ID())
	assert.Equal(t, "1", page[1].ID())

	past, err := col.Find(ctx, nil, FindOptions{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMemoryReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	col, _ := NewMemory().Collection("posts")
	_, err := col.Insert(ctx, document.Document{"id": "0", "title": "original"})
	require.NoError(t, err)

	got, err := col.FindByID(ctx, "0")
	require.NoError(t, err)
	got["title"] = "mutated"

	again, err := col.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "original", again["title"])
}
