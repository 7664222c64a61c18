package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

func newSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCRUD(t *testing.T) {
	ctx := context.Background()
	col, err := newSQLiteStore(t).Collection("posts")
	require.NoError(t, err)

	_, err = col.Insert(ctx, document.Document{"id": "0", "title": "first", "views": 3})
	require.NoError(t, err)

	got, err := col.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "first", got["title"])

	require.NoError(t, col.Update(ctx, "0", document.Document{"status": "publish"}))
	got, err = col.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "first", got["title"])
	assert.Equal(t, "publish", got["status"])

	require.NoError(t, col.Remove(ctx, "0"))
	_, err = col.FindByID(ctx, "0")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, col.Remove(ctx, "0"), ErrNotFound)
}

func TestSQLiteDuplicateID(t *testing.T) {
	ctx := context.Background()
	col, err := newSQLiteStore(t).Collection("posts")
	require.NoError(t, err)

	_, err = col.Insert(ctx, document.Document{"id": "0"})
	require.NoError(t, err)
	_, err = col.Insert(ctx, document.Document{"id": "0"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSQLiteFindFilters(t *testing.T) {
	ctx := context.Background()
	col, err := newSQLiteStore(t).Collection("posts")
	require.NoError(t, err)

	docs := []document.Document{
		{"id": "0", "status": "publish", "views": 10},
		{"id": "1", "status": "draft", "views": 10},
		{"id": "2", "status": "publish", "views": 2},
	}
	for _, d := range docs {
		_, err := col.Insert(ctx, d)
		require.NoError(t, err)
	}

	published, err := col.Find(ctx, document.Query{"status": "publish"}, FindOptions{
		Sort: &document.Sort{Field: document.FieldID, Descending: true},
	})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "2", published[0].ID())

	// Numeric equality survives the JSON round trip.
	busy, err := col.Find(ctx, document.Query{"views": 10}, FindOptions{})
	require.NoError(t, err)
	assert.Len(t, busy, 2)

	none, err := col.Find(ctx, document.Query{"status": "gone"}, FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteUniqueSparseIndex(t *testing.T) {
	ctx := context.Background()
	col, err := newSQLiteStore(t).Collection("posts")
	require.NoError(t, err)
	require.NoError(t, col.EnsureIndex(ctx, IndexSpec{Field: "slug", Unique: true, Sparse: true}))

	_, err = col.Insert(ctx, document.Document{"id": "0", "slug": "hello"})
	require.NoError(t, err)
	_, err = col.Insert(ctx, document.Document{"id": "1", "slug": "hello"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Documents without the indexed field do not collide.
	_, err = col.Insert(ctx, document.Document{"id": "2"})
	assert.NoError(t, err)
	_, err = col.Insert(ctx, document.Document{"id": "3"})
	assert.NoError(t, err)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	col, err := s.Collection("posts")
	require.NoError(t, err)
	_, err = col.Insert(ctx, document.Document{"id": "0", "title": "durable"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	col2, err := s2.Collection("posts")
	require.NoError(t, err)
	got, err := col2.FindByID(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "durable", got["title"])
}
