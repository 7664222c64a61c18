package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIsolation(t *testing.T) {
	orig := Document{
		"id":   "1",
		"tags": []any{"a", "b"},
		"meta": map[string]any{"views": 3},
	}
	clone := orig.Clone()

	clone["id"] = "2"
	clone["tags"].([]any)[0] = "changed"
	clone["meta"].(map[string]any)["views"] = 9

	assert.Equal(t, "1", orig.ID())
	assert.Equal(t, "a", orig["tags"].([]any)[0])
	assert.Equal(t, 3, orig["meta"].(map[string]any)["views"])
}

func TestCloneNil(t *testing.T) {
	var d Document
	assert.Nil(t, d.Clone())
}

func TestMergeOverwrites(t *testing.T) {
	d := Document{"title": "old", "status": "draft"}
	d.Merge(Document{"title": "new", "slug": "new"})

	assert.Equal(t, Document{"title": "new", "status": "draft", "slug": "new"}, d)
}

func TestInt64Value(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{name: "int64", in: int64(7), want: 7},
		{name: "int", in: 7, want: 7},
		{name: "float64 from JSON", in: float64(7), want: 7},
		{name: "numeric string", in: "7", want: 7},
		{name: "non numeric", in: "seven", want: 0},
		{name: "nil", in: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Int64Value(tt.in))
		})
	}
}

func TestInternal(t *testing.T) {
	assert.True(t, Document{FieldInternal: true}.Internal())
	assert.False(t, Document{FieldInternal: "true"}.Internal())
	assert.False(t, Document{}.Internal())
}
