package store

import (
	"context"
	"errors"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

// ErrNotFound is returned when no document carries the requested id.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when an insert or update violates a unique index
// or reuses an existing id.
var ErrDuplicate = errors.New("duplicate document")

// IndexSpec declares an index on a document field.
type IndexSpec struct {
	Field  string
	Unique bool
	// Sparse indexes skip documents that do not carry the field at all.
	Sparse bool
}

// FindOptions carries ordering and pagination for Find.
type FindOptions struct {
	Sort  *document.Sort
	Limit int
	Skip  int
}

// Collection is a named set of documents. Implementations must return copies
// of stored documents; callers may mutate results freely.
type Collection interface {
	// Insert stores a new document. The document must carry an id.
	Insert(ctx context.Context, doc document.Document) (document.Document, error)

	// Find returns the documents matching the equality query, ordered and
	// paginated per opts.
	Find(ctx context.Context, query document.Query, opts FindOptions) ([]document.Document, error)

	// FindByID returns the document with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (document.Document, error)

	// Update merges fields into the existing document.
	Update(ctx context.Context, id string, fields document.Document) error

	// Replace overwrites the document wholesale, keeping its id.
	Replace(ctx context.Context, id string, doc document.Document) error

	// Remove deletes the document, or returns ErrNotFound.
	Remove(ctx context.Context, id string) error

	// EnsureIndex declares an index; repeated declarations are idempotent.
	EnsureIndex(ctx context.Context, spec IndexSpec) error
}

// Store opens named collections over a shared backend.
type Store interface {
	Collection(name string) (Collection, error)
	Ping(ctx context.Context) error
	Close() error
}
