package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

// Memory is a thread-safe in-memory store. It is intended for tests and
// prototyping and deliberately keeps the implementation simple.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

// Collection opens or creates the named collection.
func (m *Memory) Collection(name string) (Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		return c, nil
	}
	c := &memoryCollection{name: name, docs: make(map[string]document.Document)}
	m.collections[name] = c
	return c, nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

type memoryCollection struct {
	mu      sync.RWMutex
	name    string
	docs    map[string]document.Document
	indexes []IndexSpec
}

func (c *memoryCollection) Insert(_ context.Context, doc document.Document) (document.Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, fmt.Errorf("collection %s: insert requires an id", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; exists {
		return nil, fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrDuplicate)
	}
	if err := c.checkIndexesLocked(doc, id); err != nil {
		return nil, err
	}

	stored := doc.Clone()
	c.docs[id] = stored
	return stored.Clone(), nil
}

func (c *memoryCollection) Find(_ context.Context, query document.Query, opts FindOptions) ([]document.Document, error) {
	c.mu.RLock()
	var matched []document.Document
	for _, d := range c.docs {
		if query.Matches(d) {
			matched = append(matched, d.Clone())
		}
	}
	c.mu.RUnlock()

	return applyFindOptions(matched, opts), nil
}

func (c *memoryCollection) FindByID(_ context.Context, id string) (document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	return d.Clone(), nil
}

func (c *memoryCollection) Update(_ context.Context, id string, fields document.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	merged := existing.Clone()
	merged.Merge(fields)
	merged.SetID(id)
	if err := c.checkIndexesLocked(merged, id); err != nil {
		return err
	}
	c.docs[id] = merged
	return nil
}

func (c *memoryCollection) Replace(_ context.Context, id string, doc document.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	stored := doc.Clone()
	stored.SetID(id)
	if err := c.checkIndexesLocked(stored, id); err != nil {
		return err
	}
	c.docs[id] = stored
	return nil
}

func (c *memoryCollection) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	delete(c.docs, id)
	return nil
}

func (c *memoryCollection) EnsureIndex(_ context.Context, spec IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.indexes {
		if existing.Field == spec.Field {
			return nil
		}
	}
	c.indexes = append(c.indexes, spec)
	return nil
}

func (c *memoryCollection) checkIndexesLocked(doc document.Document, selfID string) error {
	return checkUnique(c.indexes, c.docs, doc, selfID, c.name)
}

// applyFindOptions sorts and paginates matched documents. Shared by the
// memory, file, sqlite and postgres backends so ordering semantics stay
// identical across them.
func applyFindOptions(docs []document.Document, opts FindOptions) []document.Document {
	document.SortDocs(docs, opts.Sort)
	if opts.Skip > 0 {
		if opts.Skip >= len(docs) {
			return []document.Document{}
		}
		docs = docs[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(docs) {
		docs = docs[:opts.Limit]
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs
}
