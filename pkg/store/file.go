package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

// journalEntry is one line of a collection journal file.
type journalEntry struct {
	Op  string            `json:"op"` // insert, replace, remove
	ID  string            `json:"id"`
	Doc document.Document `json:"doc,omitempty"`
}

// File is a journaled file store: each collection lives in
// <dir>/<name>.journal as JSON lines replayed at load time. A scheduled
// compactor rewrites journals as plain inserts, and an fsnotify watcher
// reloads collections edited outside the process.
type File struct {
	dir     string
	log     *logrus.Entry
	cron    *cron.Cron
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	collections map[string]*fileCollection
	closed      bool
}

// NewFile opens (or creates) a file store rooted at dir. The compaction
// schedule uses cron syntax; pass "" to keep the default hourly schedule.
func NewFile(dir string, compactSchedule string, log *logrus.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if compactSchedule == "" {
		compactSchedule = "@hourly"
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	f := &File{
		dir:         dir,
		log:         log.WithField("component", "filestore"),
		cron:        cron.New(),
		watcher:     watcher,
		collections: make(map[string]*fileCollection),
	}
	if _, err := f.cron.AddFunc(compactSchedule, f.compactAll); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("invalid compaction schedule %q: %w", compactSchedule, err)
	}
	f.cron.Start()
	go f.watch()
	return f, nil
}

// Collection opens the named collection, replaying its journal if present.
func (f *File) Collection(name string) (Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collections[name]; ok {
		return c, nil
	}
	c := &fileCollection{
		name: name,
		path: filepath.Join(f.dir, name+".journal"),
		docs: make(map[string]document.Document),
		log:  f.log.WithField("collection", name),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	f.collections[name] = c
	return c, nil
}

// Ping implements Store.
func (f *File) Ping(context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

// Close stops the compactor and watcher and compacts all journals once.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.cron.Stop()
	err := f.watcher.Close()
	f.compactAll()
	return err
}

// compactAll rewrites every open collection journal as plain inserts.
func (f *File) compactAll() {
	f.mu.Lock()
	cols := make([]*fileCollection, 0, len(f.collections))
	for _, c := range f.collections {
		cols = append(cols, c)
	}
	f.mu.Unlock()

	for _, c := range cols {
		if err := c.compact(); err != nil {
			f.log.WithError(err).WithField("collection", c.name).Warn("compaction failed")
		}
	}
}

// watch reloads collections whose journals change outside this process.
func (f *File) watch() {
	for {
		select {
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			f.mu.Lock()
			var target *fileCollection
			for _, c := range f.collections {
				if c.path == ev.Name {
					target = c
					break
				}
			}
			f.mu.Unlock()
			if target == nil || target.recentOwnWrite() {
				continue
			}
			if err := target.reload(); err != nil {
				f.log.WithError(err).WithField("collection", target.name).Warn("external reload failed")
			} else {
				f.log.WithField("collection", target.name).Info("reloaded after external change")
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.WithError(err).Warn("watcher error")
		}
	}
}

type fileCollection struct {
	mu      sync.RWMutex
	name    string
	path    string
	docs    map[string]document.Document
	indexes []IndexSpec
	log     *logrus.Entry

	// lastWrite lets the watcher distinguish our own journal appends from
	// external edits. Events within the grace window of an own write are
	// ignored; anything later triggers a reload.
	lastWrite atomic.Int64
}

const ownWriteGrace = 200 * time.Millisecond

func (c *fileCollection) recentOwnWrite() bool {
	return time.Since(time.Unix(0, c.lastWrite.Load())) < ownWriteGrace
}

func (c *fileCollection) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *fileCollection) reload() error {
	return c.load()
}

func (c *fileCollection) loadLocked() error {
	file, err := os.Open(c.path)
	if os.IsNotExist(err) {
		c.docs = make(map[string]document.Document)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	docs := make(map[string]document.Document)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry journalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			// A torn final line from a crashed write is tolerated; anything
			// mid-file is corruption.
			c.log.WithError(err).WithField("line", line).Warn("skipping unreadable journal line")
			continue
		}
		switch entry.Op {
		case "insert", "replace":
			docs[entry.ID] = entry.Doc
		case "remove":
			delete(docs, entry.ID)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	c.docs = docs
	return nil
}

func (c *fileCollection) appendLocked(entry journalEntry) error {
	file, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	c.lastWrite.Store(time.Now().UnixNano())
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append journal: %w", err)
	}
	return nil
}

// compact rewrites the journal with one insert line per live document.
func (c *fileCollection) compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create compacted journal: %w", err)
	}
	w := bufio.NewWriter(file)
	for id, doc := range c.docs {
		data, err := json.Marshal(journalEntry{Op: "insert", ID: id, Doc: doc})
		if err != nil {
			file.Close()
			return fmt.Errorf("failed to marshal document %s: %w", id, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			file.Close()
			return fmt.Errorf("failed to write compacted journal: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	c.lastWrite.Store(time.Now().UnixNano())
	return os.Rename(tmp, c.path)
}

func (c *fileCollection) Insert(_ context.Context, doc document.Document) (document.Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, fmt.Errorf("collection %s: insert requires an id", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; exists {
		return nil, fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrDuplicate)
	}
	if err := checkUnique(c.indexes, c.docs, doc, id, c.name); err != nil {
		return nil, err
	}
	stored := doc.Clone()
	if err := c.appendLocked(journalEntry{Op: "insert", ID: id, Doc: stored}); err != nil {
		return nil, err
	}
	c.docs[id] = stored
	return stored.Clone(), nil
}

func (c *fileCollection) Find(_ context.Context, query document.Query, opts FindOptions) ([]document.Document, error) {
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

func (c *fileCollection) FindByID(_ context.Context, id string) (document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	return d.Clone(), nil
}

func (c *fileCollection) Update(ctx context.Context, id string, fields document.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	merged := existing.Clone()
	merged.Merge(fields)
	merged.SetID(id)
	if err := checkUnique(c.indexes, c.docs, merged, id, c.name); err != nil {
		return err
	}
	if err := c.appendLocked(journalEntry{Op: "replace", ID: id, Doc: merged}); err != nil {
		return err
	}
	c.docs[id] = merged
	return nil
}

func (c *fileCollection) Replace(_ context.Context, id string, doc document.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	stored := doc.Clone()
	stored.SetID(id)
	if err := checkUnique(c.indexes, c.docs, stored, id, c.name); err != nil {
		return err
	}
	if err := c.appendLocked(journalEntry{Op: "replace", ID: id, Doc: stored}); err != nil {
		return err
	}
	c.docs[id] = stored
	return nil
}

func (c *fileCollection) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	if err := c.appendLocked(journalEntry{Op: "remove", ID: id}); err != nil {
		return err
	}
	delete(c.docs, id)
	return nil
}

func (c *fileCollection) EnsureIndex(_ context.Context, spec IndexSpec) error {
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

// checkUnique enforces unique indexes for the map-backed collections.
func checkUnique(indexes []IndexSpec, docs map[string]document.Document, doc document.Document, selfID, name string) error {
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		val, ok := doc[idx.Field]
		if !ok {
			if idx.Sparse {
				continue
			}
			return fmt.Errorf("collection %s: missing indexed field %s", name, idx.Field)
		}
		for otherID, other := range docs {
			if otherID == selfID {
				continue
			}
			if otherVal, ok := other[idx.Field]; ok && document.CompareValues(val, otherVal) == 0 {
				return fmt.Errorf("collection %s: %s=%v: %w", name, idx.Field, val, ErrDuplicate)
			}
		}
	}
	return nil
}
