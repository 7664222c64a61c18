package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell-cms/inkwell/pkg/async"
	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/hooks"
	"github.com/inkwell-cms/inkwell/pkg/observability"
	"github.com/inkwell-cms/inkwell/pkg/store"
)

// Validator checks a document before creation.
type Validator func(document.Document) error

// Config declares a collection service. Concrete services differ only in
// their configuration; there is no subclassing.
type Config struct {
	// Name is the collection and mount name.
	Name string

	// Incremental services allocate sequential string ids through the bound
	// options service and default find results to descending id order.
	Incremental bool

	// Cacheable services serve repeated find/get requests from the result
	// caches until a mutation purges them.
	Cacheable bool

	// Validate rejects create data before it is queued or dispatched.
	Validate Validator

	// Hooks run immediately before and after each operation.
	Hooks hooks.Set

	// Caches builds the find and get caches; defaults to per-service LRU.
	Caches CacheFactory

	// Logger is the parent logger; defaults to the logrus standard logger.
	Logger *logrus.Logger

	// Metrics is optional; nil records nothing.
	Metrics *observability.Metrics
}

// queuedCreate is a creation deferred because another one is in flight.
type queuedCreate struct {
	ctx    context.Context
	data   document.Document
	params *document.Params
	done   chan Result
}

// Service wraps one collection with the envelope, caching, creation-queue
// and hook semantics. Each instance exclusively owns its caches and queue.
type Service struct {
	cfg     Config
	col     store.Collection
	options *Service
	log     *logrus.Entry

	findCache ResultCache
	getCache  ResultCache

	mu       sync.Mutex
	inFlight bool
	queue    []*queuedCreate
}

// New builds a service over the given collection.
func New(cfg Config, col store.Collection) *Service {
	if cfg.Caches == nil {
		cfg.Caches = LRUFactory(DefaultCacheSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Service{
		cfg:       cfg,
		col:       col,
		log:       cfg.Logger.WithField("service", cfg.Name),
		findCache: cfg.Caches(cfg.Name, "find"),
		getCache:  cfg.Caches(cfg.Name, "get"),
	}
}

// Name returns the service's collection name.
func (s *Service) Name() string {
	return s.cfg.Name
}

// PendingCreates returns the current creation queue depth.
func (s *Service) PendingCreates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Find returns the documents matching query, ordered and paginated per
// params. Incremental services default to descending id order when the
// caller supplies no sort.
func (s *Service) Find(ctx context.Context, query document.Query, params *document.Params) Result {
	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpFind, Query: query, Params: params}
	if err := s.cfg.Hooks.Run(hooks.Before, hooks.OpFind, hc); err != nil {
		return s.reject(hooks.OpFind, err)
	}
	query, params = hc.Query, hc.Params

	if s.cfg.Incremental && (params == nil || params.Sort == nil) {
		params = params.WithSort(&document.Sort{Field: document.FieldID, Descending: true})
	}

	key := document.FindKey(query, params)
	if s.cfg.Cacheable {
		if cached, ok := s.findCache.Get(key); ok {
			s.log.WithField("key", key).Debug("find cache hit")
			s.cfg.Metrics.RecordCacheHit(s.cfg.Name, "find")
			return s.after(hc, cached)
		}
		s.cfg.Metrics.RecordCacheMiss(s.cfg.Name, "find")
	}

	opts := store.FindOptions{}
	if params != nil {
		opts = store.FindOptions{Sort: params.Sort, Limit: params.Limit, Skip: params.Skip}
	}
	res := s.dispatch(hooks.OpFind, logrus.Fields{"query": query, "params": params}, func() (any, error) {
		return s.col.Find(ctx, query, opts)
	})
	if s.cfg.Cacheable && res.IsOK() {
		s.findCache.Put(key, res)
	}
	return s.after(hc, res)
}

// Get returns the document with the given id.
func (s *Service) Get(ctx context.Context, id string, params *document.Params) Result {
	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpGet, ID: id, Params: params}
	if err := s.cfg.Hooks.Run(hooks.Before, hooks.OpGet, hc); err != nil {
		return s.reject(hooks.OpGet, err)
	}
	id, params = hc.ID, hc.Params

	key := document.GetKey(id, params)
	if s.cfg.Cacheable {
		if cached, ok := s.getCache.Get(key); ok {
			s.log.WithField("key", key).Debug("get cache hit")
			s.cfg.Metrics.RecordCacheHit(s.cfg.Name, "get")
			return s.after(hc, cached)
		}
		s.cfg.Metrics.RecordCacheMiss(s.cfg.Name, "get")
	}

	res := s.dispatch(hooks.OpGet, logrus.Fields{"id": id}, func() (any, error) {
		return s.col.FindByID(ctx, id)
	})
	if s.cfg.Cacheable && res.IsOK() {
		s.getCache.Put(key, res)
	}
	return s.after(hc, res)
}

// Create stores a new document. At most one creation runs at a time per
// service; concurrent calls queue FIFO and are replayed one at a time, so
// callers observe only latency, never reordering or loss.
func (s *Service) Create(ctx context.Context, data document.Document, params *document.Params) Result {
	data = data.Clone()
	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpCreate, Data: data, Params: params}
	if err := s.cfg.Hooks.Run(hooks.Before, hooks.OpCreate, hc); err != nil {
		return s.reject(hooks.OpCreate, err)
	}
	data, params = hc.Data, hc.Params

	if s.cfg.Validate != nil {
		if err := s.cfg.Validate(data); err != nil {
			return s.reject(hooks.OpCreate, err)
		}
	}

	s.mu.Lock()
	if s.inFlight {
		qc := &queuedCreate{ctx: ctx, data: data, params: params, done: make(chan Result, 1)}
		s.queue = append(s.queue, qc)
		depth := len(s.queue)
		s.mu.Unlock()
		s.log.WithField("depth", depth).Debug("creation queued")
		s.cfg.Metrics.SetQueueDepth(s.cfg.Name, depth)
		return <-qc.done
	}
	s.inFlight = true
	s.mu.Unlock()

	res := s.runCreate(ctx, data, params)
	s.drainQueue()
	return res
}

// runCreate performs one creation while the in-flight flag is held.
func (s *Service) runCreate(ctx context.Context, data document.Document, params *document.Params) Result {
	data[document.FieldCreated] = time.Now().UnixMilli()

	var res Result
	if s.cfg.Incremental {
		id, err := s.nextID(ctx)
		if err != nil {
			s.log.WithError(err).Error("id allocation failed")
			s.cfg.Metrics.RecordOperation(s.cfg.Name, string(hooks.OpCreate), string(StatusError))
			res = Failure(err.Error())
		} else {
			data.SetID(id)
			res = s.insert(ctx, data)
		}
	} else {
		if data.ID() == "" {
			data.SetID(uuid.NewString())
		}
		res = s.insert(ctx, data)
	}

	s.purgeCaches()

	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpCreate, Data: data, Params: params}
	return s.after(hc, res)
}

func (s *Service) insert(ctx context.Context, data document.Document) Result {
	return s.dispatch(hooks.OpCreate, logrus.Fields{"id": data.ID()}, func() (any, error) {
		return s.col.Insert(ctx, data)
	})
}

// drainQueue replays at most one queued creation, then reschedules itself
// from that creation's completion. The in-flight flag clears only when the
// queue is empty.
func (s *Service) drainQueue() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.inFlight = false
		s.mu.Unlock()
		s.cfg.Metrics.SetQueueDepth(s.cfg.Name, 0)
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	depth := len(s.queue)
	s.mu.Unlock()
	s.cfg.Metrics.SetQueueDepth(s.cfg.Name, depth)

	async.SafeGo(s.log, "create queue drain", func() error {
		next.done <- s.runCreate(next.ctx, next.data, next.params)
		s.drainQueue()
		return nil
	})
}

// Update replaces the document wholesale, preserving its creation
// timestamp and stamping the update timestamp.
func (s *Service) Update(ctx context.Context, id string, data document.Document, params *document.Params) Result {
	data = data.Clone()
	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpUpdate, ID: id, Data: data, Params: params}
	if err := s.cfg.Hooks.Run(hooks.Before, hooks.OpUpdate, hc); err != nil {
		return s.reject(hooks.OpUpdate, err)
	}
	id, data = hc.ID, hc.Data

	data[document.FieldUpdated] = time.Now().UnixMilli()
	res := s.dispatch(hooks.OpUpdate, logrus.Fields{"id": id}, func() (any, error) {
		existing, err := s.col.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if created := existing.Created(); created != 0 {
			data[document.FieldCreated] = created
		}
		if err := s.col.Replace(ctx, id, data); err != nil {
			return nil, err
		}
		return s.col.FindByID(ctx, id)
	})
	s.purgeCaches()
	return s.after(hc, res)
}

// Patch merges fields into the document, stamping the update timestamp.
func (s *Service) Patch(ctx context.Context, id string, data document.Document, params *document.Params) Result {
	data = data.Clone()
	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpPatch, ID: id, Data: data, Params: params}
	if err := s.cfg.Hooks.Run(hooks.Before, hooks.OpPatch, hc); err != nil {
		return s.reject(hooks.OpPatch, err)
	}
	id, data = hc.ID, hc.Data

	data[document.FieldUpdated] = time.Now().UnixMilli()
	res := s.dispatch(hooks.OpPatch, logrus.Fields{"id": id}, func() (any, error) {
		if err := s.col.Update(ctx, id, data); err != nil {
			return nil, err
		}
		return s.col.FindByID(ctx, id)
	})
	s.purgeCaches()
	return s.after(hc, res)
}

// Remove deletes the document and returns it as the payload.
func (s *Service) Remove(ctx context.Context, id string, params *document.Params) Result {
	hc := &hooks.Context{Ctx: ctx, Service: s.cfg.Name, Op: hooks.OpRemove, ID: id, Params: params}
	if err := s.cfg.Hooks.Run(hooks.Before, hooks.OpRemove, hc); err != nil {
		return s.reject(hooks.OpRemove, err)
	}
	id = hc.ID

	res := s.dispatch(hooks.OpRemove, logrus.Fields{"id": id}, func() (any, error) {
		removed, err := s.col.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.col.Remove(ctx, id); err != nil {
			return nil, err
		}
		return removed, nil
	})
	s.purgeCaches()
	return s.after(hc, res)
}

// dispatch is the single chokepoint between the service and the store:
// every attempt is logged, and any store error is converted into an Error
// envelope instead of propagating.
func (s *Service) dispatch(op hooks.Op, args logrus.Fields, fn func() (any, error)) Result {
	s.log.WithFields(args).WithField("op", op).Debug("dispatch")
	payload, err := fn()
	if err != nil {
		s.log.WithError(err).WithField("op", op).Error("operation failed")
		s.cfg.Metrics.RecordOperation(s.cfg.Name, string(op), string(StatusError))
		return Failure(err.Error())
	}
	s.cfg.Metrics.RecordOperation(s.cfg.Name, string(op), string(StatusOK))
	return Success(payload)
}

// reject converts a hook or validation failure into an Error envelope
// without touching the store.
func (s *Service) reject(op hooks.Op, err error) Result {
	s.log.WithError(err).WithField("op", op).Warn("request rejected")
	s.cfg.Metrics.RecordOperation(s.cfg.Name, string(op), string(StatusError))
	return Failure(err.Error())
}

// after runs the after-hook pipeline. Hooks may replace the result through
// the context; a hook failure converts the result into an Error envelope.
func (s *Service) after(hc *hooks.Context, res Result) Result {
	hc.Result = res
	if err := s.cfg.Hooks.Run(hooks.After, hc.Op, hc); err != nil {
		return s.reject(hc.Op, err)
	}
	if replaced, ok := hc.Result.(Result); ok {
		return replaced
	}
	return res
}

func (s *Service) purgeCaches() {
	s.findCache.Purge()
	s.getCache.Purge()
}
