/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package graph

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/suparena/persistence/datastore"
	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

// MergePolicy decides how a save reconciles with changes committed since the
// saving context read an object.
type MergePolicy int

const (
	// MergeByProperty lets the saving context's changed properties overwrite
	// the stored ones and keeps the stored values of untouched properties.
	MergeByProperty MergePolicy = iota
	// MergeError fails the save with an errors.ConflictError.
	MergeError
)

func (p MergePolicy) String() string {
	if p == MergeError {
		return "error"
	}
	return "merge-by-property"
}

// ParseMergePolicy is the inverse of MergePolicy.String.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "", "merge-by-property", "property":
		return MergeByProperty, nil
	case "error":
		return MergeError, nil
	default:
		return 0, errors.NewValidationError("mergePolicy", fmt.Sprintf("unknown merge policy %q", s))
	}
}

// Observer receives change notifications. Observers are called while the
// coordinator holds its commit lock and must not block or save.
type Observer func(storagemodels.ChangeNotification)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = logger
	}
}

// WithMergePolicy sets the merge policy of new contexts
func WithMergePolicy(policy MergePolicy) Option {
	return func(c *Coordinator) {
		c.policy = policy
	}
}

// Coordinator owns the stores of an object graph and serializes commits.
type Coordinator struct {
	model  *registry.Model
	stores []datastore.DataStore
	routes map[string][]int
	policy MergePolicy
	log    zerolog.Logger

	commitMu sync.Mutex

	mu        sync.Mutex
	mergers   []*Context
	observers map[int]Observer
	nextObs   int
	closed    bool
}

// NewCoordinator creates a coordinator over stores. Store order matters:
// inserts go to the first store whose configuration includes the entity.
func NewCoordinator(model *registry.Model, stores []datastore.DataStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		model:     model,
		stores:    stores,
		routes:    make(map[string][]int),
		log:       zerolog.Nop(),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(c)
	}

	for i, store := range stores {
		configuration := store.Description().Configuration
		for _, entity := range model.EntitiesIn(configuration) {
			c.routes[entity] = append(c.routes[entity], i)
		}
	}
	return c
}

// Model returns the object model
func (c *Coordinator) Model() *registry.Model {
	return c.model
}

// Stores returns the stores in load order
func (c *Coordinator) Stores() []datastore.DataStore {
	return append([]datastore.DataStore(nil), c.stores...)
}

// MergePolicy returns the policy applied to new contexts
func (c *Coordinator) MergePolicy() MergePolicy {
	return c.policy
}

// NewContext creates an execution context of the given kind
func (c *Coordinator) NewContext(kind Kind) *Context {
	return newContext(c, kind, c.policy)
}

// Observe registers fn for the DidSave notification of every context.
// The returned function removes the observer.
func (c *Coordinator) Observe(fn Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Close closes every store. Closing twice is a no-op.
func (c *Coordinator) Close() error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mergers = nil
	c.mu.Unlock()

	var errs []error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", store.Description().Path, err))
		}
	}
	return stderrors.Join(errs...)
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) setMerging(ctx *Context, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.mergers {
		if existing == ctx {
			if !enabled {
				c.mergers = append(c.mergers[:i], c.mergers[i+1:]...)
			}
			return
		}
	}
	if enabled {
		c.mergers = append(c.mergers, ctx)
	}
}

func (c *Coordinator) routesFor(entity string) ([]int, error) {
	indices := c.routes[entity]
	if len(indices) == 0 {
		if _, ok := c.model.Entity(entity); !ok {
			return nil, fmt.Errorf("graph: entity %q is not part of model %q", entity, c.model.Name())
		}
		return nil, fmt.Errorf("graph: no store holds entity %q", entity)
	}
	return indices, nil
}

// readRoutes is routesFor for reads: an entity of the model that no loaded
// store holds has no objects.
func (c *Coordinator) readRoutes(entity string) ([]int, error) {
	if _, ok := c.model.Entity(entity); !ok {
		return nil, fmt.Errorf("graph: entity %q is not part of model %q", entity, c.model.Name())
	}
	return c.routes[entity], nil
}

// load returns the committed record for id and the index of its store
func (c *Coordinator) load(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, int, error) {
	if c.isClosed() {
		return storagemodels.Record{}, -1, errors.ErrClosed
	}
	indices, err := c.readRoutes(id.Entity)
	if err != nil {
		return storagemodels.Record{}, -1, err
	}
	for _, i := range indices {
		rec, err := c.stores[i].Get(ctx, id)
		if err == nil {
			return rec, i, nil
		}
		if !errors.IsNotFound(err) {
			return storagemodels.Record{}, -1, err
		}
	}
	return storagemodels.Record{}, -1, errors.NewNotFoundError(id.Entity, id.Key)
}

// scan returns the committed records of entity across its stores, in store
// order then storage order
func (c *Coordinator) scan(ctx context.Context, entity string) ([]storagemodels.Record, error) {
	if c.isClosed() {
		return nil, errors.ErrClosed
	}
	indices, err := c.readRoutes(entity)
	if err != nil {
		return nil, err
	}
	var records []storagemodels.Record
	for _, i := range indices {
		recs, err := c.stores[i].Scan(ctx, entity)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

type changeOp int

const (
	opInsert changeOp = iota
	opUpdate
	opDelete
)

// change is one pending object change handed to the coordinator
type change struct {
	id      storagemodels.ObjectID
	op      changeOp
	store   int
	version int64
	props   properties
	changed map[string]bool
}

// committed is one change as written to its store
type committed struct {
	id      storagemodels.ObjectID
	op      changeOp
	props   properties
	version int64
	changed map[string]bool
}

// commit writes changes in one transaction per store. When a store fails to
// commit after earlier stores committed, the changes written to the earlier
// stores are returned with the error. The caller holds commitMu.
func (c *Coordinator) commit(ctx context.Context, policy MergePolicy, changes []change) ([]committed, error) {
	if c.isClosed() {
		return nil, errors.ErrClosed
	}

	byStore := make(map[int][]change)
	var order []int
	for _, ch := range changes {
		if _, seen := byStore[ch.store]; !seen {
			order = append(order, ch.store)
		}
		byStore[ch.store] = append(byStore[ch.store], ch)
	}
	sort.Ints(order)

	txs := make([]datastore.Tx, 0, len(order))
	rollback := func() {
		for _, tx := range txs {
			_ = tx.Rollback()
		}
	}

	result := make([]committed, 0, len(changes))
	// ends[n] is the length of result once the nth store is applied
	ends := make([]int, 0, len(order))
	for _, i := range order {
		tx, err := c.stores[i].Begin(ctx)
		if err != nil {
			rollback()
			return nil, err
		}
		txs = append(txs, tx)

		for _, ch := range byStore[i] {
			done, err := apply(ctx, tx, policy, ch)
			if err != nil {
				rollback()
				return nil, err
			}
			result = append(result, done)
		}
		ends = append(ends, len(result))
	}

	for n, tx := range txs {
		if err := tx.Commit(); err != nil {
			for _, rest := range txs[n+1:] {
				_ = rest.Rollback()
			}
			var written []committed
			if n > 0 {
				written = result[:ends[n-1]]
			}
			return written, fmt.Errorf("commit %s: %w", c.stores[order[n]].Description().Path, err)
		}
	}

	c.log.Debug().
		Int("changes", len(result)).
		Int("stores", len(order)).
		Msg("changes committed")
	return result, nil
}

func apply(ctx context.Context, tx datastore.Tx, policy MergePolicy, ch change) (committed, error) {
	done := committed{id: ch.id, op: ch.op, changed: ch.changed}

	switch ch.op {
	case opInsert:
		_, err := tx.Get(ctx, ch.id)
		if err == nil {
			return committed{}, errors.NewAlreadyExistsError(ch.id.Entity, ch.id.Key)
		}
		if !errors.IsNotFound(err) {
			return committed{}, err
		}
		done.props = ch.props
		done.version = 1

	case opUpdate:
		stored, err := tx.Get(ctx, ch.id)
		if errors.IsNotFound(err) {
			return committed{}, errors.NewConflictError(ch.id.Entity, ch.id.Key, "object was deleted by another context")
		}
		if err != nil {
			return committed{}, err
		}

		done.props = ch.props
		if stored.Version != ch.version {
			if policy == MergeError {
				return committed{}, errors.NewConflictError(ch.id.Entity, ch.id.Key,
					fmt.Sprintf("stored version %d differs from version %d read by the context", stored.Version, ch.version))
			}
			base, err := decodeProperties(stored.Data)
			if err != nil {
				return committed{}, err
			}
			done.props = base.overlay(ch.props, ch.changed)
		}
		done.version = stored.Version + 1

	case opDelete:
		if err := tx.Delete(ctx, ch.id); err != nil {
			return committed{}, err
		}
		return done, nil
	}

	data, err := json.Marshal(done.props)
	if err != nil {
		return committed{}, fmt.Errorf("encode %s: %w", ch.id, err)
	}
	if err := tx.Put(ctx, storagemodels.Record{ID: ch.id, Data: data, Version: done.version}); err != nil {
		return committed{}, err
	}
	return done, nil
}

// save commits the pending changes of origin and distributes the result.
func (c *Coordinator) save(ctx context.Context, origin *Context) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	origin.mu.Lock()
	changes := origin.pendingLocked()
	if len(changes) == 0 {
		origin.mu.Unlock()
		return nil
	}

	done, err := c.commit(ctx, origin.policy, changes)
	if err != nil {
		origin.didPartiallySaveLocked(done)
		origin.mu.Unlock()
		c.log.Warn().Err(err).Str("context", origin.id).Int("committed", len(done)).Msg("save failed")
		if len(done) > 0 {
			c.distribute(origin, done)
		}
		return err
	}
	origin.didSaveLocked()
	origin.mu.Unlock()

	c.distribute(origin, done)
	return nil
}

// distribute posts DidSave on origin, calls the coordinator observers and
// merges done into every auto-merging context.
func (c *Coordinator) distribute(origin *Context, done []committed) {
	n := notification(done)
	n.Kind = storagemodels.DidSave
	n.Context = origin.id
	origin.post(n)

	c.mu.Lock()
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	mergers := append([]*Context(nil), c.mergers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(n)
	}

	for _, target := range mergers {
		if target == origin {
			continue
		}
		target.merge(done)

		merged := notification(done)
		merged.Kind = storagemodels.DidMerge
		merged.Context = target.id
		target.post(merged)
	}
}

func notification(done []committed) storagemodels.ChangeNotification {
	var n storagemodels.ChangeNotification
	for _, d := range done {
		switch d.op {
		case opInsert:
			n.Inserted = append(n.Inserted, d.id)
		case opUpdate:
			n.Updated = append(n.Updated, d.id)
		case opDelete:
			n.Deleted = append(n.Deleted, d.id)
		}
	}
	return n
}
