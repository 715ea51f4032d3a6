/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package graph

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/storagemodels"
)

// Kind tells which execution context a Context is.
type Kind int

const (
	// Foreground is the single context bound to the primary activity.
	Foreground Kind = iota
	// Background is a short lived context for one unit of work.
	Background
)

func (k Kind) String() string {
	if k == Background {
		return "background"
	}
	return "foreground"
}

type objectState int

const (
	stateInserted objectState = iota
	stateUpdated
	stateDeleted
)

// managed is a pending change of one object
type managed struct {
	state   objectState
	store   int
	version int64
	// base is the committed snapshot the change applies to, nil for inserts
	base    properties
	current properties
	changed map[string]bool
	seq     int64
}

// Context is an isolated view of the object graph. Changes made through a
// context are invisible to other contexts until Save. Individual calls are
// safe for concurrent use; a unit of work should still use one context from
// one goroutine.
type Context struct {
	id    string
	kind  Kind
	coord *Coordinator

	mu        sync.Mutex
	policy    MergePolicy
	autoMerge bool
	objects   map[storagemodels.ObjectID]*managed
	seq       int64
	observers map[int]Observer
	nextObs   int
}

func newContext(coord *Coordinator, kind Kind, policy MergePolicy) *Context {
	return &Context{
		id:        uuid.NewString(),
		kind:      kind,
		coord:     coord,
		policy:    policy,
		objects:   make(map[storagemodels.ObjectID]*managed),
		observers: make(map[int]Observer),
	}
}

// ID returns the unique identifier of the context
func (c *Context) ID() string {
	return c.id
}

// Kind returns whether the context is the foreground or a background context
func (c *Context) Kind() Kind {
	return c.kind
}

// Coordinator returns the coordinator the context belongs to
func (c *Context) Coordinator() *Coordinator {
	return c.coord
}

// MergePolicy returns the policy used when saving
func (c *Context) MergePolicy() MergePolicy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SetMergePolicy changes the policy used when saving
func (c *Context) SetMergePolicy(policy MergePolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = policy
}

// AutomaticallyMergesChanges reports whether the context absorbs changes
// saved by other contexts
func (c *Context) AutomaticallyMergesChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoMerge
}

// SetAutomaticallyMergesChanges makes the context absorb every change saved
// by other contexts and post a DidMerge notification for it.
func (c *Context) SetAutomaticallyMergesChanges(enabled bool) {
	c.mu.Lock()
	c.autoMerge = enabled
	c.mu.Unlock()
	c.coord.setMerging(c, enabled)
}

// Observe registers fn for the DidSave and DidMerge notifications of the
// context. fn must not block. The returned function removes the observer.
func (c *Context) Observe(fn Observer) func() {
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

func (c *Context) post(n storagemodels.ChangeNotification) {
	c.mu.Lock()
	observers := make([]func(storagemodels.ChangeNotification), 0, len(c.observers))
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		observers = append(observers, c.observers[id])
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(n)
	}
}

// ObjectType resolves the runtime type of the object behind id
func (c *Context) ObjectType(id storagemodels.ObjectID) (reflect.Type, bool) {
	return c.coord.model.ObjectType(id)
}

// HasChanges reports whether the context holds unsaved changes
func (c *Context) HasChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.objects {
		if m.state != stateUpdated || len(m.changed) > 0 {
			return true
		}
	}
	return false
}

// Rollback discards every unsaved change
func (c *Context) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = make(map[storagemodels.ObjectID]*managed)
}

// Save commits the unsaved changes of the context. Saving a context without
// changes does nothing.
func (c *Context) Save(ctx context.Context) error {
	return c.coord.save(ctx, c)
}

// Objects returns the context's view of every object of entity: committed
// records in storage order with pending updates applied and pending deletes
// removed, followed by pending inserts in insertion order.
func (c *Context) Objects(ctx context.Context, entity string) ([]storagemodels.Record, error) {
	records, err := c.coord.scan(ctx, entity)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]storagemodels.Record, 0, len(records))
	for _, rec := range records {
		if m, ok := c.objects[rec.ID]; ok {
			switch m.state {
			case stateDeleted, stateInserted:
				continue
			case stateUpdated:
				data, err := m.current.marshal()
				if err != nil {
					return nil, err
				}
				rec.Data = data
			}
		}
		out = append(out, rec)
	}

	var inserts []storagemodels.ObjectID
	for id, m := range c.objects {
		if id.Entity == entity && m.state == stateInserted {
			inserts = append(inserts, id)
		}
	}
	sort.Slice(inserts, func(i, j int) bool {
		return c.objects[inserts[i]].seq < c.objects[inserts[j]].seq
	})
	for _, id := range inserts {
		data, err := c.objects[id].current.marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, storagemodels.Record{ID: id, Data: data})
	}
	return out, nil
}

func (c *Context) insert(ctx context.Context, id storagemodels.ObjectID, props properties) error {
	c.mu.Lock()
	if m, ok := c.objects[id]; ok {
		defer c.mu.Unlock()
		if m.state != stateDeleted {
			return errors.NewAlreadyExistsError(id.Entity, id.Key)
		}
		// inserting over a pending delete replaces the stored object
		m.state = stateUpdated
		m.current = props
		m.changed = m.base.diff(props)
		return nil
	}
	c.mu.Unlock()

	indices, err := c.coord.routesFor(id.Entity)
	if err != nil {
		return err
	}
	_, _, err = c.coord.load(ctx, id)
	if err == nil {
		return errors.NewAlreadyExistsError(id.Entity, id.Key)
	}
	if !errors.IsNotFound(err) {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[id]; ok {
		return errors.NewAlreadyExistsError(id.Entity, id.Key)
	}
	c.seq++
	c.objects[id] = &managed{
		state:   stateInserted,
		store:   indices[0],
		current: props,
		seq:     c.seq,
	}
	return nil
}

func (c *Context) get(ctx context.Context, id storagemodels.ObjectID) (json.RawMessage, error) {
	c.mu.Lock()
	if m, ok := c.objects[id]; ok {
		defer c.mu.Unlock()
		if m.state == stateDeleted {
			return nil, errors.NewNotFoundError(id.Entity, id.Key)
		}
		return m.current.marshal()
	}
	c.mu.Unlock()

	rec, _, err := c.coord.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (c *Context) update(ctx context.Context, id storagemodels.ObjectID, props properties) error {
	c.mu.Lock()
	if m, ok := c.objects[id]; ok {
		defer c.mu.Unlock()
		return updateManaged(id, m, props)
	}
	c.mu.Unlock()

	rec, store, err := c.coord.load(ctx, id)
	if err != nil {
		return err
	}
	base, err := decodeProperties(rec.Data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.objects[id]; ok {
		return updateManaged(id, m, props)
	}
	changed := base.diff(props)
	if len(changed) == 0 {
		return nil
	}
	c.seq++
	c.objects[id] = &managed{
		state:   stateUpdated,
		store:   store,
		version: rec.Version,
		base:    base,
		current: props,
		changed: changed,
		seq:     c.seq,
	}
	return nil
}

func updateManaged(id storagemodels.ObjectID, m *managed, props properties) error {
	switch m.state {
	case stateDeleted:
		return errors.NewNotFoundError(id.Entity, id.Key)
	case stateUpdated:
		m.changed = m.base.diff(props)
	}
	m.current = props
	return nil
}

func (c *Context) delete(ctx context.Context, id storagemodels.ObjectID) error {
	c.mu.Lock()
	if m, ok := c.objects[id]; ok {
		defer c.mu.Unlock()
		switch m.state {
		case stateInserted:
			delete(c.objects, id)
		case stateUpdated:
			m.state = stateDeleted
		case stateDeleted:
			return errors.NewNotFoundError(id.Entity, id.Key)
		}
		return nil
	}
	c.mu.Unlock()

	rec, store, err := c.coord.load(ctx, id)
	if err != nil {
		return err
	}
	base, err := decodeProperties(rec.Data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.objects[id] = &managed{
		state:   stateDeleted,
		store:   store,
		version: rec.Version,
		base:    base,
		current: base,
		seq:     c.seq,
	}
	return nil
}

// pendingLocked returns the pending changes in the order they were made
func (c *Context) pendingLocked() []change {
	ids := make([]storagemodels.ObjectID, 0, len(c.objects))
	for id, m := range c.objects {
		if m.state == stateUpdated && len(m.changed) == 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.objects[ids[i]].seq < c.objects[ids[j]].seq
	})

	changes := make([]change, 0, len(ids))
	for _, id := range ids {
		m := c.objects[id]
		ch := change{
			id:      id,
			store:   m.store,
			version: m.version,
			props:   m.current,
			changed: m.changed,
		}
		switch m.state {
		case stateInserted:
			ch.op = opInsert
		case stateUpdated:
			ch.op = opUpdate
		case stateDeleted:
			ch.op = opDelete
		}
		changes = append(changes, ch)
	}
	return changes
}

func (c *Context) didSaveLocked() {
	c.objects = make(map[storagemodels.ObjectID]*managed)
}

// didPartiallySaveLocked drops the pending changes that reached a store
// before a later store failed to commit
func (c *Context) didPartiallySaveLocked(done []committed) {
	for _, d := range done {
		delete(c.objects, d.id)
	}
}

// merge absorbs changes committed by another context. Remote values win over
// pending values of the same property; other pending properties survive.
func (c *Context) merge(done []committed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range done {
		m, ok := c.objects[d.id]
		if !ok {
			continue
		}

		switch d.op {
		case opDelete:
			delete(c.objects, d.id)

		case opInsert:
			if m.state == stateInserted {
				delete(c.objects, d.id)
			}

		case opUpdate:
			switch m.state {
			case stateDeleted:
				m.base = d.props
				m.version = d.version
			case stateUpdated:
				remote := d.changed
				if remote == nil {
					remote = d.props.diff(m.base)
				}
				for name := range remote {
					delete(m.changed, name)
				}
				m.base = d.props
				m.version = d.version
				m.current = m.base.overlay(m.current, m.changed)
				if len(m.changed) == 0 {
					delete(c.objects, d.id)
				}
			}
		}
	}
}
