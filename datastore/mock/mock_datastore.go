/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides in-memory implementations of the datastore interfaces for testing
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/suparena/persistence/datastore"
	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

// DataStore is a mock implementation of datastore.DataStore for testing
type DataStore struct {
	mu          sync.RWMutex
	desc        storagemodels.StoreDescription
	data        map[storagemodels.ObjectID]storagemodels.Record
	order       []storagemodels.ObjectID
	commitError error
	commits     int
	closed      bool
}

// New creates a new mock DataStore
func New(desc storagemodels.StoreDescription) *DataStore {
	return &DataStore{
		desc: desc,
		data: make(map[storagemodels.ObjectID]storagemodels.Record),
	}
}

// WithCommitError makes every transaction Commit return err
func (m *DataStore) WithCommitError(err error) *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitError = err
	return m
}

// Description returns the description the store was created with
func (m *DataStore) Description() storagemodels.StoreDescription {
	return m.desc
}

// Get retrieves a committed record
func (m *DataStore) Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return storagemodels.Record{}, errors.ErrClosed
	}
	if rec, exists := m.data[id]; exists {
		return rec, nil
	}
	return storagemodels.Record{}, errors.NewNotFoundError(id.Entity, id.Key)
}

// Scan returns the committed records of entity in insertion order
func (m *DataStore) Scan(ctx context.Context, entity string) ([]storagemodels.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errors.ErrClosed
	}
	var records []storagemodels.Record
	for _, id := range m.order {
		if id.Entity == entity {
			records = append(records, m.data[id])
		}
	}
	return records, nil
}

// Begin starts a buffered transaction
func (m *DataStore) Begin(ctx context.Context) (datastore.Tx, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errors.ErrClosed
	}
	return &tx{store: m, puts: make(map[storagemodels.ObjectID]storagemodels.Record), deletes: make(map[storagemodels.ObjectID]bool)}, nil
}

// Close marks the store closed
func (m *DataStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Helper methods for testing

// Closed reports whether Close was called
func (m *DataStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Count returns the number of stored records
func (m *DataStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Commits returns the number of successful commits
func (m *DataStore) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

type tx struct {
	store   *DataStore
	puts    map[storagemodels.ObjectID]storagemodels.Record
	putSeq  []storagemodels.ObjectID
	deletes map[storagemodels.ObjectID]bool
	done    bool
}

func (t *tx) Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error) {
	if t.deletes[id] {
		return storagemodels.Record{}, errors.NewNotFoundError(id.Entity, id.Key)
	}
	if rec, ok := t.puts[id]; ok {
		return rec, nil
	}
	return t.store.Get(ctx, id)
}

func (t *tx) Put(ctx context.Context, record storagemodels.Record) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if _, seen := t.puts[record.ID]; !seen {
		t.putSeq = append(t.putSeq, record.ID)
	}
	delete(t.deletes, record.ID)
	t.puts[record.ID] = record
	return nil
}

func (t *tx) Delete(ctx context.Context, id storagemodels.ObjectID) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	delete(t.puts, id)
	t.deletes[id] = true
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true

	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.ErrClosed
	}
	if m.commitError != nil {
		return m.commitError
	}

	for id := range t.deletes {
		if _, exists := m.data[id]; !exists {
			continue
		}
		delete(m.data, id)
		for i, existing := range m.order {
			if existing == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	for _, id := range t.putSeq {
		rec, ok := t.puts[id]
		if !ok {
			continue
		}
		if _, exists := m.data[id]; !exists {
			m.order = append(m.order, id)
		}
		m.data[id] = rec
	}
	m.commits++
	return nil
}

func (t *tx) Rollback() error {
	t.done = true
	return nil
}

// Loader is a mock datastore.Loader that creates mock stores and can fail
// selected descriptions
type Loader struct {
	mu         sync.Mutex
	loadErrors map[string]error
	stores     []*DataStore
}

// NewLoader creates a new mock Loader
func NewLoader() *Loader {
	return &Loader{loadErrors: make(map[string]error)}
}

// WithLoadError makes loading the description at path fail with err
func (l *Loader) WithLoadError(path string, err error) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadErrors[path] = err
	return l
}

// Load implements datastore.Loader
func (l *Loader) Load(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription) (datastore.DataStore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadErrors[desc.Path]; err != nil {
		return nil, err
	}
	store := New(desc)
	l.stores = append(l.stores, store)
	return store, nil
}

// Stores returns every store created so far, in load order
func (l *Loader) Stores() []*DataStore {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*DataStore(nil), l.stores...)
}
