/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persistence

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/suparena/persistence/datastore"
	"github.com/suparena/persistence/storagemodels"
)

// storeSet holds the descriptions and loaded stores of one controller in
// spec order. It is safe for concurrent use by the loading goroutines.
type storeSet struct {
	mu     sync.RWMutex
	paths  map[string]int
	descs  []storagemodels.StoreDescription
	stores []datastore.DataStore
}

func newStoreSet(n int) *storeSet {
	return &storeSet{
		paths:  make(map[string]int),
		descs:  make([]storagemodels.StoreDescription, n),
		stores: make([]datastore.DataStore, n),
	}
}

// describe records the description of spec index. Two on-disk stores may
// not share a file.
func (s *storeSet) describe(index int, desc storagemodels.StoreDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !desc.InMemory {
		if other, exists := s.paths[desc.Path]; exists {
			return fmt.Errorf("file %q already used by store #%d", desc.Path, other)
		}
		s.paths[desc.Path] = index
	}
	s.descs[index] = desc
	return nil
}

// set records the loaded store of spec index
func (s *storeSet) set(index int, store datastore.DataStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[index] = store
}

// descriptions returns a copy of every description in spec order
func (s *storeSet) descriptions() []storagemodels.StoreDescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]storagemodels.StoreDescription(nil), s.descs...)
}

// loaded returns the stores loaded so far in spec order
func (s *storeSet) loaded() []datastore.DataStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]datastore.DataStore, 0, len(s.stores))
	for _, store := range s.stores {
		if store != nil {
			out = append(out, store)
		}
	}
	return out
}

// closeAll closes every loaded store and forgets it
func (s *storeSet) closeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i, store := range s.stores {
		if store == nil {
			continue
		}
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store #%d: %w", i, err))
		}
		s.stores[i] = nil
	}
	return stderrors.Join(errs...)
}
