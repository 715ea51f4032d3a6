/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/suparena/persistence/storagemodels"
)

// Memory is an in-process Container. Items are keyed by scope and object ID.
type Memory struct {
	mu         sync.Mutex
	containers map[string]map[memoryKey]storagemodels.CloudChange
	pushes     int
}

type memoryKey struct {
	scope storagemodels.CloudScope
	id    storagemodels.ObjectID
}

// NewMemory creates a Memory container holding the given container IDs
func NewMemory(containerIDs ...string) *Memory {
	m := &Memory{containers: make(map[string]map[memoryKey]storagemodels.CloudChange)}
	for _, id := range containerIDs {
		m.containers[id] = make(map[memoryKey]storagemodels.CloudChange)
	}
	return m
}

// Verify implements Container
func (m *Memory) Verify(ctx context.Context, containerID string, scope storagemodels.CloudScope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.containers[containerID]; !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	return nil
}

// Push implements Container. Changes older than the held version are ignored.
func (m *Memory) Push(ctx context.Context, containerID string, scope storagemodels.CloudScope, changes []storagemodels.CloudChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, ok := m.containers[containerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	for _, change := range changes {
		key := memoryKey{scope: scope, id: change.ID}
		switch change.Op {
		case storagemodels.OpDelete:
			delete(items, key)
		default:
			if held, ok := items[key]; ok && held.Version > change.Version {
				continue
			}
			items[key] = change
		}
	}
	m.pushes++
	return nil
}

// Get returns the data held for id in scope
func (m *Memory) Get(containerID string, scope storagemodels.CloudScope, id storagemodels.ObjectID) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	change, ok := m.containers[containerID][memoryKey{scope: scope, id: id}]
	return change.Data, ok
}

// Len returns the number of items held by containerID
func (m *Memory) Len(containerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.containers[containerID])
}

// Pushes returns the number of Push calls accepted
func (m *Memory) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}
