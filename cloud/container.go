/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/suparena/persistence/datastore"
	"github.com/suparena/persistence/storagemodels"
)

// ErrContainerNotFound is returned by Verify for unknown containers
var ErrContainerNotFound = errors.New("cloud container not found")

// DefaultBatchSize is the number of outbox rows pushed per round trip
const DefaultBatchSize = 25

// Container is a remote destination for cloud store changes.
type Container interface {
	// Verify checks that containerID exists and is usable.
	Verify(ctx context.Context, containerID string, scope storagemodels.CloudScope) error

	// Push applies changes, in order, to the container.
	Push(ctx context.Context, containerID string, scope storagemodels.CloudScope, changes []storagemodels.CloudChange) error
}

// Sync pushes the pending outbox of store to container and returns the number
// of changes pushed. Stores without a cloud binding or an outbox are skipped.
func Sync(ctx context.Context, container Container, store datastore.DataStore, batchSize int) (int, error) {
	desc := store.Description()
	if desc.Cloud == nil {
		return 0, nil
	}
	outbox, ok := store.(datastore.Outbox)
	if !ok {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pushed := 0
	for {
		changes, err := outbox.PendingChanges(ctx, batchSize)
		if err != nil {
			return pushed, err
		}
		if len(changes) == 0 {
			return pushed, nil
		}

		if err := container.Push(ctx, desc.Cloud.ContainerID, desc.Cloud.Scope, changes); err != nil {
			return pushed, fmt.Errorf("push to %s: %w", desc.Cloud.ContainerID, err)
		}

		seqs := make([]int64, len(changes))
		for i, change := range changes {
			seqs[i] = change.Seq
		}
		if err := outbox.Acknowledge(ctx, seqs); err != nil {
			return pushed, err
		}
		pushed += len(changes)
	}
}
