/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"
)

// DataStore is one loaded physical store.
type DataStore interface {
	Description() storagemodels.StoreDescription

	// Get returns the committed record for id, or an errors.NotFoundError.
	Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error)

	// Scan returns every committed record of entity in storage order.
	Scan(ctx context.Context, entity string) ([]storagemodels.Record, error)

	// Begin starts a write transaction.
	Begin(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is a write transaction on a single store. Writes become visible to
// readers of the store on Commit.
type Tx interface {
	Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error)
	Put(ctx context.Context, record storagemodels.Record) error
	Delete(ctx context.Context, id storagemodels.ObjectID) error
	Commit() error
	Rollback() error
}

// Outbox is implemented by stores that record committed changes for the
// cloud mirror.
type Outbox interface {
	PendingChanges(ctx context.Context, limit int) ([]storagemodels.CloudChange, error)
	Acknowledge(ctx context.Context, seqs []int64) error
}

// Loader opens the store behind a description.
type Loader interface {
	Load(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription) (DataStore, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription) (DataStore, error)

func (f LoaderFunc) Load(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription) (DataStore, error) {
	return f(ctx, model, desc)
}
