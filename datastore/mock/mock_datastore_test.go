/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/persistence/datastore/mock"
	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/storagemodels"
)

func record(entity, key, data string, version int64) storagemodels.Record {
	return storagemodels.Record{
		ID:      storagemodels.ObjectID{Entity: entity, Key: key},
		Data:    []byte(data),
		Version: version,
	}
}

func TestMockDataStore(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		store := mock.New(storagemodels.StoreDescription{InMemory: true})

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, record("Note", "1", `{"id":"1"}`, 1)))
		require.NoError(t, tx.Put(ctx, record("Tag", "t", `{"id":"t"}`, 1)))
		require.NoError(t, tx.Put(ctx, record("Note", "2", `{"id":"2"}`, 1)))

		// uncommitted writes are only visible inside the transaction
		_, err = store.Get(ctx, storagemodels.ObjectID{Entity: "Note", Key: "1"})
		assert.True(t, errors.IsNotFound(err))
		_, err = tx.Get(ctx, storagemodels.ObjectID{Entity: "Note", Key: "1"})
		require.NoError(t, err)

		require.NoError(t, tx.Commit())
		assert.Equal(t, 3, store.Count())
		assert.Equal(t, 1, store.Commits())

		notes, err := store.Scan(ctx, "Note")
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "1", notes[0].ID.Key)
		assert.Equal(t, "2", notes[1].ID.Key)
	})

	t.Run("UpdateKeepsStorageOrder", func(t *testing.T) {
		store := mock.New(storagemodels.StoreDescription{})

		tx, _ := store.Begin(ctx)
		_ = tx.Put(ctx, record("Note", "a", `{}`, 1))
		_ = tx.Put(ctx, record("Note", "b", `{}`, 1))
		require.NoError(t, tx.Commit())

		tx, _ = store.Begin(ctx)
		_ = tx.Put(ctx, record("Note", "a", `{"title":"x"}`, 2))
		require.NoError(t, tx.Commit())

		notes, err := store.Scan(ctx, "Note")
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "a", notes[0].ID.Key)
		assert.Equal(t, int64(2), notes[0].Version)
	})

	t.Run("Delete", func(t *testing.T) {
		store := mock.New(storagemodels.StoreDescription{})
		id := storagemodels.ObjectID{Entity: "Note", Key: "gone"}

		tx, _ := store.Begin(ctx)
		_ = tx.Put(ctx, record("Note", "gone", `{}`, 1))
		require.NoError(t, tx.Commit())

		tx, _ = store.Begin(ctx)
		require.NoError(t, tx.Delete(ctx, id))
		_, err := tx.Get(ctx, id)
		assert.True(t, errors.IsNotFound(err))
		require.NoError(t, tx.Commit())

		_, err = store.Get(ctx, id)
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, 0, store.Count())
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		boom := stderrors.New("disk full")
		store := mock.New(storagemodels.StoreDescription{}).WithCommitError(boom)

		tx, _ := store.Begin(ctx)
		_ = tx.Put(ctx, record("Note", "1", `{}`, 1))
		assert.ErrorIs(t, tx.Commit(), boom)
		assert.Equal(t, 0, store.Count())
	})

	t.Run("Closed", func(t *testing.T) {
		store := mock.New(storagemodels.StoreDescription{})
		require.NoError(t, store.Close())
		assert.True(t, store.Closed())

		_, err := store.Begin(ctx)
		assert.ErrorIs(t, err, errors.ErrClosed)
	})
}

func TestMockLoader(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("permission denied")

	loader := mock.NewLoader().WithLoadError("/data/bad.sqlite", boom)

	_, err := loader.Load(ctx, nil, storagemodels.StoreDescription{Path: "/data/bad.sqlite"})
	assert.ErrorIs(t, err, boom)

	store, err := loader.Load(ctx, nil, storagemodels.StoreDescription{Path: "/data/good.sqlite"})
	require.NoError(t, err)
	assert.Equal(t, "/data/good.sqlite", store.Description().Path)
	assert.Len(t, loader.Stores(), 1)
}
