//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persistence_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/persistence"
	"github.com/suparena/persistence/cloud/ddb"
	"github.com/suparena/persistence/datastore/testmodels"
	"github.com/suparena/persistence/graph"
	"github.com/suparena/persistence/storagemodels"
)

func setupDynamoController(t *testing.T) *persistence.Controller {
	t.Helper()
	_ = godotenv.Load()

	table := os.Getenv("DDB_TEST_TABLE_NAME")
	if table == "" {
		t.Skip("DDB_TEST_TABLE_NAME not set, skipping integration test")
	}

	client, err := ddb.NewClient(context.Background(), ddb.ClientConfig{
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:  os.Getenv("AWS_DDB_ENDPOINT"),
	})
	require.NoError(t, err)

	c, err := persistence.New(context.Background(), testmodels.NewModel(), []storagemodels.StoreSpec{
		storagemodels.CloudPrivate(testmodels.ConfigurationCloud, table, ""),
		storagemodels.CloudShared(testmodels.ConfigurationCloud, table, ""),
	}, persistence.WithDirectory(t.TempDir()), persistence.WithCloud(ddb.New(client)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIntegrationSyncCloud(t *testing.T) {
	ctx := context.Background()
	c := setupDynamoController(t)

	key := fmt.Sprintf("integration-%d", time.Now().UnixNano())
	require.NoError(t, insertNotes(ctx, c, testmodels.Note{ID: key, Title: "integration", CreatedAt: time.Now()}))

	require.NoError(t, c.PerformInBackground(ctx, func(ctx context.Context, gc *graph.Context) error {
		note, err := graph.Get[testmodels.Note](ctx, gc, key)
		if err != nil {
			return err
		}
		note.Rank = 3
		if err := graph.Update(ctx, gc, note); err != nil {
			return err
		}
		return c.Save(ctx, gc)
	}))

	pushed, err := c.SyncCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pushed)

	require.NoError(t, c.PerformInBackground(ctx, func(ctx context.Context, gc *graph.Context) error {
		if err := graph.Delete[testmodels.Note](ctx, gc, key); err != nil {
			return err
		}
		return c.Save(ctx, gc)
	}))

	pushed, err = c.SyncCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pushed)
}
