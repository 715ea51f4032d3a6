//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/suparena/persistence/storagemodels"
)

func integrationContainer(t *testing.T) (*Container, string) {
	t.Helper()
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, proceeding with environment variables")
	}

	table := os.Getenv("AWS_DDB_TABLE")
	if table == "" {
		t.Skip("AWS_DDB_TABLE not set")
	}

	client, err := NewClient(context.Background(), ClientConfig{
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
		SecretKey: os.Getenv("AWS_SECRET_KEY"),
		Endpoint:  os.Getenv("AWS_DDB_ENDPOINT"),
	})
	require.NoError(t, err)
	return New(client), table
}

func TestIntegrationPushAndDelete(t *testing.T) {
	c, table := integrationContainer(t)
	ctx := context.Background()

	require.NoError(t, c.Verify(ctx, table, storagemodels.ScopePrivate))

	id := storagemodels.ObjectID{Entity: "Note", Key: "integration-" + time.Now().Format("20060102150405")}
	require.NoError(t, c.Push(ctx, table, storagemodels.ScopePrivate, []storagemodels.CloudChange{
		{ID: id, Op: storagemodels.OpPut, Data: json.RawMessage(`{"id":"x","title":"integration"}`), Version: 1, ChangedAt: time.Now()},
		{ID: id, Op: storagemodels.OpPut, Data: json.RawMessage(`{"id":"x","title":"integration 2"}`), Version: 2, ChangedAt: time.Now()},
		{ID: id, Op: storagemodels.OpDelete, Version: 2, ChangedAt: time.Now()},
	}))
}
