/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/persistence/cloud"
	perrors "github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/storagemodels"
)

type fakeClient struct {
	mu       sync.Mutex
	tables   map[string]bool
	puts     []*sdk.PutItemInput
	deletes  []*sdk.DeleteItemInput
	putErrs  []error
	describe int
}

func (f *fakeClient) DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describe++
	if !f.tables[aws.ToString(in.TableName)] {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, in)
	return &sdk.DeleteItemOutput{}, nil
}

func stringAttr(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok, "expected string attribute, got %T", av)
	return s.Value
}

func TestExpandMacros(t *testing.T) {
	changedAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	it := newItem(storagemodels.ScopeShared, storagemodels.CloudChange{
		ID:        storagemodels.ObjectID{Entity: "Note", Key: "n-1"},
		Version:   7,
		ChangedAt: changedAt,
	})

	expanded, err := expandMacros(map[string]string{
		"PK":     "{Scope}#{Entity}",
		"SK":     "{Key}",
		"GSI1SK": "v{Version}",
		"Other":  "{Missing}x",
	}, it)
	require.NoError(t, err)
	assert.Equal(t, "shared#Note", expanded["PK"])
	assert.Equal(t, "n-1", expanded["SK"])
	assert.Equal(t, "v7", expanded["GSI1SK"])
	assert.Equal(t, "x", expanded["Other"])
	assert.Equal(t, "2025-04-01T12:00:00.000Z", it.ChangedAt)

	_, err = buildKeyFromExpanded(map[string]string{"PK": "a"})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	client := &fakeClient{tables: map[string]bool{"notes": true}}
	c := New(client)

	require.NoError(t, c.Verify(context.Background(), "notes", storagemodels.ScopePrivate))

	err := c.Verify(context.Background(), "missing", storagemodels.ScopePrivate)
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrContainerNotFound)
}

func TestPush(t *testing.T) {
	client := &fakeClient{}
	c := New(client)

	changes := []storagemodels.CloudChange{
		{Seq: 1, ID: storagemodels.ObjectID{Entity: "Note", Key: "a"}, Op: storagemodels.OpPut, Data: json.RawMessage(`{"id":"a"}`), Version: 1, ChangedAt: time.Now()},
		{Seq: 2, ID: storagemodels.ObjectID{Entity: "Note", Key: "b"}, Op: storagemodels.OpDelete, Version: 3, ChangedAt: time.Now()},
	}
	require.NoError(t, c.Push(context.Background(), "notes", storagemodels.ScopePrivate, changes))

	require.Len(t, client.puts, 1)
	put := client.puts[0]
	assert.Equal(t, "notes", aws.ToString(put.TableName))
	assert.Equal(t, "private#Note", stringAttr(t, put.Item["PK"]))
	assert.Equal(t, "a", stringAttr(t, put.Item["SK"]))
	assert.Equal(t, `{"id":"a"}`, stringAttr(t, put.Item["Data"]))
	assert.NotNil(t, put.ConditionExpression)

	require.Len(t, client.deletes, 1)
	del := client.deletes[0]
	assert.Equal(t, "private#Note", stringAttr(t, del.Key["PK"]))
	assert.Equal(t, "b", stringAttr(t, del.Key["SK"]))
}

func TestPushSkipsStaleVersions(t *testing.T) {
	client := &fakeClient{putErrs: []error{&types.ConditionalCheckFailedException{Message: aws.String("stale")}}}
	c := New(client)

	err := c.Push(context.Background(), "notes", storagemodels.ScopePrivate, []storagemodels.CloudChange{
		{ID: storagemodels.ObjectID{Entity: "Note", Key: "a"}, Op: storagemodels.OpPut, Data: json.RawMessage(`{}`), Version: 1},
	})
	assert.NoError(t, err)
	assert.Len(t, client.puts, 1, "a failed condition is not retried")

	err = c.put(context.Background(), "notes", storagemodels.ScopePrivate, storagemodels.CloudChange{
		ID: storagemodels.ObjectID{Entity: "Note", Key: "a"}, Op: storagemodels.OpPut, Data: json.RawMessage(`{}`), Version: 1,
	})
	assert.NoError(t, err)

	client.putErrs = []error{&types.ConditionalCheckFailedException{Message: aws.String("stale")}}
	err = c.put(context.Background(), "notes", storagemodels.ScopePrivate, storagemodels.CloudChange{
		ID: storagemodels.ObjectID{Entity: "Note", Key: "a"}, Op: storagemodels.OpPut, Data: json.RawMessage(`{}`), Version: 1,
	})
	assert.True(t, perrors.IsConditionFailed(err))
}

func TestPushRetriesThrottling(t *testing.T) {
	client := &fakeClient{putErrs: []error{
		&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")},
		&types.RequestLimitExceeded{Message: aws.String("slow down")},
	}}
	c := New(client, WithRetry(3, time.Millisecond))

	err := c.Push(context.Background(), "notes", storagemodels.ScopePrivate, []storagemodels.CloudChange{
		{ID: storagemodels.ObjectID{Entity: "Note", Key: "a"}, Op: storagemodels.OpPut, Data: json.RawMessage(`{}`), Version: 1},
	})
	require.NoError(t, err)
	assert.Len(t, client.puts, 3)

	client = &fakeClient{putErrs: []error{
		&types.InternalServerError{Message: aws.String("boom")},
		&types.InternalServerError{Message: aws.String("boom")},
	}}
	c = New(client, WithRetry(1, time.Millisecond))
	err = c.Push(context.Background(), "notes", storagemodels.ScopePrivate, []storagemodels.CloudChange{
		{ID: storagemodels.ObjectID{Entity: "Note", Key: "a"}, Op: storagemodels.OpPut, Data: json.RawMessage(`{}`), Version: 1},
	})
	require.Error(t, err)
	assert.Len(t, client.puts, 2)
}
