/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/persistence/errors"
)

func TestDefaultFileNames(t *testing.T) {
	assert.Equal(t, "local", Local("", "").FileName)
	assert.Equal(t, "private", CloudPrivate("", "notes", "").FileName)
	assert.Equal(t, "shared", CloudShared("", "notes", "").FileName)
	assert.Equal(t, "", InMemory("").FileName)

	assert.Equal(t, "custom", Local("", "custom").FileName)
	assert.Equal(t, "local", StoreSpec{Kind: KindLocal}.ResolvedFileName())
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		spec  StoreSpec
		path  string
		cloud *CloudOptions
	}{
		{
			name: "local default",
			spec: Local("Local", ""),
			path: filepath.Join(dir, "local.sqlite"),
		},
		{
			name: "local custom",
			spec: Local("", "cache"),
			path: filepath.Join(dir, "cache.sqlite"),
		},
		{
			name:  "cloud private",
			spec:  CloudPrivate("Cloud", "notes-table", ""),
			path:  filepath.Join(dir, "private.sqlite"),
			cloud: &CloudOptions{ContainerID: "notes-table", Scope: ScopePrivate},
		},
		{
			name:  "cloud shared inherits container",
			spec:  CloudShared("Cloud", "", ""),
			path:  filepath.Join(dir, "shared.sqlite"),
			cloud: &CloudOptions{ContainerID: "default-table", Scope: ScopeShared},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := tt.spec.Describe(dir, "default-table")
			require.NoError(t, err)
			assert.Equal(t, tt.path, desc.Path)
			assert.False(t, desc.InMemory)
			assert.Equal(t, tt.spec.Configuration, desc.Configuration)
			assert.Equal(t, tt.cloud, desc.Cloud)
		})
	}

	t.Run("in-memory binds the null device", func(t *testing.T) {
		desc, err := InMemory("Cache").Describe(dir, "")
		require.NoError(t, err)
		assert.Equal(t, os.DevNull, desc.Path)
		assert.True(t, desc.InMemory)
		assert.Nil(t, desc.Cloud)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		spec  StoreSpec
		field string
	}{
		{"cloud without container", CloudPrivate("", "", ""), "cloudContainerID"},
		{"malformed container", CloudShared("", "bad container!", ""), "cloudContainerID"},
		{"container on local", StoreSpec{Kind: KindLocal, CloudContainerID: "notes"}, "cloudContainerID"},
		{"path in file name", Local("", "../escape"), "fileName"},
		{"unknown kind", StoreSpec{Kind: StoreKind(42)}, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate("")
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))

			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	require.NoError(t, CloudPrivate("", "", "").Validate("notes-table"))
}

func TestParseStoreKind(t *testing.T) {
	for _, kind := range []StoreKind{KindInMemory, KindLocal, KindCloudPrivate, KindCloudShared} {
		parsed, err := ParseStoreKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseStoreKind("tape")
	assert.True(t, errors.IsValidationError(err))
}

func TestChangeNotificationObjectIDs(t *testing.T) {
	n := ChangeNotification{
		Inserted: []ObjectID{{Entity: "Note", Key: "1"}},
		Deleted:  []ObjectID{{Entity: "Tag", Key: "2"}},
	}
	assert.Equal(t, []ObjectID{{Entity: "Note", Key: "1"}, {Entity: "Tag", Key: "2"}}, n.ObjectIDs())
	assert.False(t, n.IsEmpty())
	assert.True(t, ChangeNotification{}.IsEmpty())
}
