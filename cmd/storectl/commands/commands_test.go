/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/persistence"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `
model: Notes
directory: ` + dir + `
stores:
  - kind: local
    configuration: Local
  - kind: cloud-shared
    configuration: Team
    cloudContainer: team-table
  - kind: in-memory
logging:
  level: disabled
`
	path := filepath.Join(t.TempDir(), "persistence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	out, err := run(t, "describe", "--config", path, "--json")
	require.NoError(t, err)

	var got []storeRow
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)

	assert.Equal(t, "local", got[0].Kind)
	assert.Equal(t, filepath.Join(dir, "local.sqlite"), got[0].Path)
	assert.Empty(t, got[0].Container)

	assert.Equal(t, "cloud-shared", got[1].Kind)
	assert.Equal(t, "team-table", got[1].Container)
	assert.Equal(t, "shared", got[1].Scope)

	assert.Equal(t, os.DevNull, got[2].Path)

	// describe never opens a store
	_, err = os.Stat(got[0].Path)
	assert.True(t, os.IsNotExist(err))
}

func TestCheckCreatesStores(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	out, err := run(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 stores loaded")

	_, err = os.Stat(filepath.Join(dir, "local.sqlite"))
	assert.NoError(t, err)
}

func TestCheckReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistence.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: Notes\n"), 0o600))

	_, err := run(t, "check", "--config", path)
	require.Error(t, err)
}

func TestSyncRequiresCloudStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistence.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: Notes\nstores:\n  - kind: in-memory\n"), 0o600))

	_, err := run(t, "sync", "--config", path)
	require.EqualError(t, err, "no cloud stores configured")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)

	var info persistence.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, persistence.Version, info.Version)
}
