package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sqlassist version "))
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "fix_sql")
}

func TestDatasetCommands_DuckDB(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SQLASSIST_DRIVER", "duckdb")
	t.Setenv("SQLASSIST_DUCKDB_DIR", filepath.Join(dir, "data"))
	t.Setenv("SQLASSIST_UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("SQLASSIST_LLM_API_KEY", "test")
	t.Setenv("SQLASSIST_LOG_LEVEL", "error")

	dump := filepath.Join(dir, "shop.sql")
	require.NoError(t, os.WriteFile(dump, []byte("CREATE TABLE items (id INTEGER);\nINSERT INTO items VALUES (1);\n"), 0o644))

	out, err := run(t, "dataset", "add", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "Added shop.sql")
	assert.Contains(t, out, "items(")

	// Each command builds its own in-memory cache, so nothing is marked loaded here.
	out, err = run(t, "dataset", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "shop.sql")

	out, err = run(t, "dataset", "rm", "shop.sql")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 'shop.sql'")

	out, err = run(t, "dataset", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No datasets uploaded.")
}

func TestUnknownConfigFile(t *testing.T) {
	_, err := run(t, "dataset", "list", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
