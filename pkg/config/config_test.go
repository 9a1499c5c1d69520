package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pg.yaml")
	content := `connection_type: pool
connection_settings:
  host: localhost
  port: 5432
pool_settings:
  min_size: 2
  max_size: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tree, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pool", tree["connection_type"])
	cs := tree["connection_settings"].(map[string]any)
	assert.Equal(t, "localhost", cs["host"])
	assert.Equal(t, 5432, cs["port"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestNormalize_UnwrapsDeprecatedWrapper(t *testing.T) {
	tree := map[string]any{
		"postgresql": map[string]any{
			"connection_type": "normal",
			"connection_settings": map[string]any{
				"host": "localhost",
			},
		},
	}

	normalized := Normalize(tree)
	assert.Equal(t, "normal", normalized["connection_type"])
	assert.NotContains(t, normalized, "postgresql")
}

func TestNormalize_PassesModernConfigThrough(t *testing.T) {
	tree := map[string]any{"connection_type": "async"}
	assert.Equal(t, tree, Normalize(tree))
}

func TestNormalize_Nil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestLoadAndResolve(t *testing.T) {
	t.Setenv("PGM_TEST_DB", "proddb")

	path := filepath.Join(t.TempDir(), "pg.yaml")
	content := `connection_settings:
  dbname: ${PGM_TEST_DB}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tree, err := LoadAndResolve(path, ResolveOptions{})
	require.NoError(t, err)
	cs := tree["connection_settings"].(map[string]any)
	assert.Equal(t, "proddb", cs["dbname"])
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "pg.yaml")

	require.NoError(t, WriteTemplate(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Template, string(data))

	// Template itself must be loadable.
	t.Setenv("PGPASSWORD", "x")
	tree, err := LoadAndResolve(path, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "normal", tree["connection_type"])
}

func TestWriteTemplate_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keep: me"), 0o600))

	err := WriteTemplate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep: me", string(data))
}
