package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

func TestResolve_InlineInterpolation(t *testing.T) {
	t.Setenv("PGM_TEST_HOST", "db.internal")
	t.Setenv("PGM_TEST_PORT", "6543")

	tree := map[string]any{
		"connection_settings": map[string]any{
			"host":             "${PGM_TEST_HOST}",
			"application_name": "app-${PGM_TEST_PORT}-suffix",
			"port":             5432,
		},
	}

	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)

	cs := resolved["connection_settings"].(map[string]any)
	assert.Equal(t, "db.internal", cs["host"])
	assert.Equal(t, "app-6543-suffix", cs["application_name"])
	assert.Equal(t, 5432, cs["port"])
}

func TestResolve_DefaultUsedWhenUnset(t *testing.T) {
	os.Unsetenv("PGM_TEST_MISSING")

	tree := map[string]any{"host": "${PGM_TEST_MISSING:-localhost}"}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "localhost", resolved["host"])
}

func TestResolve_EmptyEnvVarBeatsDefault(t *testing.T) {
	t.Setenv("PGM_TEST_EMPTY", "")

	tree := map[string]any{"host": "${PGM_TEST_EMPTY:-fallback}"}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", resolved["host"])
}

func TestResolve_MissingVarNoDefault(t *testing.T) {
	os.Unsetenv("PGM_TEST_MISSING")

	tree := map[string]any{
		"connection_settings": map[string]any{"host": "${PGM_TEST_MISSING}"},
	}
	_, err := Resolve(tree, ResolveOptions{})
	require.Error(t, err)
	assert.True(t, pgmonkeyerrors.IsType(err, pgmonkeyerrors.ErrorTypeInterpolation))
	assert.Contains(t, err.Error(), "PGM_TEST_MISSING")
	assert.Contains(t, err.Error(), "connection_settings.host")
}

func TestResolve_SensitiveDefaultRejected(t *testing.T) {
	os.Unsetenv("PGM_TEST_PW")

	tree := map[string]any{
		"connection_settings": map[string]any{"password": "${PGM_TEST_PW:-hunter2}"},
	}
	_, err := Resolve(tree, ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection_settings.password")
	assert.Contains(t, err.Error(), "PGM_TEST_PW")
	// The default must never appear in the error.
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestResolve_SensitiveDefaultAllowedWhenOptedIn(t *testing.T) {
	os.Unsetenv("PGM_TEST_PW")

	tree := map[string]any{"password": "${PGM_TEST_PW:-devpassword}"}
	resolved, err := Resolve(tree, ResolveOptions{AllowSensitiveDefaults: true})
	require.NoError(t, err)
	assert.Equal(t, "devpassword", resolved["password"])
}

func TestResolve_SensitiveEnvVarSetIsFine(t *testing.T) {
	t.Setenv("PGM_TEST_PW", "realsecret")

	tree := map[string]any{"password": "${PGM_TEST_PW:-fallback}"}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "realsecret", resolved["password"])
}

func TestResolve_FromEnv(t *testing.T) {
	t.Setenv("PGM_TEST_SECRET", "s3cr3t")

	tree := map[string]any{
		"connection_settings": map[string]any{
			"password": map[string]any{"from_env": "PGM_TEST_SECRET"},
		},
	}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	cs := resolved["connection_settings"].(map[string]any)
	assert.Equal(t, "s3cr3t", cs["password"])
}

func TestResolve_FromEnvUnset(t *testing.T) {
	os.Unsetenv("PGM_TEST_SECRET")

	tree := map[string]any{
		"password": map[string]any{"from_env": "PGM_TEST_SECRET"},
	}
	_, err := Resolve(tree, ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PGM_TEST_SECRET")
	assert.Contains(t, err.Error(), "password")
}

func TestResolve_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgpassword")
	require.NoError(t, os.WriteFile(path, []byte("filesecret\n"), 0o600))

	tree := map[string]any{
		"password": map[string]any{"from_file": path},
	}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	// Exactly one trailing newline is stripped.
	assert.Equal(t, "filesecret", resolved["password"])
}

func TestResolve_FromFileKeepsInnerNewlines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert")
	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\n\n"), 0o600))

	tree := map[string]any{"sslcert": map[string]any{"from_file": path}}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", resolved["sslcert"])
}

func TestResolve_FromFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope")

	tree := map[string]any{"password": map[string]any{"from_file": path}}
	_, err := Resolve(tree, ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "password")
}

func TestResolve_NestedMapWithExtraKeysIsNotARef(t *testing.T) {
	tree := map[string]any{
		"section": map[string]any{
			"from_env": "IGNORED",
			"other":    "value",
		},
	}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	section := resolved["section"].(map[string]any)
	assert.Equal(t, "IGNORED", section["from_env"])
	assert.Equal(t, "value", section["other"])
}

func TestResolve_ListItems(t *testing.T) {
	t.Setenv("PGM_TEST_ITEM", "resolved")

	tree := map[string]any{
		"hosts": []any{"${PGM_TEST_ITEM}", "plain", 42},
	}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{"resolved", "plain", 42}, resolved["hosts"])
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	t.Setenv("PGM_TEST_HOST", "resolved")

	tree := map[string]any{
		"nested": map[string]any{"host": "${PGM_TEST_HOST}"},
	}
	_, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "${PGM_TEST_HOST}", tree["nested"].(map[string]any)["host"])
}

func TestResolve_MultipleRefsInOneString(t *testing.T) {
	t.Setenv("PGM_TEST_A", "one")
	t.Setenv("PGM_TEST_B", "two")
	os.Unsetenv("PGM_TEST_C")

	tree := map[string]any{"s": "${PGM_TEST_A}-${PGM_TEST_B}-${PGM_TEST_C:-three}"}
	resolved, err := Resolve(tree, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "one-two-three", resolved["s"])
}
