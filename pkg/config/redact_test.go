package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact_MasksSensitiveValues(t *testing.T) {
	tree := map[string]any{
		"connection_settings": map[string]any{
			"host":     "localhost",
			"password": "supersecret",
			"sslkey":   "/path/client.key",
		},
		"api_token": "tok-123",
	}

	redacted := Redact(tree)
	cs := redacted["connection_settings"].(map[string]any)
	assert.Equal(t, "localhost", cs["host"])
	assert.Equal(t, Redacted, cs["password"])
	assert.Equal(t, Redacted, cs["sslkey"])
	assert.Equal(t, Redacted, redacted["api_token"])
}

func TestRedact_EmptyValuesPassThrough(t *testing.T) {
	tree := map[string]any{
		"password": "",
		"sslcert":  nil,
	}
	redacted := Redact(tree)
	assert.Equal(t, "", redacted["password"])
	assert.Nil(t, redacted["sslcert"])
}

func TestRedact_NeverMutatesInput(t *testing.T) {
	tree := map[string]any{
		"nested": map[string]any{"password": "secret"},
		"list":   []any{"a", "b"},
	}
	redacted := Redact(tree)

	assert.Equal(t, "secret", tree["nested"].(map[string]any)["password"])
	redacted["list"].([]any)[0] = "mutated"
	assert.Equal(t, "a", tree["list"].([]any)[0])
}

func TestRedact_Idempotent(t *testing.T) {
	tree := map[string]any{"password": "secret"}
	once := Redact(tree)
	twice := Redact(once)
	assert.Equal(t, once, twice)
}

func TestRedact_Nil(t *testing.T) {
	assert.Nil(t, Redact(nil))
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"PASSWORD", true},
		{"sslkey", true},
		{"sslcert", true},
		{"sslrootcert", true},
		{"api_token", true},
		{"client_secret", true},
		{"aws_credentials", true},
		{"host", false},
		{"port", false},
		{"user", false},
		{"sslmode", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSensitiveKey(tt.key), tt.key)
	}
}
