package config

import "strings"

// sensitiveKeys are config keys whose values are secrets. Defaults are
// disallowed for these keys unless the caller explicitly opts in, and the
// redactor masks their values.
var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"sslkey":      {},
	"sslcert":     {},
	"sslrootcert": {},
}

// sensitiveSubstrings mark a key as sensitive regardless of its exact name.
var sensitiveSubstrings = []string{"token", "secret", "credential"}

// IsSensitiveKey reports whether key names a sensitive config value.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := sensitiveKeys[lower]; ok {
		return true
	}
	for _, sub := range sensitiveSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
