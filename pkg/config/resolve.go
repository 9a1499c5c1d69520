package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// envPattern matches ${VAR} and ${VAR:-default} inside strings.
// Group 1 is the variable name, group 2 the default (absent when no :-).
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ResolveOptions control env/secret resolution behavior.
type ResolveOptions struct {
	// AllowSensitiveDefaults permits ${VAR:-default} on sensitive keys like
	// password. Off by default: a silently defaulted secret is almost always
	// a deployment mistake.
	AllowSensitiveDefaults bool
}

// Resolve returns a copy of tree with all environment references resolved.
//
// Two substitution forms are supported:
//
//  1. Inline string interpolation: ${VAR} and ${VAR:-default}
//  2. Structured references: {from_env: VAR} and {from_file: /path}
//
// The input tree is never mutated. Errors name the dotted config key path
// and the variable or file involved, never the resolved value.
func Resolve(tree map[string]any, opts ResolveOptions) (map[string]any, error) {
	return resolveMap(tree, "", opts)
}

func resolveMap(m map[string]any, path string, opts ResolveOptions) (map[string]any, error) {
	result := make(map[string]any, len(m))
	for key, value := range m {
		keyPath := key
		if path != "" {
			keyPath = path + "." + key
		}

		resolved, err := resolveValue(value, keyPath, opts)
		if err != nil {
			return nil, err
		}
		result[key] = resolved
	}
	return result, nil
}

func resolveValue(value any, keyPath string, opts ResolveOptions) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if isStructuredRef(v) {
			return resolveStructuredRef(v, keyPath)
		}
		return resolveMap(v, keyPath, opts)
	case string:
		if strings.Contains(v, "${") {
			return interpolateString(v, keyPath, opts)
		}
		return v, nil
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			if s, ok := item.(string); ok && strings.Contains(s, "${") {
				resolved, err := interpolateString(s, keyPath, opts)
				if err != nil {
					return nil, err
				}
				items[i] = resolved
			} else {
				items[i] = item
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

// isStructuredRef reports whether value is a from_env/from_file reference:
// a mapping with exactly one key. A mapping carrying from_env plus other
// keys is an ordinary nested mapping and is recursed into instead.
func isStructuredRef(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	_, hasEnv := m["from_env"]
	_, hasFile := m["from_file"]
	return hasEnv || hasFile
}

func resolveStructuredRef(ref map[string]any, keyPath string) (string, error) {
	if raw, ok := ref["from_env"]; ok {
		varName, ok := raw.(string)
		if !ok {
			return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeInterpolation,
				"from_env at config key '%s' must name an environment variable", keyPath)
		}
		value, set := os.LookupEnv(varName)
		if !set {
			return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeInterpolation,
				"environment variable '%s' is not set (referenced by config key '%s' via from_env)",
				varName, keyPath)
		}
		return value, nil
	}

	raw := ref["from_file"]
	filePath, ok := raw.(string)
	if !ok {
		return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeInterpolation,
			"from_file at config key '%s' must name a file path", keyPath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeInterpolation,
			"could not read secret file '%s' (referenced by config key '%s' via from_file): %v",
			filePath, keyPath, err)
	}
	// Kubernetes Secret-style: strip exactly one trailing newline.
	return strings.TrimSuffix(string(data), "\n"), nil
}

// interpolateString replaces every ${VAR} / ${VAR:-default} occurrence in
// value, left to right, each resolved independently.
func interpolateString(value, keyPath string, opts ResolveOptions) (string, error) {
	var firstErr error
	result := envPattern.ReplaceAllStringFunc(value, func(match string) string {
		if firstErr != nil {
			return match
		}
		groups := envPattern.FindStringSubmatch(match)
		varName := groups[1]
		var defaultValue *string
		if strings.HasPrefix(match, "${"+varName+":-") {
			defaultValue = &groups[2]
		}

		resolved, err := resolveEnvVar(varName, defaultValue, keyPath, opts)
		if err != nil {
			firstErr = err
			return match
		}
		return resolved
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func resolveEnvVar(varName string, defaultValue *string, keyPath string, opts ResolveOptions) (string, error) {
	// An env var set to the empty string still wins over the default.
	if value, set := os.LookupEnv(varName); set {
		return value, nil
	}

	if defaultValue != nil {
		leaf := keyPath
		if i := strings.LastIndex(keyPath, "."); i >= 0 {
			leaf = keyPath[i+1:]
		}
		if !opts.AllowSensitiveDefaults && IsSensitiveKey(leaf) {
			return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeInterpolation,
				"default values are not allowed for sensitive key '%s'; set the environment variable ${%s} instead",
				keyPath, varName)
		}
		return *defaultValue, nil
	}

	return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeInterpolation,
		"environment variable '%s' is not set and no default was provided (referenced by config key '%s')",
		varName, keyPath)
}
