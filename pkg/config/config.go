// Package config loads, normalizes, and transforms pgmonkey configuration
// trees. A configuration is a free-form nested YAML mapping; this package
// keeps it as map[string]any so the resolver, redactor, and fingerprint can
// work over arbitrary nesting. Typed extraction happens in the factory.
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/RexBytes/pgmonkey/pkg/logger"
	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// deprecatedWrapperKey is the pre-v3 top-level wrapper that nested all
// settings one level deeper.
const deprecatedWrapperKey = "postgresql"

// Load reads and parses a YAML configuration file into a tree,
// unwrapping the deprecated top-level wrapper if present.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
			fmt.Sprintf("reading config file %s", path))
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
			fmt.Sprintf("parsing config file %s", path))
	}

	return Normalize(tree), nil
}

// Normalize unwraps the deprecated 'postgresql:' top-level wrapper key.
// Old-format configs keep working; a deprecation warning is logged, never
// an error.
func Normalize(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	if inner, ok := tree[deprecatedWrapperKey].(map[string]any); ok {
		logger.Warn("the top-level 'postgresql:' key in config files is deprecated; " +
			"remove the wrapper and dedent all settings one level")
		return inner
	}
	return tree
}

// LoadAndResolve loads a config file and resolves all environment and
// secret references in one step.
func LoadAndResolve(path string, opts ResolveOptions) (map[string]any, error) {
	tree, err := Load(path)
	if err != nil {
		return nil, err
	}
	resolved, err := Resolve(tree, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded and resolved", zap.String("path", path))
	return resolved, nil
}
