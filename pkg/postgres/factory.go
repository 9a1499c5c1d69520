package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/RexBytes/pgmonkey/pkg/logger"
	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// connectionKeys is the allow-list of native client parameters accepted in
// connection_settings. Everything else is dropped with a warning.
var connectionKeys = map[string]struct{}{
	"user":                {},
	"password":            {},
	"host":                {},
	"port":                {},
	"dbname":              {},
	"sslmode":             {},
	"sslcert":             {},
	"sslkey":              {},
	"sslrootcert":         {},
	"connect_timeout":     {},
	"application_name":    {},
	"keepalives":          {},
	"keepalives_idle":     {},
	"keepalives_interval": {},
	"keepalives_count":    {},
}

// poolSettingKeys are the recognized pool_settings/async_pool_settings keys.
var poolSettingKeys = map[string]struct{}{
	"min_size":          {},
	"max_size":          {},
	"check_on_checkout": {},
	"max_lifetime":      {},
	"max_idle":          {},
}

// Build validates a configuration tree and constructs the state machine for
// the given connection type. Configuration errors are raised here, before
// any native resource is touched.
func Build(tree map[string]any, typ Type) (Connection, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return nil, err
	}

	rawSettings, ok := tree["connection_settings"].(map[string]any)
	if !ok {
		return nil, pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConfig,
			"config is missing the 'connection_settings' section")
	}
	settings := filterConnectionSettings(rawSettings)
	conninfo := buildConninfo(settings)

	syncSettings := subTree(tree, "sync_settings")
	asyncSettings := subTree(tree, "async_settings")
	poolSettings := subTree(tree, "pool_settings")
	asyncPoolSettings := subTree(tree, "async_pool_settings")

	switch typ {
	case TypeNormal:
		gucs, autocommit := splitSessionSettings(syncSettings)
		connConfig, err := pgx.ParseConfig(conninfo)
		if err != nil {
			return nil, pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
				"invalid connection settings")
		}
		return &NormalConnection{connConfig: connConfig, settings: gucs, autocommit: autocommit}, nil

	case TypeAsync:
		gucs, autocommit := splitSessionSettings(asyncSettings)
		connConfig, err := pgx.ParseConfig(conninfo)
		if err != nil {
			return nil, pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
				"invalid connection settings")
		}
		return &AsyncConnection{connConfig: connConfig, settings: gucs, autocommit: autocommit}, nil

	case TypePool:
		gucs, autocommit := splitSessionSettings(syncSettings)
		poolConfig, bounds, err := buildPoolConfig(conninfo, poolSettings, "pool_settings", gucs)
		if err != nil {
			return nil, err
		}
		return &PoolConnection{
			poolConfig: poolConfig,
			minSize:    bounds.min,
			maxSize:    bounds.max,
			autocommit: autocommit,
		}, nil

	default: // TypeAsyncPool
		gucs, autocommit := splitSessionSettings(asyncSettings)
		poolConfig, bounds, err := buildPoolConfig(conninfo, asyncPoolSettings, "async_pool_settings", gucs)
		if err != nil {
			return nil, err
		}
		return &AsyncPoolConnection{
			poolConfig: poolConfig,
			minSize:    bounds.min,
			maxSize:    bounds.max,
			autocommit: autocommit,
		}, nil
	}
}

// filterConnectionSettings keeps only allow-listed native parameters.
// nil values are dropped; falsy-but-meaningful values such as 0 and the
// empty string are preserved as-is. Earlier releases dropped empty strings
// along with nil; preserving them is a deliberate product decision, so a
// user can force e.g. sslcert to empty rather than have it fall back to the
// client library's default lookup. Unknown keys are dropped with a warning,
// not an error.
func filterConnectionSettings(settings map[string]any) map[string]any {
	filtered := make(map[string]any, len(settings))
	for key, value := range settings {
		if _, ok := connectionKeys[key]; !ok {
			logger.Warn("ignoring unrecognized connection setting", zap.String("key", key))
			continue
		}
		if value == nil {
			continue
		}
		filtered[key] = value
	}
	return filtered
}

// buildConninfo constructs a libpq keyword/value connection string with
// deterministic key order and proper value escaping.
func buildConninfo(settings map[string]any) string {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+escapeConninfoValue(fmt.Sprint(settings[key])))
	}
	return strings.Join(parts, " ")
}

// escapeConninfoValue quotes a conninfo value when needed, following libpq
// quoting rules: empty values and values containing spaces, quotes, or
// backslashes are wrapped in single quotes with ' and \ backslash-escaped.
func escapeConninfoValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

type poolBounds struct {
	min int32
	max int32
}

// buildPoolConfig parses the conninfo into a pool config and applies the
// recognized pool settings. min_size > max_size fails before any native
// resource is touched.
func buildPoolConfig(conninfo string, settings map[string]any, section string, gucs map[string]any) (*pgxpool.Config, poolBounds, error) {
	var bounds poolBounds

	poolConfig, err := pgxpool.ParseConfig(conninfo)
	if err != nil {
		return nil, bounds, pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
			"invalid connection settings")
	}

	for key := range settings {
		if _, ok := poolSettingKeys[key]; !ok {
			logger.Warn("ignoring unrecognized pool setting",
				zap.String("section", section), zap.String("key", key))
		}
	}

	minSize, hasMin := asInt(settings["min_size"])
	maxSize, hasMax := asInt(settings["max_size"])
	if hasMin && hasMax && minSize > maxSize {
		return nil, bounds, pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
			"%s: min_size (%d) must not exceed max_size (%d)", section, minSize, maxSize)
	}
	if hasMin {
		poolConfig.MinConns = int32(minSize)
		bounds.min = int32(minSize)
	}
	if hasMax {
		poolConfig.MaxConns = int32(maxSize)
		bounds.max = int32(maxSize)
	}
	if d, ok := asDuration(settings["max_lifetime"]); ok {
		poolConfig.MaxConnLifetime = d
	}
	if d, ok := asDuration(settings["max_idle"]); ok {
		poolConfig.MaxConnIdleTime = d
	}

	if len(gucs) > 0 {
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			// Runs once per new physical connection, directly on the raw
			// connection outside any transaction, so the GUCs take
			// session-wide effect.
			applySessionSettings(ctx, conn, gucs)
			return nil
		}
	}

	if asBool(settings["check_on_checkout"]) {
		poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			var one int
			return conn.QueryRow(ctx, "SELECT 1").Scan(&one) == nil
		}
	}

	return poolConfig, bounds, nil
}

func subTree(tree map[string]any, key string) map[string]any {
	if m, ok := tree[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}

// asDuration accepts Go duration strings ("30m") or plain integer seconds.
func asDuration(v any) (time.Duration, bool) {
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(val)
		return d, err == nil
	case int:
		return time.Duration(val) * time.Second, true
	case int64:
		return time.Duration(val) * time.Second, true
	default:
		return 0, false
	}
}
