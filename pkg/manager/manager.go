// Package manager provides the connection manager: it caches live
// connections by configuration fingerprint, guarantees at most one live
// connection per fingerprint under concurrent callers, and owns best-effort
// teardown of everything it cached.
package manager

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/RexBytes/pgmonkey/pkg/config"
	"github.com/RexBytes/pgmonkey/pkg/logger"
	"github.com/RexBytes/pgmonkey/pkg/metrics"
	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

// buildFunc builds and connects a state machine for a resolved config.
// It is a field so cache tests can inject fakes (no live server needed).
type buildFunc func(ctx context.Context, tree map[string]any, typ postgres.Type) (postgres.Connection, error)

type cacheEntry struct {
	conn postgres.Connection
	typ  postgres.Type
}

// ConnectionManager caches connection state machines keyed by configuration
// fingerprint. The mutex guards map bookkeeping only; native handshakes
// always run outside it so a slow connect never blocks unrelated lookups.
type ConnectionManager struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
	build buildFunc
}

// New creates an empty ConnectionManager.
func New() *ConnectionManager {
	return &ConnectionManager{
		cache: make(map[string]cacheEntry),
		build: defaultBuild,
	}
}

func defaultBuild(ctx context.Context, tree map[string]any, typ postgres.Type) (postgres.Connection, error) {
	conn, err := postgres.Build(tree, typ)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		// Discard anything partially constructed rather than leak it.
		_ = conn.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return conn, nil
}

type getOptions struct {
	connType               postgres.Type
	forceReload            bool
	resolveEnv             bool
	allowSensitiveDefaults bool
}

// GetOption configures a Get/GetFromConfig call.
type GetOption func(*getOptions)

// WithConnectionType overrides the connection_type from the config.
func WithConnectionType(t postgres.Type) GetOption {
	return func(o *getOptions) { o.connType = t }
}

// WithForceReload evicts any cached connection for this config and builds a
// fresh one. The old connection is disconnected best-effort; callers still
// holding it may keep using it until they disconnect it themselves.
func WithForceReload() GetOption {
	return func(o *getOptions) { o.forceReload = true }
}

// WithEnvResolution resolves ${VAR}, from_env, and from_file references in
// the config before connecting.
func WithEnvResolution() GetOption {
	return func(o *getOptions) { o.resolveEnv = true }
}

// WithAllowSensitiveDefaults permits ${VAR:-default} on sensitive keys
// during env resolution.
func WithAllowSensitiveDefaults() GetOption {
	return func(o *getOptions) { o.allowSensitiveDefaults = true }
}

// Get returns a connection for the given YAML config file, served from the
// cache when a live connection for the same fingerprint already exists.
func (m *ConnectionManager) Get(ctx context.Context, configPath string, opts ...GetOption) (postgres.Connection, error) {
	tree, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return m.get(ctx, tree, opts)
}

// GetFromConfig is Get for an in-memory configuration tree.
func (m *ConnectionManager) GetFromConfig(ctx context.Context, tree map[string]any, opts ...GetOption) (postgres.Connection, error) {
	return m.get(ctx, config.Normalize(tree), opts)
}

func (m *ConnectionManager) get(ctx context.Context, tree map[string]any, opts []GetOption) (postgres.Connection, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.resolveEnv {
		resolved, err := config.Resolve(tree, config.ResolveOptions{
			AllowSensitiveDefaults: o.allowSensitiveDefaults,
		})
		if err != nil {
			return nil, err
		}
		tree = resolved
	}

	typ, err := m.resolveType(tree, o.connType)
	if err != nil {
		return nil, err
	}
	key := Fingerprint(tree, typ)

	// Cache lookup under the lock; force-reload evicts before building.
	m.mu.Lock()
	if entry, ok := m.cache[key]; ok {
		if !o.forceReload {
			m.mu.Unlock()
			metrics.CacheHits.Inc()
			return entry.conn, nil
		}
		delete(m.cache, key)
		m.mu.Unlock()
		metrics.CacheEvictions.Inc()
		m.disconnectQuietly(ctx, entry.conn, "force-reload eviction")
	} else {
		m.mu.Unlock()
		metrics.CacheMisses.Inc()
	}

	// Build outside the lock so slow handshakes don't serialize unrelated
	// lookups.
	built, err := m.build(ctx, tree, typ)
	if err != nil {
		return nil, err
	}
	metrics.ConnectionsBuilt.WithLabelValues(string(typ)).Inc()

	// Locked publish with a "did someone else already win" re-check.
	m.mu.Lock()
	if entry, ok := m.cache[key]; ok {
		if !o.forceReload {
			m.mu.Unlock()
			metrics.ConnectionsDiscarded.Inc()
			m.disconnectQuietly(ctx, built, "lost cache publish race")
			return entry.conn, nil
		}
		// Force-reload overwrites an entry a concurrent caller published.
		m.cache[key] = cacheEntry{conn: built, typ: typ}
		m.mu.Unlock()
		metrics.CacheEvictions.Inc()
		m.disconnectQuietly(ctx, entry.conn, "force-reload displaced concurrent entry")
		return built, nil
	}
	m.cache[key] = cacheEntry{conn: built, typ: typ}
	m.mu.Unlock()
	return built, nil
}

// resolveType determines the connection type from the override or the
// config, failing on unrecognized values before any cache lookup. Only an
// absent or empty connection_type defaults to normal; a present non-string
// value is a config error, not a silent fallback.
func (m *ConnectionManager) resolveType(tree map[string]any, override postgres.Type) (postgres.Type, error) {
	if override != "" {
		return postgres.ParseType(string(override))
	}
	v, ok := tree["connection_type"]
	if !ok || v == nil {
		return postgres.TypeNormal, nil
	}
	raw, ok := v.(string)
	if !ok {
		return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
			"connection_type must be a string, got %T", v)
	}
	if raw == "" {
		return postgres.TypeNormal, nil
	}
	return postgres.ParseType(raw)
}

// disconnectQuietly tears a connection down best-effort. Cleanup must never
// crash the caller: failures become a warning and a metric.
func (m *ConnectionManager) disconnectQuietly(ctx context.Context, conn postgres.Connection, reason string) {
	if err := conn.Disconnect(context.WithoutCancel(ctx)); err != nil {
		metrics.CleanupErrors.Inc()
		logger.Warn("best-effort disconnect failed",
			zap.String("reason", reason),
			zap.String("connection_type", string(conn.Type())),
			zap.Error(err))
	}
}

// ClearCache best-effort disconnects every cached connection and empties
// the cache.
func (m *ConnectionManager) ClearCache(ctx context.Context) {
	m.mu.Lock()
	entries := make([]cacheEntry, 0, len(m.cache))
	for _, entry := range m.cache {
		entries = append(entries, entry)
	}
	m.cache = make(map[string]cacheEntry)
	m.mu.Unlock()

	for _, entry := range entries {
		metrics.CacheEvictions.Inc()
		m.disconnectQuietly(ctx, entry.conn, "cache clear")
	}
}

// Close is the idempotent cleanup-all used at process shutdown. Go has no
// process-exit hook; embedders defer this (the CLI does) or call it from
// their signal handler.
func (m *ConnectionManager) Close(ctx context.Context) {
	m.ClearCache(ctx)
}

// CacheInfo is a read-only diagnostic snapshot of the cache. Keys are the
// full fingerprints, so len(Entries) always equals Size; no configuration
// values are exposed.
type CacheInfo struct {
	Size    int
	Entries map[string]string // fingerprint -> connection type
}

// CacheInfo reports the current cache contents for diagnostics.
func (m *ConnectionManager) CacheInfo() CacheInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := CacheInfo{
		Size:    len(m.cache),
		Entries: make(map[string]string, len(m.cache)),
	}
	for key, entry := range m.cache {
		info.Entries[key] = string(entry.typ)
	}
	return info
}
