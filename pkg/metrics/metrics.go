// Package metrics defines Prometheus metrics for the connection manager.
// Collectors are registered upfront on the default registry; exposing them
// over HTTP is left to the embedding application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups served from the connection cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgmonkey_cache_hits_total",
		Help: "Connection cache lookups served from an existing entry",
	})

	// CacheMisses counts lookups that required building a new connection.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgmonkey_cache_misses_total",
		Help: "Connection cache lookups that missed",
	})

	// CacheEvictions counts entries removed by force-reload or clear.
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgmonkey_cache_evictions_total",
		Help: "Connection cache entries evicted",
	})

	// ConnectionsBuilt counts native connections built per connection type.
	ConnectionsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgmonkey_connections_built_total",
		Help: "Native connections or pools built",
	}, []string{"connection_type"})

	// ConnectionsDiscarded counts freshly built connections discarded after
	// losing a publish race.
	ConnectionsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgmonkey_connections_discarded_total",
		Help: "Freshly built connections discarded after losing a cache publish race",
	})

	// CleanupErrors counts best-effort disconnect failures during eviction,
	// cache clearing, and shutdown.
	CleanupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgmonkey_cleanup_errors_total",
		Help: "Best-effort disconnect failures during cleanup",
	})
)
