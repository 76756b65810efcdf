package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks cache hits.
	Hits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "regfetch_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	// Misses tracks cache misses.
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "regfetch_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Size tracks bytes written to the cache.
	Size = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "regfetch_cache_size_bytes",
			Help: "Bytes stored in the response cache",
		},
	)

	// Errors tracks cache operation errors.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regfetch_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
