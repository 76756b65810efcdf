// Package metrics provides the centralized Prometheus metrics registry for
// regfetch. All metrics are defined in their owning packages (client, cache,
// schema, fetch) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by regfetch.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - regfetch_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - regfetch_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - regfetch_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client):
//   - regfetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - regfetch_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - regfetch_retry_exhausted_total{error_class} (Counter): Pages that exhausted max attempts
//
// Cache Metrics (pkg/cache):
//   - regfetch_cache_hits_total (Counter): Response cache hits
//   - regfetch_cache_misses_total (Counter): Response cache misses
//   - regfetch_cache_size_bytes (Gauge): Bytes written to the cache
//   - regfetch_cache_errors_total{operation} (Counter): Cache operation errors
//
// Validation Metrics (pkg/schema):
//   - regfetch_validation_failures_total (Counter): Pages failing schema validation
//
// Pagination Metrics (pkg/fetch):
//   - regfetch_pages_fetched_total{mode} (Counter): Pages fetched per scheduling mode
//   - regfetch_fetches_total{reason} (Counter): Fetch invocations by termination reason
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(regfetch_cache_hits_total[5m]) /
//   (rate(regfetch_cache_hits_total[5m]) + rate(regfetch_cache_misses_total[5m]))
//
//   # Request Error Rate
//   rate(regfetch_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(regfetch_request_duration_seconds_bucket[5m]))
//
//   # Share of fetches truncated by the page cap
//   rate(regfetch_fetches_total{reason="truncated-by-max-pages"}[1h])
