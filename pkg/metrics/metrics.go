// Package metrics provides the centralized Prometheus metrics registry
// for tripfetch. All metrics are defined in their respective packages
// (fetch, runner, cache, ratelimit) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by tripfetch.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/fetch):
//   - tripfetch_requests_total{source, status} (Counter): Source requests by source and HTTP status
//   - tripfetch_request_duration_seconds{source} (Histogram): Request duration by source
//   - tripfetch_errors_total{kind} (Counter): Per-item failures by kind
//     (timeout, http_error, rate_limited, malformed_response)
//   - tripfetch_pace_wait_seconds (Histogram): Time spent waiting out the inter-call delay
//
// Run Metrics (pkg/runner):
//   - tripfetch_items_processed_total{source, outcome} (Counter): Items processed by outcome
//   - tripfetch_backoffs_total{source} (Counter): Long rate-limit backoffs taken
//   - tripfetch_run_duration_seconds{source} (Histogram): Wall-clock run duration
//
// Quota Metrics (pkg/ratelimit):
//   - tripfetch_quota_remaining{source} (Gauge): Remaining calls in the provider's window
//   - tripfetch_quota_blocks_total{source} (Counter): Requests blocked on critical quota
//   - tripfetch_quota_throttles_total{source} (Counter): Requests throttled on low quota
//
// Cache Metrics (pkg/cache):
//   - tripfetch_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - tripfetch_cache_misses_total (Counter): Cache misses
//   - tripfetch_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - tripfetch_304_responses_total (Counter): 304 Not Modified responses
//   - tripfetch_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - tripfetch_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Failure Rate By Kind
//   rate(tripfetch_errors_total[15m])
//
//   # Backoff Pressure Per Source
//   increase(tripfetch_backoffs_total[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(tripfetch_request_duration_seconds_bucket[5m]))
//
//   # Cache Hit Rate
//   sum(rate(tripfetch_cache_hits_total[5m])) /
//   (sum(rate(tripfetch_cache_hits_total[5m])) + sum(rate(tripfetch_cache_misses_total[5m])))
