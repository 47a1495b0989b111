// Package metrics holds the Prometheus instruments shared by the client
// packages. Collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CacheLookups counts cache reads by result (hit, miss, expired, corrupt)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtable_cache_lookups_total",
			Help: "Cache reads partitioned by result.",
		}, []string{"result"})

	// CacheWrites counts cache writes by result (ok, skipped, failed)
	CacheWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtable_cache_writes_total",
			Help: "Cache writes partitioned by result.",
		}, []string{"result"})

	// Requests counts API requests by method and outcome
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtable_requests_total",
			Help: "API requests partitioned by method and outcome.",
		}, []string{"method", "outcome"})

	// ResolveFanout observes how many ids each relationship resolution fetches
	ResolveFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airtable_resolve_fanout",
			Help:    "Number of linked records fetched per relationship resolution.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		})
)

func init() {
	prometheus.MustRegister(
		CacheLookups,
		CacheWrites,
		Requests,
		ResolveFanout,
	)
}
