// Package metrics exposes Prometheus collectors for the caching and
// loading layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"},
	)

	loadAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_load_attempts_total",
			Help: "Retrieval strategy attempts by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipe_load_duration_seconds",
			Help:    "Time spent retrieving one document",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_updates_total",
			Help: "Repository updates by sync mode and outcome",
		},
		[]string{"sync", "outcome"},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipe_cache_entries",
			Help: "Current number of cache entries, fresh or stale",
		},
	)
)

// Register attaches all collectors to the given registerer (usually
// prometheus.DefaultRegisterer from cmd/main).
func Register(reg prometheus.Registerer) {
	reg.MustRegister(cacheLookups, loadAttempts, loadDuration, updatesTotal, cacheEntries)
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordLoadAttempt counts one strategy attempt and its duration.
func RecordLoadAttempt(strategy, outcome string, seconds float64) {
	loadAttempts.WithLabelValues(strategy, outcome).Inc()
	loadDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordUpdate counts a repository update.
func RecordUpdate(sync, outcome string) {
	updatesTotal.WithLabelValues(sync, outcome).Inc()
}

// SetCacheEntries reports the current cache size.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}
