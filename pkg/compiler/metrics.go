package compiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCompiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slate_compiles_total",
		Help: "Templates compiled (cache misses included).",
	})
	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slate_compile_cache_hits_total",
		Help: "Compile cache hits.",
	})
	metricCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slate_compile_cache_misses_total",
		Help: "Compile cache misses.",
	})
	metricCompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slate_compile_duration_seconds",
		Help:    "Wall time of a single template compilation.",
		Buckets: prometheus.DefBuckets,
	})
)
