package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintrack_snapshot_cache_hits_total",
		Help: "Requests served from a valid cached snapshot.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintrack_snapshot_cache_misses_total",
		Help: "Requests that found the snapshot cache empty, expired or keyed differently.",
	})

	builds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintrack_snapshot_builds_total",
		Help: "Snapshots built and stored in the cache.",
	})

	buildFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintrack_snapshot_build_failures_total",
		Help: "Snapshot builds aborted by a record source failure.",
	})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "maintrack_snapshot_build_duration_seconds",
		Help:    "Time spent building a snapshot, successful or not.",
		Buckets: prometheus.DefBuckets,
	})
)
