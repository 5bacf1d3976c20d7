package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metroflow_feed_fetch_total",
		Help: "Upstream feed fetch attempts by logical feed name and outcome.",
	}, []string{"feed", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metroflow_feed_fetch_duration_seconds",
		Help:    "Upstream feed fetch latency by logical feed name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})

	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metroflow_feed_cache_events_total",
		Help: "Feed cache hits, misses and empty-entity discards.",
	}, []string{"feed", "event"})
)
