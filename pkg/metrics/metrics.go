package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the service's Prometheus collectors behind a single
// scrape handler.
type Registry struct {
	reg *prometheus.Registry

	RatingsCreated      prometheus.Counter
	RatingConflicts     prometheus.Counter
	TrustRecomputes     prometheus.Counter
	RecomputeLatencySec prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	ratingsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trust_ratings_created_total",
		Help: "Number of ratings persisted.",
	})
	ratingConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trust_rating_conflicts_total",
		Help: "Number of rating submissions rejected because the job was already rated.",
	})
	trustRecomputes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trust_score_recomputes_total",
		Help: "Number of trust score recomputations.",
	})
	recomputeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trust_score_recompute_latency_seconds",
		Help:    "Latency of trust score recomputation.",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(ratingsCreated, ratingConflicts, trustRecomputes, recomputeLatency)

	return &Registry{
		reg:                 r,
		RatingsCreated:      ratingsCreated,
		RatingConflicts:     ratingConflicts,
		TrustRecomputes:     trustRecomputes,
		RecomputeLatencySec: recomputeLatency,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
