package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ledgerdRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	ledgerdRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgerd_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ledgerdTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_transfers_total",
		Help: "Total transfer calls by result.",
	}, []string{"result"})

	ledgerdRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerd_rate_limited_total",
		Help: "Total requests rejected by the rate limiter.",
	})

	ledgerdMintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerd_mints_total",
		Help: "Total successful mint calls.",
	})

	ledgerdSolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_solution_submissions_total",
		Help: "Total solution submissions by outcome.",
	}, []string{"outcome"})

	ledgerdOffersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_offer_submissions_total",
		Help: "Total offer submissions by result.",
	}, []string{"result"})

	ledgerdVotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_votes_total",
		Help: "Total recorded proposal votes by side.",
	}, []string{"side"})

	ledgerdEpochRotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_epoch_rotations_total",
		Help: "Total challenge epoch rotations by trigger.",
	}, []string{"trigger"})

	ledgerdSnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_snapshots_total",
		Help: "Total snapshot saves by result.",
	}, []string{"result"})

	ledgerdHealthProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_health_probes_total",
		Help: "Total dependency health probes by probe and result.",
	}, []string{"probe", "result"})

	ledgerdQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgerd_dispatcher_queue_depth",
		Help: "Calls waiting for the dispatcher when the last request arrived.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		ledgerdRequestsTotal.WithLabelValues(method, path, status).Inc()
		ledgerdRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func result(err error) string {
	if err != nil {
		return "rejected"
	}
	return "ok"
}

// RecordTransfer records the result of a transfer call.
func RecordTransfer(err error) {
	ledgerdTransfersTotal.WithLabelValues(result(err)).Inc()
}

// RecordMint records a successful mint.
func RecordMint() { ledgerdMintsTotal.Inc() }

// RecordRateLimited records a request rejected with 429.
func RecordRateLimited() { ledgerdRateLimitedTotal.Inc() }

// RecordSolution records a solution submission by acceptance or rejection kind.
func RecordSolution(err error) {
	outcome := "accepted"
	var rej *registry.SolutionRejected
	switch {
	case errors.As(err, &rej):
		outcome = string(rej.Kind)
	case err != nil:
		outcome = "error"
	}
	ledgerdSolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordOffer records the result of an offer submission.
func RecordOffer(err error) {
	ledgerdOffersTotal.WithLabelValues(result(err)).Inc()
}

// RecordVote records a counted vote.
func RecordVote(inFavor bool) {
	if inFavor {
		ledgerdVotesTotal.WithLabelValues("for").Inc()
	} else {
		ledgerdVotesTotal.WithLabelValues("against").Inc()
	}
}

// RecordEpochRotation records a challenge epoch rotation. trigger is "timer"
// or "api".
func RecordEpochRotation(trigger string) {
	ledgerdEpochRotationsTotal.WithLabelValues(trigger).Inc()
}

// RecordSnapshot records the result of a snapshot save.
func RecordSnapshot(err error) {
	if err != nil {
		ledgerdSnapshotsTotal.WithLabelValues("failure").Inc()
	} else {
		ledgerdSnapshotsTotal.WithLabelValues("success").Inc()
	}
}

// RecordHealthProbe records one dependency probe result.
func RecordHealthProbe(probe string, success bool) {
	if success {
		ledgerdHealthProbesTotal.WithLabelValues(probe, "success").Inc()
	} else {
		ledgerdHealthProbesTotal.WithLabelValues(probe, "failure").Inc()
	}
}

// RecordQueueDepth sets the dispatcher queue depth gauge.
func RecordQueueDepth(n int) { ledgerdQueueDepth.Set(float64(n)) }
