package controller

import (
	"errors"
	"librarian/pkg/metrics"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WithMetrics returns a middleware that observes request latency into an
// http_request_duration_seconds histogram labelled by method, matched route
// and status code. Registering twice on the same registry reuses the histogram.
func WithMetrics(registerer prometheus.Registerer, routes RouteResolver, next http.Handler) (http.Handler, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of HTTP requests served by the API.",
		Buckets: metrics.DefaultBuckets,
	}, []string{"method", "route", "code"})

	if err := registerer.Register(duration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err //nolint: wrapcheck
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err //nolint: wrapcheck
		}
		duration = existing
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		duration.WithLabelValues(r.Method, RouteOf(routes, r), strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}), nil
}
