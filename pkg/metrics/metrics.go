// Package metrics owns the OpenTelemetry meter provider and the circulation
// instruments recorded by the loan ledger. Instruments are exported through
// the Prometheus registry so the HTTP server can serve them on /metrics.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const meterName = "librarian"

// Operation names used as the "operation" attribute.
const (
	OperationCheckout = "checkout"
	OperationReturn   = "return"
)

// NewMeterProvider creates a meter provider whose readings are exported to the
// given Prometheus registerer.
func NewMeterProvider(registerer prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// Circulation records checkout and return outcomes. A nil *Circulation is
// valid and records nothing.
type Circulation struct {
	completed metric.Int64Counter
	rejected  metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewCirculation registers the circulation instruments on mp.
func NewCirculation(mp metric.MeterProvider) (*Circulation, error) {
	meter := mp.Meter(meterName)

	completed, err := meter.Int64Counter("library.circulation.completed",
		metric.WithDescription("Checkouts and returns that were committed"))
	if err != nil {
		return nil, fmt.Errorf("could not create completed counter: %w", err)
	}

	rejected, err := meter.Int64Counter("library.circulation.rejected",
		metric.WithDescription("Checkouts and returns that were refused or failed to persist"))
	if err != nil {
		return nil, fmt.Errorf("could not create rejected counter: %w", err)
	}

	duration, err := meter.Float64Histogram("library.circulation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent in a checkout or return, persistence included"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	return &Circulation{completed: completed, rejected: rejected, duration: duration}, nil
}

// Completed counts a committed operation and its duration.
func (c *Circulation) Completed(ctx context.Context, operation string, took time.Duration) {
	if c == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	c.completed.Add(ctx, 1, attrs)
	c.duration.Record(ctx, took.Seconds(), attrs)
}

// Rejected counts an operation that ended with an error of the given kind.
func (c *Circulation) Rejected(ctx context.Context, operation, kind string) {
	if c == nil {
		return
	}
	c.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", kind),
	))
}
