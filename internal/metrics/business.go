package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by every business metric series.
const (
	AttrDomain      = "domain"
	AttrOperation   = "operation"
	AttrStatus      = "status"
	AttrGroupRegion = "secrets_group_region"
	AttrGroupName   = "secrets_group_name"
)

// BusinessMetrics records the outcome and latency of engine operations.
type BusinessMetrics interface {
	// RecordOperation counts one operation, e.g. ("secrets_group", "create", "success").
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the latency of one operation in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
}

// GroupAttributes labels every series with the secrets group a process serves, so
// pushes from several groups stay apart.
func GroupAttributes(region, name string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrGroupRegion, region),
		attribute.String(AttrGroupName, name),
	}
}

type businessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	base       []attribute.KeyValue
}

// NewBusinessMetrics creates the "<namespace>_operations_total" counter and the
// "<namespace>_operation_duration_seconds" histogram on meterProvider. base is added to
// every recorded series.
func NewBusinessMetrics(
	meterProvider metric.MeterProvider,
	namespace string,
	base ...attribute.KeyValue,
) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Secrets group operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Latency of secrets group operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &businessMetrics{
		operations: operations,
		durations:  durations,
		base:       append([]attribute.KeyValue(nil), base...),
	}, nil
}

func (b *businessMetrics) attributes(domain, operation, status string) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(b.base)+3)
	attrs = append(attrs, b.base...)
	attrs = append(attrs,
		attribute.String(AttrDomain, domain),
		attribute.String(AttrOperation, operation),
		attribute.String(AttrStatus, status),
	)
	return metric.WithAttributes(attrs...)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, b.attributes(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), b.attributes(domain, operation, status))
}

// NoOpBusinessMetrics discards everything. The container uses it when METRICS_ENABLED
// is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a BusinessMetrics that records nothing.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}
