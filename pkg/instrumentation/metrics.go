package instrumentation

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	engineMetrics     *EngineMetrics
	engineMetricsOnce sync.Once
)

// EngineMetrics holds the instruments recorded around every InstrumentedBook
// call: how long it took, how many fills it produced, how many calls were
// rejected, and how many orders are currently resting.
type EngineMetrics struct {
	opLatency     metric.Float64Histogram
	opsTotal      metric.Int64Counter
	rejectedTotal metric.Int64Counter
	fillsTotal    metric.Int64Counter
	liveOrders    metric.Int64UpDownCounter
}

// GetEngineMetrics returns the process-wide EngineMetrics singleton,
// lazily creating its instruments against the current meter.
func GetEngineMetrics() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(Meter())
	})
	return engineMetrics
}

func newEngineMetrics(meter metric.Meter) *EngineMetrics {
	m := &EngineMetrics{}

	if h, err := meter.Float64Histogram(
		"matching.operation.duration",
		metric.WithDescription("Latency of matching engine operations"),
		metric.WithUnit("s"),
	); err == nil {
		m.opLatency = h
	}

	if c, err := meter.Int64Counter(
		"matching.operations.total",
		metric.WithDescription("Total matching engine operations"),
		metric.WithUnit("{operation}"),
	); err == nil {
		m.opsTotal = c
	}

	if c, err := meter.Int64Counter(
		"matching.operations.rejected",
		metric.WithDescription("Operations rejected by input validation or aimed at an unknown order id"),
		metric.WithUnit("{operation}"),
	); err == nil {
		m.rejectedTotal = c
	}

	if c, err := meter.Int64Counter(
		"matching.fills.total",
		metric.WithDescription("Total fills produced by the matching engine"),
		metric.WithUnit("{fill}"),
	); err == nil {
		m.fillsTotal = c
	}

	if u, err := meter.Int64UpDownCounter(
		"matching.orders.live",
		metric.WithDescription("Orders currently resting in the book"),
		metric.WithUnit("{order}"),
	); err == nil {
		m.liveOrders = u
	}

	return m
}

// RecordOperation records the latency and outcome of one matching engine
// call.
func (m *EngineMetrics) RecordOperation(ctx context.Context, op string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("operation", op))
	if m.opLatency != nil {
		m.opLatency.Record(ctx, duration.Seconds(), attrs)
	}
	if m.opsTotal != nil {
		m.opsTotal.Add(ctx, 1, attrs)
	}
}

// RecordRejected increments the rejected-call counter for op.
func (m *EngineMetrics) RecordRejected(ctx context.Context, op string) {
	if m.rejectedTotal == nil {
		return
	}
	m.rejectedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// RecordFills increments the fills counter by count.
func (m *EngineMetrics) RecordFills(ctx context.Context, count int64) {
	if m.fillsTotal == nil || count == 0 {
		return
	}
	m.fillsTotal.Add(ctx, count)
}

// AdjustLiveOrders moves the live-order gauge by delta (negative on
// cancel/fill, positive on a new resting order).
func (m *EngineMetrics) AdjustLiveOrders(ctx context.Context, delta int64) {
	if m.liveOrders == nil || delta == 0 {
		return
	}
	m.liveOrders.Add(ctx, delta)
}

// ResetEngineMetricsForTesting clears the singleton so tests can rebuild it
// against a fresh meter provider.
func ResetEngineMetricsForTesting() {
	engineMetrics = nil
	engineMetricsOnce = sync.Once{}
}
