package xtimer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xtimer"

	metricRunsTotal   = "xtimer.runs.total"
	metricDropsTotal  = "xtimer.ticks.dropped.total"
	metricRunDuration = "xtimer.run.duration"

	statusOK    = "ok"
	statusError = "error"
	statusPanic = "panic"
)

// otelMetrics 基于 OpenTelemetry 的指标记录器。
// 仅在通过 [WithMeterProvider] 启用时创建，未启用时不产生任何开销。
type otelMetrics struct {
	name     string
	runs     metric.Int64Counter
	drops    metric.Int64Counter
	duration metric.Float64Histogram
}

// newOTelMetrics 创建指标记录器。
func newOTelMetrics(provider metric.MeterProvider, name string) (*otelMetrics, error) {
	meter := provider.Meter(defaultInstrumentationName)

	runs, err := meter.Int64Counter(
		metricRunsTotal,
		metric.WithDescription("total handler runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimer: create runs counter failed: %w", err)
	}

	drops, err := meter.Int64Counter(
		metricDropsTotal,
		metric.WithDescription("ticks dropped by the reentrancy gate"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimer: create drops counter failed: %w", err)
	}

	duration, err := meter.Float64Histogram(
		metricRunDuration,
		metric.WithDescription("handler run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimer: create duration histogram failed: %w", err)
	}

	return &otelMetrics{
		name:     name,
		runs:     runs,
		drops:    drops,
		duration: duration,
	}, nil
}

// recordRun 记录一次回调执行及其耗时。
func (m *otelMetrics) recordRun(ctx context.Context, d time.Duration, err error) {
	status := statusOK
	if err != nil {
		status = statusError
		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			status = statusPanic
		}
	}

	attrs := metric.WithAttributes(
		attribute.String("timer", m.name),
		attribute.String("status", status),
	)
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// recordDrop 记录一次被可重入保护丢弃的 tick。
func (m *otelMetrics) recordDrop(ctx context.Context) {
	m.drops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("timer", m.name),
	))
}
