package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "voxelscan.ai/internal/scan/worker"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := meter()
	count, err := m.Int64Counter(
		"voxelscan.pass.count",
		metric.WithDescription("Scan passes finished, by worker and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass counter: %w", err)
	}
	duration, err := m.Float64Histogram(
		"voxelscan.pass.duration",
		metric.WithDescription("Wall time of one scan pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass duration histogram: %w", err)
	}
	return &instruments{count: count, duration: duration}, nil
}

func (i *instruments) recordPass(worker, outcome string, d time.Duration) {
	if i == nil {
		return
	}
	ctx := context.Background()
	i.count.Add(ctx, 1, metric.WithAttributes(
		attribute.String("worker", worker),
		attribute.String("outcome", outcome),
	))
	i.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("worker", worker)))
}
