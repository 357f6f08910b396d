package caves

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "voxelscan.ai/internal/scan/caves"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	evaluated metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	evaluated, err := meter().Int64Counter(
		"voxelscan.volumes.evaluated",
		metric.WithDescription("Cave candidate volumes evaluated, by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating volume counter: %w", err)
	}
	return &instruments{evaluated: evaluated}, nil
}

func (i *instruments) recordVolume(r result) {
	if i == nil {
		return
	}
	i.evaluated.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", string(r))))
}
