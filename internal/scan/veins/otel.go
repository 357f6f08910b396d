package veins

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"voxelscan.ai/internal/scan/oracle"
)

const instrumentationName = "voxelscan.ai/internal/scan/veins"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	found metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	found, err := meter().Int64Counter(
		"voxelscan.veins.found",
		metric.WithDescription("New veins seeded, by material"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vein counter: %w", err)
	}
	return &instruments{found: found}, nil
}

func (i *instruments) recordVein(m oracle.Material) {
	if i == nil {
		return
	}
	i.found.Add(context.Background(), 1, metric.WithAttributes(attribute.String("material", string(m))))
}
