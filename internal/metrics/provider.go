// Package metrics wires OpenTelemetry metric instruments for the three
// space-lt binaries (client, host, orchestrator) through a Prometheus
// exporter bridge, so every process can expose a /metrics endpoint with the
// same instrumentation shape.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitProvider installs a Prometheus-backed MeterProvider as the global OTel
// meter provider and returns a shutdown func to flush on exit.
func InitProvider() (shutdown func(context.Context) error, err error) {
	exp, err := promexporter.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
