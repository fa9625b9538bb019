// Package telemetry wires the global OTel meter provider used by every
// other package's package-level instruments: instruments are created
// against the global Meter at package init, so they start forwarding real
// data the moment Init runs, and stay harmless no-ops if it never does.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Meter returns a named meter against whatever provider is currently
// registered globally (a no-op until Init runs).
func Meter(name string) metric.Meter { return otel.Meter(name) }

// Tracer returns a named tracer against the global trace provider.
func Tracer(name string) trace.Tracer { return otel.Tracer(name) }

// Init installs a periodic stdout metrics exporter as the global meter
// provider. The returned shutdown func flushes and stops the reader; callers
// should defer it. Safe to skip entirely for callers that don't want a
// metrics sink (the global no-op provider remains installed).
func Init(w io.Writer) (shutdown func(context.Context) error, err error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
