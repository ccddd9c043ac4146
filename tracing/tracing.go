// Package tracing wires OpenTelemetry into routecache: server spans for
// every gRPC call, and a shared [Config] from which the lookup service takes
// its own tracer. Tracing is off unless the server is built with
// WithOpenTelemetry.
package tracing

import (
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer handed out by [Config.Tracer].
const InstrumentationName = "github.com/fieldline/routecache"

// Config selects the tracer provider and propagator. A nil *Config, or nil
// fields, fall back to the otel globals.
type Config struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
}

// Tracer returns the routecache tracer.
func (c *Config) Tracer() trace.Tracer {
	var tp trace.TracerProvider
	if c != nil {
		tp = c.TracerProvider
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}

func (c *Config) propagators() propagation.TextMapPropagator {
	if c != nil && c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

// NewStdoutProvider builds a tracer provider that pretty-prints finished spans
// to w. It backs `routecache serve --trace-stdout`. Callers must Shutdown the
// provider to flush the batcher.
func NewStdoutProvider(w io.Writer, serviceName string) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}
