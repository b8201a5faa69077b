// Package telemetry wires run tracing and run metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName = "qrlsim"
	TracerName  = "qrlsim/pipeline"
)

var ErrUnknownExporter = errors.New("unknown trace exporter")

// Tracing carries the tracer used by the pipeline and the cleanup for its
// provider. Shutdown flushes any batched spans and must be called.
type Tracing struct {
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// InitTracing builds a tracer for kind "none" or "stdout". Stdout spans are
// pretty printed to w, or os.Stdout when w is nil.
func InitTracing(ctx context.Context, kind string, w io.Writer) (Tracing, error) {
	if ctx == nil {
		return Tracing{}, errors.New("nil context")
	}

	switch kind {
	case "", "none":
		return Tracing{
			Tracer:   noop.NewTracerProvider().Tracer(TracerName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	case "stdout":
	default:
		return Tracing{}, fmt.Errorf("%w: %s", ErrUnknownExporter, kind)
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return Tracing{}, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", ServiceName),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return Tracing{Tracer: tp.Tracer(TracerName), Shutdown: tp.Shutdown}, nil
}
