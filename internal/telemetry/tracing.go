// Package telemetry installs the OpenTelemetry tracer provider and the
// W3C propagators used to carry crawl traces into Pub/Sub messages.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/JakeFAU/moviegraph-crawler"

// InitTracing registers a global tracer provider for serviceName. Spans
// are sampled but not exported until an exporter is configured. The
// returned func flushes and stops the provider.
func InitTracing(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// StartRun opens the span covering one crawl run.
func StartRun(ctx context.Context, crawlID, seedURL string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "crawl.run", trace.WithAttributes(
		attribute.String("crawl.id", crawlID),
		attribute.String("crawl.seed", seedURL),
	))
}
