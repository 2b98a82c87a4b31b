package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// Span names
const (
	SpanEmit = "courier.emit"
	SpanOnce = "courier.once"
)

// Attribute keys
const (
	AttrTopic   = "messaging.destination.name"
	AttrOutcome = "courier.once.outcome"
	AttrWaitID  = "courier.once.id"
)

// GetTracingConfig reads tracing configuration from the environment.
// COURIER_OTEL_ENABLED must be "true" to enable tracing;
// OTEL_EXPORTER_OTLP_ENDPOINT defaults to "localhost:4317"
func GetTracingConfig(serviceName string) TracingConfig {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	return TracingConfig{
		Enabled:     strings.ToLower(os.Getenv("COURIER_OTEL_ENABLED")) == "true",
		Endpoint:    endpoint,
		ServiceName: serviceName,
	}
}

// NoopTracer returns a tracer that records nothing
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("courier")
}

// InitTracing sets up OpenTelemetry tracing with an OTLP gRPC exporter.
// When disabled it returns a no-op tracer. The returned function flushes
// and shuts the provider down
func InitTracing(
	cfg TracingConfig, logger *slog.Logger,
) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.Enabled {
		logger.Debug("tracing disabled, using no-op tracer")
		return NoopTracer(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized", "endpoint", cfg.Endpoint)
	return tp.Tracer(cfg.ServiceName), tp.Shutdown, nil
}

// TopicAttr returns the topic attribute for a span
func TopicAttr(topic string) attribute.KeyValue {
	return attribute.String(AttrTopic, topic)
}

// SetSpanError records an error on the span and marks it failed
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
