// Package observability wires OpenTelemetry tracing and metrics for
// the plan service. Every service operation runs inside TrackOperation,
// which emits one span plus RED metrics (rate, errors, duration).
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "forge.plan-service"

// Config configures OTLP export.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string        // gRPC endpoint, e.g. "localhost:4317"
	SampleRate     float64       // 0.0 to 1.0
	BatchTimeout   time.Duration // span batch flush interval
	Enabled        bool
	Insecure       bool // plaintext connection, dev only
}

// DefaultConfig returns development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "forge",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
		Insecure:       false,
	}
}

// Provider owns the trace and metric pipelines. A disabled provider is
// inert: every recording call is a safe no-op.
type Provider struct {
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	tracer  trace.Tracer

	requests  metric.Int64Counter
	errors    metric.Int64Counter
	durations metric.Float64Histogram
	active    metric.Int64UpDownCounter
}

// New builds the provider and registers it as the global OTel provider
// pair. With Enabled false no exporters are created and nothing is
// registered globally.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Provider{}
	if !cfg.Enabled {
		slog.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}
	if p.traces, err = buildTraces(ctx, cfg, res); err != nil {
		return nil, err
	}
	if p.metrics, err = buildMetrics(ctx, cfg, res); err != nil {
		return nil, err
	}

	otel.SetTracerProvider(p.traces)
	otel.SetMeterProvider(p.metrics)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracer = p.traces.Tracer(scopeName,
		trace.WithInstrumentationVersion(cfg.ServiceVersion))
	if err := p.buildInstruments(cfg.ServiceVersion); err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	slog.InfoContext(ctx, "observability initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.OTLPEndpoint,
		"sample_rate", cfg.SampleRate)
	return p, nil
}

func buildResource(cfg *Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}
	return res, nil
}

func buildTraces(ctx context.Context, cfg *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(cfg.BatchTimeout)),
	), nil
}

func buildMetrics(ctx context.Context, cfg *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second))),
	), nil
}

func (p *Provider) buildInstruments(version string) error {
	meter := p.metrics.Meter(scopeName, metric.WithInstrumentationVersion(version))

	var err error
	if p.requests, err = meter.Int64Counter("forge.requests.total",
		metric.WithDescription("Operations started"),
		metric.WithUnit("{request}")); err != nil {
		return err
	}
	if p.errors, err = meter.Int64Counter("forge.errors.total",
		metric.WithDescription("Operations that returned an error"),
		metric.WithUnit("{error}")); err != nil {
		return err
	}
	if p.durations, err = meter.Float64Histogram("forge.request.duration",
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120)); err != nil {
		return err
	}
	p.active, err = meter.Int64UpDownCounter("forge.operations.active",
		metric.WithDescription("Operations in flight"),
		metric.WithUnit("{operation}"))
	return err
}

// StartSpan starts a span on the provider's tracer.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if p.tracer == nil {
		return noop(ctx)
	}
	return p.tracer.Start(ctx, name, opts...)
}

func noop(ctx context.Context) (context.Context, trace.Span) {
	return tracenoop.NewTracerProvider().Tracer(scopeName).Start(ctx, "")
}

// TrackOperation opens a span and counts the operation in flight. The
// returned func records duration and the error outcome; call it exactly
// once when the operation finishes.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := p.StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))

	set := metric.WithAttributes(append(attrs, attribute.String("operation", name))...)
	if p.requests != nil {
		p.requests.Add(ctx, 1, set)
	}
	if p.active != nil {
		p.active.Add(ctx, 1, set)
	}

	return ctx, func(err error) {
		if p.active != nil {
			p.active.Add(ctx, -1, set)
		}
		if p.durations != nil {
			p.durations.Record(ctx, time.Since(start).Seconds(), set)
		}
		if err != nil {
			span.RecordError(err)
			if p.errors != nil {
				p.errors.Add(ctx, 1, set)
			}
		}
		span.End()
	}
}

// Shutdown flushes and stops both pipelines.
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
