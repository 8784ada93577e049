package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"atsfit/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the OpenTelemetry tracer and meter providers
type Manager struct {
	config         config.ObservabilityConfig
	version        string
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewManager sets up tracing and metrics. A disabled configuration yields a
// manager whose metrics are nil and whose tracer is a no-op.
func NewManager(cfg config.ObservabilityConfig, version string) (*Manager, error) {
	m := &Manager{config: cfg, version: version}
	if !cfg.Enabled {
		return m, nil
	}

	res, err := m.newResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := m.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := m.initMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

func (m *Manager) serviceVersion() string {
	if m.config.ServiceVersion != "" && m.config.ServiceVersion != "dev" {
		return m.config.ServiceVersion
	}
	return m.version
}

func (m *Manager) newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.config.ServiceName),
			semconv.ServiceVersion(m.serviceVersion()),
			attribute.String("service.instance.id", m.config.ServiceInstance),
		),
	)
}

func (m *Manager) initTracing(res *resource.Resource) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case m.config.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if m.config.Console.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.config.OTLP.Enabled:
		exporter, err = m.newOTLPTraceExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(m.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics(res *resource.Resource) error {
	readers, err := m.metricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	metrics, err := NewMetrics(mp.Meter(m.config.ServiceName), m.config.CustomMetrics)
	if err != nil {
		return err
	}
	m.metrics = metrics
	return nil
}

// metricReaders builds one reader per enabled exporter, with a manual reader
// as fallback so instruments always have a provider
func (m *Manager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := m.collectionInterval()

	if m.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.config.OTLP.Enabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(m.config.OTLP.Endpoint)}
		if m.config.OTLP.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(m.config.OTLP.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(m.config.OTLP.Headers))
		}
		exporter, err := otlpmetrichttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.config.Prometheus.Enabled {
		reader, server, err := StartPrometheus(m.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to start Prometheus exporter: %w", err)
		}
		readers = append(readers, reader)
		m.shutdownFuncs = append(m.shutdownFuncs, server.Shutdown)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func (m *Manager) newOTLPTraceExporter() (trace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(m.config.OTLP.Endpoint)}
	if m.config.OTLP.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(m.config.OTLP.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(m.config.OTLP.Headers))
	}
	return otlptracehttp.New(context.Background(), opts...)
}

func (m *Manager) collectionInterval() time.Duration {
	if m.config.Metrics.CollectionInterval > 0 {
		return m.config.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// Metrics returns the application instruments, nil when observability is off.
// Every Metrics method tolerates a nil receiver.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if m == nil || !m.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.config.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if m == nil || !m.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops every exporter, returning the first error
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var firstErr error
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}
