package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/microcosm/logger"
)

// MeterProvider is the SDK meter provider plus, for the prometheus
// exporter, the registry its scrape handler serves.
type MeterProvider struct {
	*sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// Handler returns the prometheus scrape handler, or nil when metrics are
// not exported through prometheus.
func (mp *MeterProvider) Handler() http.Handler {
	if mp == nil || mp.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{})
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*MeterProvider, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	out := &MeterProvider{}

	switch config.Exporter {
	case ExporterPrometheus:
		reg := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
		out.registry = reg
	case ExporterOTLP:
		exOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			exOpts = append(exOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.Interval)),
		))
	}

	out.MeterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(out.MeterProvider)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"exporter", config.Exporter,
		"interval", config.Interval.String(),
	))

	return out, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the node's metric instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requestTotal        metric.Int64Counter
	requestDuration     metric.Float64Histogram
	requestActive       metric.Int64UpDownCounter
	interactionTotal    metric.Int64Counter
	interactionDuration metric.Float64Histogram
	errorTotal          metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("microcosm.request.total",
		metric.WithDescription("Total number of inbound requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("microcosm.request.duration",
		metric.WithDescription("Duration of inbound requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("microcosm.request.active",
		metric.WithDescription("Number of inbound requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.active gauge: %w", err)
	}

	interactionTotal, err := meter.Int64Counter("microcosm.interaction.total",
		metric.WithDescription("Downstream interactions by dependency and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating interaction.total counter: %w", err)
	}

	interactionDuration, err := meter.Float64Histogram("microcosm.interaction.duration",
		metric.WithDescription("Duration of downstream interactions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating interaction.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("microcosm.error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestActive:       requestActive,
		interactionTotal:    interactionTotal,
		interactionDuration: interactionDuration,
		errorTotal:          errorTotal,
	}, nil
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, service, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("route", route),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("route", route),
	))
}

// RecordInteraction records one finished or failed downstream interaction.
func (m *Metrics) RecordInteraction(ctx context.Context, dependency, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.interactionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("outcome", outcome),
	))
	m.interactionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("dependency", dependency),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
