package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/observability"
)

const instrumentationName = "github.com/kbukum/microcosm/tracing"

// Tracer creates Sessions for one node.
type Tracer struct {
	service    string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	log        *logger.Logger
	metrics    *observability.Metrics
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithMetrics counts interaction outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tracer) { t.metrics = m }
}

// NewTracer creates a Tracer for service. A nil tp uses the global
// provider and a nil log uses the global logger.
func NewTracer(service string, tp trace.TracerProvider, log *logger.Logger, opts ...Option) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if log == nil {
		log = logger.Get("tracing")
	}
	t := &Tracer{
		service:    service,
		tracer:     tp.Tracer(instrumentationName),
		propagator: propagation.TraceContext{},
		log:        log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Service returns the service name sessions log under.
func (t *Tracer) Service() string { return t.service }

// Join starts the session for an inbound request. An absent or malformed
// header starts a new root trace. Join never fails.
func (t *Tracer) Join(ctx context.Context, header string) *Session {
	if header != "" {
		ctx = t.propagator.Extract(ctx, propagation.MapCarrier{traceparentKey: header})
	}
	return t.start(ctx, observability.SpanRequest, trace.WithSpanKind(trace.SpanKindServer))
}

// NewSession starts a root session that is not tied to an inbound request,
// for startup lines and for failures that happen before a request was joined.
func (t *Tracer) NewSession(ctx context.Context) *Session {
	return t.start(ctx, spanSession, trace.WithNewRoot(), trace.WithSpanKind(trace.SpanKindInternal))
}

func (t *Tracer) start(ctx context.Context, name string, opts ...trace.SpanStartOption) *Session {
	opts = append(opts, trace.WithAttributes(attribute.String(observability.AttrServiceName, t.service)))
	ctx, span := t.tracer.Start(ctx, name, opts...)
	sc := span.SpanContext()
	requestID := sc.TraceID().String() + ":" + sc.SpanID().String()
	span.SetAttributes(attribute.String(observability.AttrRequestID, requestID))

	return &Session{
		tracer:    t,
		ctx:       ctx,
		span:      span,
		requestID: requestID,
		log:       t.log.WithSpan(ctx),
	}
}

func (t *Tracer) inject(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	t.propagator.Inject(ctx, carrier)
	return carrier.Get(traceparentKey)
}
