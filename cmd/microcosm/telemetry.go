package main

import (
	"context"
	stderrors "errors"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/microcosm/component"
	"github.com/kbukum/microcosm/observability"
)

// telemetry flushes the trace and metric pipelines on shutdown. It is
// registered first so it stops after the server and discovery.
type telemetry struct {
	tp *sdktrace.TracerProvider
	mp *observability.MeterProvider
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error { return nil }

func (t *telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return stderrors.Join(errs...)
}

func (t *telemetry) Health(ctx context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}
