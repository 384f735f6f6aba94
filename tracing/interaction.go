package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/observability"
)

// Interaction brackets one outbound dependency call. Exactly one of Finish
// or Fail takes effect; later calls are ignored.
type Interaction struct {
	session    *Session
	ctx        context.Context
	span       trace.Span
	dependency string
	started    time.Time
	once       sync.Once
}

// Context returns the context carrying the interaction span. Outbound
// calls should derive their deadline from it.
func (i *Interaction) Context() context.Context { return i.ctx }

// Dependency returns the name the interaction was started for.
func (i *Interaction) Dependency() string { return i.dependency }

// Token returns the propagation token for the downstream call.
func (i *Interaction) Token() string {
	return i.session.tracer.inject(i.ctx)
}

// Finish records a successful call. It reports whether this call closed
// the interaction.
func (i *Interaction) Finish() bool {
	return i.close(OutcomeFinished, "")
}

// Fail records a failed call with reason. Recording is best effort: a
// failure to record is logged and otherwise ignored.
func (i *Interaction) Fail(reason string) bool {
	return i.close(OutcomeFailed, reason)
}

func (i *Interaction) close(outcome, reason string) bool {
	closed := false
	i.once.Do(func() {
		closed = true
		i.session.release(i)
		if outcome == OutcomeFailed {
			i.recordFailure(reason)
		}
		i.span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
		i.span.End()
		i.session.tracer.metrics.RecordInteraction(i.ctx, i.dependency, outcome, time.Since(i.started))
	})
	return closed
}

func (i *Interaction) recordFailure(reason string) {
	defer func() {
		if r := recover(); r != nil {
			i.session.log.Warn("failed to record interaction failure", logger.Fields(
				observability.AttrDependency, i.dependency,
				logger.FieldError, fmt.Sprint(r),
			))
		}
	}()
	i.span.AddEvent(eventFailed, trace.WithAttributes(attribute.String(observability.AttrErrorMessage, reason)))
	i.span.SetStatus(codes.Error, reason)
}
