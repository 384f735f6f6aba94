package tracing

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/observability"
)

// Session is the causal context of one inbound request. It is safe for use
// by the goroutines of a single request.
type Session struct {
	tracer    *Tracer
	ctx       context.Context
	span      trace.Span
	requestID string
	log       *logger.Logger

	mu    sync.Mutex
	open  []*Interaction
	ended bool
}

// Context returns the context carrying the session span.
func (s *Session) Context() context.Context { return s.ctx }

// RequestID returns the identifier this session logs under.
func (s *Session) RequestID() string { return s.requestID }

// Inject returns the propagation token for the innermost open interaction,
// or for the session itself when none is open, and the request id.
func (s *Session) Inject() (token, requestID string) {
	s.mu.Lock()
	ctx := s.ctx
	if n := len(s.open); n > 0 {
		ctx = s.open[n-1].ctx
	}
	s.mu.Unlock()
	return s.tracer.inject(ctx), s.requestID
}

// StartInteraction opens a client span for a call to dependency.
func (s *Session) StartInteraction(dependency string) *Interaction {
	ctx, span := s.tracer.tracer.Start(s.ctx, observability.SpanInteraction,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(observability.AttrDependency, dependency)),
	)
	i := &Interaction{
		session:    s,
		ctx:        ctx,
		span:       span,
		dependency: dependency,
		started:    time.Now(),
	}
	s.mu.Lock()
	s.open = append(s.open, i)
	s.mu.Unlock()
	return i
}

// FinishInteraction finishes the most recently started open interaction.
// It reports false when none is open.
func (s *Session) FinishInteraction() bool {
	if i := s.top(); i != nil {
		return i.Finish()
	}
	s.log.Warn("finish without an open interaction", logger.Fields(fieldRequestID, s.requestID))
	return false
}

// FailInteraction fails the most recently started open interaction.
// It reports false when none is open.
func (s *Session) FailInteraction(reason string) bool {
	if i := s.top(); i != nil {
		return i.Fail(reason)
	}
	s.log.Warn("fail without an open interaction", logger.Fields(fieldRequestID, s.requestID))
	return false
}

func (s *Session) top() *Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.open); n > 0 {
		return s.open[n-1]
	}
	return nil
}

func (s *Session) release(i *Interaction) {
	s.mu.Lock()
	s.open = slices.DeleteFunc(s.open, func(o *Interaction) bool { return o == i })
	s.mu.Unlock()
}

// Info logs msg under tag with the session's trace context.
func (s *Session) Info(tag, msg string) {
	s.log.Info(msg, logger.Fields(fieldTag, tag, fieldRequestID, s.requestID))
}

// Error logs msg under tag with the session's trace context.
func (s *Session) Error(tag, msg string) {
	s.log.Error(msg, logger.Fields(fieldTag, tag, fieldRequestID, s.requestID))
}

// RecordError marks the session span as failed.
func (s *Session) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End fails any interaction still open and ends the session span.
// Calls after the first do nothing.
func (s *Session) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	open := slices.Clone(s.open)
	s.mu.Unlock()

	for _, i := range open {
		i.Fail(endedReason)
	}
	s.span.End()
}
