package fanout

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/node"
	"github.com/kbukum/microcosm/tracing"
	"github.com/kbukum/microcosm/tree"
)

const (
	// DefaultTimeout bounds one dependency call, resolution included.
	DefaultTimeout = 3 * time.Second
	// DefaultConcurrency is how many dependency calls run at once.
	DefaultConcurrency = 4
)

// Orchestrator answers requests for one node. Its identity and declaration
// are fixed at construction and it is safe for concurrent use.
type Orchestrator struct {
	identity    node.Identity
	deps        []node.Dependency
	resolver    Resolver
	caller      Caller
	timeout     time.Duration
	concurrency int
	log         *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each dependency call, resolution included.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithConcurrency bounds how many dependency calls run at once. 1 calls
// dependencies one after another in declaration order.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger for call failures.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// New creates an Orchestrator for identity calling deps.
func New(identity node.Identity, deps []node.Dependency, resolver Resolver, caller Caller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		identity:    identity,
		deps:        slices.Clone(deps),
		resolver:    resolver,
		caller:      caller,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
		log:         logger.Get("fanout"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Identity returns the node identity.
func (o *Orchestrator) Identity() node.Identity { return o.identity }

// Dependencies returns a copy of the declaration.
func (o *Orchestrator) Dependencies() []node.Dependency { return slices.Clone(o.deps) }

// Handle builds the Result Tree for the request carried by ssn. Requests
// has one entry per declared dependency, in declaration order. Dependency
// failures become error leaves; the returned error is only set when a call
// panicked, and is a HANDLER_FAILURE.
func (o *Orchestrator) Handle(ssn *tracing.Session) (*tree.Tree, error) {
	_, requestID := ssn.Inject()
	tag := o.identity.Service
	ssn.Info(tag, fmt.Sprintf(tracing.RequestReceived, requestID))

	result := tree.New(o.identity.ID(), requestID, len(o.deps))

	// Siblings share no context: one call's deadline never cancels another.
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, dep := range o.deps {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.HandlerFailure(fmt.Errorf("calling %s: %v", dep, r)).
						WithDetail("stack", string(debug.Stack()))
				}
			}()
			result.Set(i, o.call(ssn, dep))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ssn.Info(tag, fmt.Sprintf(tracing.ResponseSent, requestID))
	return result, nil
}

func (o *Orchestrator) call(ssn *tracing.Session, dep node.Dependency) tree.Entry {
	ix := ssn.StartInteraction(dep.Descriptor())
	ctx, cancel := context.WithTimeout(ix.Context(), o.timeout)
	defer cancel()

	target, err := o.resolver.Resolve(ctx, dep.Service, dep.Version)
	if err != nil {
		o.failed(ix, dep.Descriptor(), err)
		ix.Fail("error resolving dependency: " + err.Error())
		return tree.ErrorLeaf(dep.Descriptor())
	}

	downstream, err := o.caller.Call(ctx, target.Address, ix.Token())
	if err != nil {
		o.failed(ix, target.ID(), err)
		ix.Fail("error getting downstream data: " + err.Error())
		return tree.ErrorLeaf(target.ID())
	}

	tag := o.identity.Service
	ssn.Info(tag, fmt.Sprintf(tracing.DownstreamRequestSent, target.Service, target.Version, target.Address))
	ssn.Info(tag, fmt.Sprintf(tracing.DownstreamResponseReceived, downstream.RequestID))
	ix.Finish()
	return tree.NodeEntry(downstream)
}

func (o *Orchestrator) failed(ix *tracing.Interaction, target string, err error) {
	fields := logger.Fields("dependency", target, logger.FieldError, err.Error())
	if appErr, ok := errors.AsAppError(err); ok {
		fields["code"] = string(appErr.Code)
	}
	o.log.WithSpan(ix.Context()).Warn("dependency call failed", fields)
}
