package fanout

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/microcosm/discovery"
	"github.com/kbukum/microcosm/discovery/static"
	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/httpclient"
	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/node"
	"github.com/kbukum/microcosm/observability"
	"github.com/kbukum/microcosm/resilience"
	"github.com/kbukum/microcosm/tracing"
	"github.com/kbukum/microcosm/tree"
)

var self = node.NewIdentity("B", "1.0", "h2", 5001)

// mapResolver resolves service names to fixed identities.
type mapResolver map[string]node.Identity

func (m mapResolver) Resolve(_ context.Context, service, version string) (node.Identity, error) {
	id, ok := m[service]
	if !ok {
		return node.Identity{}, errors.ResolutionFailed(service, version, discovery.ErrServiceNotFound)
	}
	return id, nil
}

// scriptedCaller answers per address after an optional delay. Addresses
// listed in hang block until the call's context is done.
type scriptedCaller struct {
	delay  map[string]time.Duration
	hang   map[string]bool
	panics map[string]bool

	mu     sync.Mutex
	tokens []string
}

func (c *scriptedCaller) Call(ctx context.Context, address, token string) (*tree.Tree, error) {
	c.mu.Lock()
	c.tokens = append(c.tokens, token)
	c.mu.Unlock()

	if c.panics[address] {
		panic("boom")
	}
	if c.hang[address] {
		<-ctx.Done()
		return nil, errors.DownstreamFailure(address, errors.Timeout("GET "+address))
	}
	select {
	case <-time.After(c.delay[address]):
	case <-ctx.Done():
		return nil, errors.DownstreamFailure(address, ctx.Err())
	}
	return tree.New("node@"+address, "rid@"+address, 0), nil
}

type harness struct {
	tracer   *tracing.Tracer
	recorder *tracetest.SpanRecorder
	logs     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "B", &buf)
	return &harness{tracer: tracing.NewTracer("B", tp, log), recorder: sr, logs: &buf}
}

func (h *harness) interactions() (finished, failed int) {
	for _, s := range h.recorder.Ended() {
		if s.Name() != observability.SpanInteraction {
			continue
		}
		if s.Status().Code == codes.Error {
			failed++
		} else {
			finished++
		}
	}
	return finished, failed
}

func identities(names ...string) mapResolver {
	m := mapResolver{}
	for i, n := range names {
		m[n] = node.NewIdentity(n, "1.0", "h-"+strings.ToLower(n), 6000+i)
	}
	return m
}

func deps(names ...string) []node.Dependency {
	out := make([]node.Dependency, len(names))
	for i, n := range names {
		out[i] = node.Dependency{Service: n, Version: "1.0"}
	}
	return out
}

func TestFoundationalNode(t *testing.T) {
	h := newHarness(t)
	o := New(self, nil, mapResolver{}, &scriptedCaller{}, WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	assert.Equal(t, "B[1.0, http://h2:5001]", result.NodeID)
	assert.Equal(t, ssn.RequestID(), result.RequestID)
	require.NotNil(t, result.Requests)
	assert.Empty(t, result.Requests)
	assert.Contains(t, h.logs.String(), "--> request             (id: "+ssn.RequestID()+")")
	assert.Contains(t, h.logs.String(), "<-- response            (id: "+ssn.RequestID()+")")
}

func TestOrderFollowsDeclarationUnderConcurrency(t *testing.T) {
	h := newHarness(t)
	res := identities("C", "D", "E", "F")
	caller := &scriptedCaller{delay: map[string]time.Duration{
		res["C"].Address: 60 * time.Millisecond,
		res["D"].Address: 40 * time.Millisecond,
		res["E"].Address: 20 * time.Millisecond,
		res["F"].Address: 0,
	}}
	o := New(self, deps("C", "D", "E", "F"), res, caller, WithConcurrency(4), WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	require.Len(t, result.Requests, 4)
	for i, name := range []string{"C", "D", "E", "F"} {
		require.False(t, result.Requests[i].IsLeaf(), "entry %d", i)
		assert.Equal(t, "node@"+res[name].Address, result.Requests[i].Node.NodeID)
	}
	finished, failed := h.interactions()
	assert.Equal(t, 4, finished)
	assert.Equal(t, 0, failed)
}

func TestTimeoutIsIsolated(t *testing.T) {
	h := newHarness(t)
	res := identities("C", "D", "E")
	caller := &scriptedCaller{hang: map[string]bool{res["D"].Address: true}}
	o := New(self, deps("C", "D", "E"), res, caller,
		WithTimeout(50*time.Millisecond), WithConcurrency(3), WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	require.Len(t, result.Requests, 3)
	assert.False(t, result.Requests[0].IsLeaf())
	assert.Equal(t, "ERROR("+res["D"].ID()+")", result.Requests[1].Leaf)
	assert.False(t, result.Requests[2].IsLeaf())

	finished, failed := h.interactions()
	assert.Equal(t, 2, finished)
	assert.Equal(t, 1, failed)
}

func TestSequentialTimeoutDoesNotStarveLaterCalls(t *testing.T) {
	h := newHarness(t)
	res := identities("C", "D")
	caller := &scriptedCaller{hang: map[string]bool{res["C"].Address: true}}
	o := New(self, deps("C", "D"), res, caller,
		WithTimeout(30*time.Millisecond), WithConcurrency(1), WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	assert.True(t, result.Requests[0].IsError())
	assert.Equal(t, "node@"+res["D"].Address, result.Requests[1].Node.NodeID)
}

func TestResolutionFailureUsesDescriptor(t *testing.T) {
	h := newHarness(t)
	res := identities("C")
	o := New(self, deps("Z", "C"), res, &scriptedCaller{}, WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	assert.Equal(t, "ERROR(Z[1.0])", result.Requests[0].Leaf)
	assert.False(t, result.Requests[1].IsLeaf())
	_, failed := h.interactions()
	assert.Equal(t, 1, failed)
}

func TestEachCallCarriesItsInteractionToken(t *testing.T) {
	h := newHarness(t)
	res := identities("C", "D")
	caller := &scriptedCaller{}
	o := New(self, deps("C", "D"), res, caller, WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	_, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	require.Len(t, caller.tokens, 2)
	assert.NotEqual(t, caller.tokens[0], caller.tokens[1])
	for _, tok := range caller.tokens {
		assert.True(t, strings.HasPrefix(tok, "00-"), tok)
	}
}

func TestSuccessLogsDownstreamLines(t *testing.T) {
	h := newHarness(t)
	res := identities("C")
	o := New(self, deps("C"), res, &scriptedCaller{}, WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	_, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	c := res["C"]
	assert.Contains(t, h.logs.String(),
		fmt.Sprintf(tracing.DownstreamRequestSent, c.Service, c.Version, c.Address))
	assert.Contains(t, h.logs.String(),
		fmt.Sprintf(tracing.DownstreamResponseReceived, "rid@"+c.Address))
}

func TestPanicBecomesHandlerFailure(t *testing.T) {
	h := newHarness(t)
	res := identities("C", "D")
	caller := &scriptedCaller{panics: map[string]bool{res["D"].Address: true}}
	o := New(self, deps("C", "D"), res, caller, WithLogger(logger.Nop()))

	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeHandlerFailure))
	_, failed := h.interactions()
	assert.Equal(t, 1, failed, "the panicking call is failed when the session ends")
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	o := New(self, deps("C"), mapResolver{}, &scriptedCaller{}, WithTimeout(0), WithConcurrency(0), WithLogger(nil))
	assert.Equal(t, DefaultTimeout, o.timeout)
	assert.Equal(t, DefaultConcurrency, o.concurrency)
	assert.Equal(t, deps("C"), o.Dependencies())
	assert.Equal(t, self, o.Identity())
}

func newHTTPClient(t *testing.T, timeout time.Duration) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.Config{Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestHTTPCaller(t *testing.T) {
	var gotHeader string
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(tracing.Header)
		_, _ = w.Write([]byte(`{"node_id":"A[1.0, x]","request_id":"r","requests":["ERROR(C[1.0])"]}`))
	}))
	defer ok.Close()

	caller := NewHTTPCaller(newHTTPClient(t, time.Second), nil)
	result, err := caller.Call(context.Background(), ok.URL, "00-abc-def-01")
	require.NoError(t, err)
	assert.Equal(t, "00-abc-def-01", gotHeader)
	assert.Equal(t, "A[1.0, x]", result.NodeID)
	assert.Equal(t, "ERROR(C[1.0])", result.Requests[0].Leaf)
}

func TestHTTPCallerFailures(t *testing.T) {
	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer status.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer garbage.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	caller := NewHTTPCaller(newHTTPClient(t, 100*time.Millisecond), nil)
	tests := []struct {
		name  string
		url   string
		check func(error) bool
	}{
		{"status", status.URL, func(err error) bool { return errors.HasCode(err, errors.ErrCodeServiceUnavailable) }},
		{"malformed", garbage.URL, func(err error) bool { return stderrors.Is(err, tree.ErrMalformed) }},
		{"timeout", slow.URL, func(err error) bool { return errors.HasCode(err, errors.ErrCodeTimeout) }},
		{"connection", closedURL, func(err error) bool { return errors.HasCode(err, errors.ErrCodeConnectionFailed) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := caller.Call(context.Background(), tc.url, "")
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeDownstreamFailure), "got %v", err)
			assert.True(t, tc.check(err), "got %v", err)
		})
	}
}

func TestHTTPCallerBreakerOpensPerAddress(t *testing.T) {
	var hits int
	var mu sync.Mutex
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer failing.Close()

	cfg := resilience.DefaultCircuitBreakerConfig("")
	cfg.MaxFailures = 2
	breakers := resilience.NewBreakers(cfg)
	caller := NewHTTPCaller(newHTTPClient(t, time.Second), breakers)

	for range 4 {
		_, err := caller.Call(context.Background(), failing.URL, "")
		require.Error(t, err)
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, resilience.StateOpen, breakers.Get(failing.URL).State())

	_, err := caller.Call(context.Background(), failing.URL, "")
	assert.True(t, stderrors.Is(err, resilience.ErrCircuitOpen))
}

func TestDiscoveryResolver(t *testing.T) {
	provider := static.NewProvider([]discovery.StaticEndpoint{
		{Name: "A", Version: "1.2", Address: "10.0.0.1", Port: 5000},
	})
	client := discovery.NewClient(provider, discovery.ClientConfig{}, logger.Nop())
	r := ClientResolver(client)

	id, err := r.Resolve(context.Background(), "A", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "A[1.2, http://10.0.0.1:5000]", id.ID())

	_, err = r.Resolve(context.Background(), "A", "2.0")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeResolutionFailed))
	assert.True(t, stderrors.Is(err, discovery.ErrNoCompatibleVersion))

	_, err = NewDiscoveryResolver(staticSource{}).Resolve(context.Background(), "A", "1.0")
	assert.True(t, errors.HasCode(err, errors.ErrCodeResolutionFailed))
}

func TestEndToEndThroughHTTP(t *testing.T) {
	h := newHarness(t)
	var gotHeader string
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(tracing.Header)
		_, _ = w.Write([]byte(`{"node_id":"A[1.0, a]","request_id":"ra","requests":[]}`))
	}))
	defer a.Close()
	res := mapResolver{"A": {Service: "A", Version: "1.0", Address: a.URL}, "C": node.NewIdentity("C", "1.0", "127.0.0.1", 1)}

	o := New(self, deps("A", "C"), res, NewHTTPCaller(newHTTPClient(t, time.Second), nil), WithLogger(logger.Nop()))
	ssn := h.tracer.Join(context.Background(), "")
	result, err := o.Handle(ssn)
	ssn.End()
	require.NoError(t, err)

	assert.Equal(t, "B[1.0, http://h2:5001]\n  A[1.0, a]\n  ERROR(C[1.0, http://127.0.0.1:1])\n", tree.Text(result))
	assert.NotEmpty(t, gotHeader)
}
