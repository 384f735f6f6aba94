package handler

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/fanout"
	"github.com/kbukum/microcosm/httpclient"
	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/node"
	"github.com/kbukum/microcosm/observability"
	"github.com/kbukum/microcosm/tracing"
	"github.com/kbukum/microcosm/tree"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type resolverFunc func(ctx context.Context, service, version string) (node.Identity, error)

func (f resolverFunc) Resolve(ctx context.Context, service, version string) (node.Identity, error) {
	return f(ctx, service, version)
}

type env struct {
	engine   *gin.Engine
	handler  *Handler
	logs     *bytes.Buffer
	recorder *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
}

func newEnv(t *testing.T, id node.Identity, deps []node.Dependency, resolver fanout.Resolver) *env {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observability.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, id.Service, &buf)
	tracer := tracing.NewTracer(id.Service, tp, log, tracing.WithMetrics(metrics))

	client, err := httpclient.New(httpclient.Config{Timeout: 500 * time.Millisecond})
	require.NoError(t, err)
	orch := fanout.New(id, deps, resolver, fanout.NewHTTPCaller(client, nil), fanout.WithLogger(logger.Nop()))

	h := New(orch, tracer, id.Service, log, metrics)
	engine := gin.New()
	h.Register(engine)
	return &env{engine: engine, handler: h, logs: &buf, recorder: sr, reader: reader}
}

func (e *env) get(path string, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(tracing.Header, header)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func noResolver() fanout.Resolver {
	return resolverFunc(func(_ context.Context, service, version string) (node.Identity, error) {
		return node.Identity{}, errors.ResolutionFailed(service, version, stderrors.New("unknown"))
	})
}

func TestScenarioA(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())

	rec := e.get("/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))

	got, err := tree.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "A[1.0, http://h:p]", got.NodeID)
	assert.NotEmpty(t, got.RequestID)
	assert.Empty(t, got.Requests)
	assert.JSONEq(t,
		`{"node_id":"A[1.0, http://h:p]","request_id":"`+got.RequestID+`","requests":[]}`,
		rec.Body.String())
}

func TestScenarioB(t *testing.T) {
	unreachable := node.Identity{Service: "A", Version: "1.0", Address: "http://127.0.0.1:1"}
	resolver := resolverFunc(func(context.Context, string, string) (node.Identity, error) {
		return unreachable, nil
	})
	id := node.Identity{Service: "B", Version: "1.0", Address: "http://h2:p2"}
	e := newEnv(t, id, []node.Dependency{{Service: "A", Version: "1.0"}}, resolver)

	rec := e.get("/text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeText, rec.Header().Get("Content-Type"))
	assert.Equal(t, "B[1.0, http://h2:p2]\n  ERROR(A[1.0, http://127.0.0.1:1])\n", rec.Body.String())
}

func TestNestedTreeFromDownstream(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"node_id":"A[1.0, a]","request_id":"ra","requests":[]}`))
	}))
	defer a.Close()
	resolver := resolverFunc(func(context.Context, string, string) (node.Identity, error) {
		return node.Identity{Service: "A", Version: "1.0", Address: a.URL}, nil
	})
	id := node.Identity{Service: "B", Version: "1.0", Address: "http://b"}
	e := newEnv(t, id, []node.Dependency{{Service: "A", Version: "1.0"}, {Service: "A", Version: "1.0"}}, resolver)

	rec := e.get("/text", "")
	assert.Equal(t, "B[1.0, http://b]\n  A[1.0, a]\n    \n  A[1.0, a]\n", rec.Body.String())

	rec = e.get("/", "")
	got, err := tree.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, got.Requests, 2)
	assert.Equal(t, "ra", got.Requests[0].Node.RequestID)
}

func TestJoinsInboundContext(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())

	traceID := "4bf92f3577b34da6a3ce929d0e0e4736"
	rec := e.get("/", "00-"+traceID+"-00f067aa0ba902b7-01")
	got, err := tree.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.RequestID, traceID+":"), got.RequestID)

	rec = e.get("/", "garbage")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBoundaryError(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())
	e.engine.GET("/fail", e.handler.Boundary(func(*gin.Context, *tracing.Session) error {
		return stderrors.New("cannot compose response")
	}))

	rec := e.get("/fail", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, contentTypeText, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "HANDLER_FAILURE")
	assert.Contains(t, rec.Body.String(), "cannot compose response")
	assert.Contains(t, e.logs.String(), `"level":"error"`)
	assert.Contains(t, e.logs.String(), "cannot compose response")
}

func TestBoundaryErrorAsJSON(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())
	e.engine.GET("/fail", e.handler.Boundary(func(*gin.Context, *tracing.Session) error {
		return stderrors.New("cannot compose response")
	}))

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrCodeHandlerFailure, body.Error.Code)
	assert.False(t, body.Error.Retryable)
}

func TestTextSiblingErrorLeaves(t *testing.T) {
	id := node.Identity{Service: "B", Version: "1.0", Address: "http://b"}
	resolver := resolverFunc(func(_ context.Context, service, _ string) (node.Identity, error) {
		return node.Identity{Service: service, Version: "1.0", Address: "http://127.0.0.1:1"}, nil
	})
	e := newEnv(t, id, []node.Dependency{{Service: "A", Version: "1.0"}, {Service: "C", Version: "1.0"}}, resolver)

	rec := e.get("/text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"B[1.0, http://b]\n  ERROR(A[1.0, http://127.0.0.1:1])\n  \n  ERROR(C[1.0, http://127.0.0.1:1])\n",
		rec.Body.String())
}

func TestBoundaryPanicKeepsServing(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())
	e.engine.GET("/panic", e.handler.Boundary(func(*gin.Context, *tracing.Session) error {
		panic("exploded")
	}))

	rec := e.get("/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "panic: exploded")
	assert.Contains(t, rec.Body.String(), "goroutine")

	rec = e.get("/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var ended int
	for _, s := range e.recorder.Ended() {
		if s.Name() == observability.SpanRequest {
			ended++
		}
	}
	assert.Equal(t, 2, ended, "the panicking request's session is still ended")
}

func TestBoundaryAfterPartialWrite(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())
	e.engine.GET("/partial", e.handler.Boundary(func(c *gin.Context, _ *tracing.Session) error {
		c.String(http.StatusAccepted, "partial")
		return stderrors.New("late failure")
	}))

	rec := e.get("/partial", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
	assert.Contains(t, e.logs.String(), "diagnostic dropped")
}

func TestRequestMetrics(t *testing.T) {
	id := node.Identity{Service: "A", Version: "1.0", Address: "http://h:p"}
	e := newEnv(t, id, nil, noResolver())
	e.get("/", "")
	e.get("/text", "")

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "microcosm.request.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
}

func TestDiagnoseWithoutStack(t *testing.T) {
	out := diagnose(errors.HandlerFailure(stderrors.New("x")))
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "x")
}
