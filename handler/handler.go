package handler

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/fanout"
	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/observability"
	"github.com/kbukum/microcosm/tracing"
	"github.com/kbukum/microcosm/tree"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"

	fieldRequestID = "request_id"
)

// Func handles a request within the session Boundary joined for it.
type Func func(c *gin.Context, ssn *tracing.Session) error

// Handler serves the Result Tree routes of one node.
type Handler struct {
	orch    *fanout.Orchestrator
	tracer  *tracing.Tracer
	service string
	log     *logger.Logger
	metrics *observability.Metrics
}

// New creates a Handler. metrics may be nil.
func New(orch *fanout.Orchestrator, tracer *tracing.Tracer, service string, log *logger.Logger, metrics *observability.Metrics) *Handler {
	if log == nil {
		log = logger.Get("handler")
	}
	return &Handler{orch: orch, tracer: tracer, service: service, log: log, metrics: metrics}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.Boundary(h.JSON))
	r.GET("/text", h.Boundary(h.Text))
}

// JSON writes the Result Tree as JSON.
func (h *Handler) JSON(c *gin.Context, ssn *tracing.Session) error {
	result, err := h.orch.Handle(ssn)
	if err != nil {
		return err
	}
	body, err := tree.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result tree: %w", err)
	}
	c.Data(http.StatusOK, contentTypeJSON, body)
	return nil
}

// Text writes the Result Tree as indented text ending in one newline.
func (h *Handler) Text(c *gin.Context, ssn *tracing.Session) error {
	result, err := h.orch.Handle(ssn)
	if err != nil {
		return err
	}
	body := strings.TrimSpace(tree.Text(result)) + "\n"
	c.Data(http.StatusOK, contentTypeText, []byte(body))
	return nil
}

// Boundary wraps fn with session handling, panic recovery and request
// metrics. An error or panic from fn is logged against the request's
// session and answered with 500 and a plain-text diagnostic.
func (h *Handler) Boundary(fn Func) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		h.metrics.RecordRequestStart(ctx)

		var ssn *tracing.Session
		defer func() {
			if r := recover(); r != nil {
				err := errors.HandlerFailure(fmt.Errorf("panic: %v", r)).
					WithDetail("stack", string(debug.Stack()))
				h.fail(c, ssn, err)
			}
			if ssn != nil {
				ssn.End()
			}
			h.metrics.RecordRequestEnd(ctx, h.service, c.FullPath(), strconv.Itoa(c.Writer.Status()), time.Since(start))
		}()

		ssn = h.tracer.Join(ctx, c.GetHeader(tracing.Header))
		if err := fn(c, ssn); err != nil {
			h.fail(c, ssn, err)
		}
	}
}

func (h *Handler) fail(c *gin.Context, ssn *tracing.Session, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeHandlerFailure {
		appErr = errors.HandlerFailure(err)
	}
	diagnostic := diagnose(appErr)

	if ssn == nil {
		ssn = h.tracer.NewSession(c.Request.Context())
		defer ssn.End()
	}
	ssn.RecordError(appErr)
	ssn.Error(h.service, diagnostic)
	h.metrics.RecordError(c.Request.Context(), string(appErr.Code), "handler")

	c.Abort()
	if c.Writer.Written() {
		h.log.Warn("response already written, diagnostic dropped", logger.Fields(
			"path", c.Request.URL.Path,
			fieldRequestID, ssn.RequestID(),
		))
		return
	}
	if c.NegotiateFormat(gin.MIMEPlain, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusInternalServerError, appErr.ToResponse())
		return
	}
	c.Data(http.StatusInternalServerError, contentTypeText, []byte(diagnostic))
}

// diagnose renders err and, when recorded, the stack it was raised on.
func diagnose(err *errors.AppError) string {
	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteByte('\n')
	if stack, ok := err.Details["stack"].(string); ok && stack != "" {
		b.WriteString(stack)
		if !strings.HasSuffix(stack, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
