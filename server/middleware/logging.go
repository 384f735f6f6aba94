package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/tracing"
)

// HeaderContext is the trace propagation header between nodes.
const HeaderContext = tracing.Header

// RequestLogger logs one line per request with method, path, status,
// body size and duration. The propagation header is logged when present so
// a line can be tied to the caller's trace. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbeEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, duration.Milliseconds(),
				"bytes", sw.bytes,
			)
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields[logger.FieldRequestID] = id
			}
			if ctx := r.Header.Get(HeaderContext); ctx != "" {
				fields["context"] = ctx
			}

			logByStatus(log, fields, sw.status)
		})
	}
}

func isProbeEndpoint(path string) bool {
	switch path {
	case "/health", "/metrics", "/version":
		return true
	}
	return false
}

// logByStatus logs request fields at the appropriate level based on HTTP status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
