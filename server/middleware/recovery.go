package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/microcosm/logger"
)

// Recovery returns middleware that recovers from panics, logs the stack,
// and answers 500 with a plain-text body. Routes with their own error
// boundary never reach it.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered", logger.Fields(
						logger.FieldError, fmt.Sprintf("%v", err),
						"stack", string(debug.Stack()),
						"path", r.URL.Path,
						"method", r.Method,
					))
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
