package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is the transport-level request id header. It is separate
// from the trace request id a node reports in its result tree.
const HeaderRequestID = "X-Request-Id"

// RequestID ensures every request carries an X-Request-Id, on both the
// request seen by handlers and the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r)
		})
	}
}
