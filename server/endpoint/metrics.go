package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Metrics serves the given exposition handler, typically the Prometheus
// handler of the node's meter provider.
func Metrics(h http.Handler) gin.HandlerFunc {
	return gin.WrapH(h)
}
