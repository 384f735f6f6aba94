package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/microcosm/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

type healthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	CheckedAt  string                 `json:"checked_at"`
	Components []component.Health     `json:"components"`
}

// Health reports the node's component health. Discovery uses it as the
// registration check, so any unhealthy component answers 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := healthReport{
			Service:    serviceName,
			CheckedAt:  time.Now().UTC().Format(time.RFC3339),
			Components: []component.Health{},
		}
		if checker != nil {
			report.Components = checker(c.Request.Context())
		}
		report.Status = overall(report.Components)

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

// overall is the worst status among hs; unhealthy beats degraded.
func overall(hs []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, h := range hs {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}
