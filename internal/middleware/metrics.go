package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/service"
)

// Metrics records request duration and count per route template. Scrapes of /metrics and
// unmatched paths are folded so that probing cannot grow label cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		switch route {
		case "/metrics":
			return
		case "":
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
