package middleware

import (
	"strconv"
	"time"

	"github.com/GoPolymarket/lottogate/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records latency and status per route template so label
// cardinality stays bounded (/v1/rounds/:id/excess, not one series per round).
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.LatencyBucket.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.Requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
