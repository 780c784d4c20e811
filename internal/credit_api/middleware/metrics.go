package middleware

import (
	"strconv"
	"time"

	"github.com/farm-credit-ledger/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics counts requests per route template so farmer IDs never become
// label values. Unmatched routes share one label.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
