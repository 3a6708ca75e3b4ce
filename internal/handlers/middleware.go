package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dev.helix.memstore/internal/observability"
)

// Metrics returns middleware that records request counts and latency into
// the collector.
func Metrics(collector *observability.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		collector.RequestCount.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		collector.RequestDuration.WithLabelValues(c.Request.Method, endpoint, status).Observe(time.Since(start).Seconds())
	}
}
