package api

import (
	"time"

	"github.com/ethanbaker/voice-assistant/internal/metrics"
	"github.com/gin-gonic/gin"
)

// requestMetrics records the status and latency of every request by route template
func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
