package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/jobsync/internal/metrics"
)

// Metrics records the status and latency of every request against its route
// template, so /jobs/:id/flags is one series regardless of id.
func Metrics(m *metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RecordHTTPRequest(endpoint, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
