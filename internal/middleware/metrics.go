package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

// Metrics records request totals and latency by route template. Unmatched
// routes share one label.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		m.RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		m.RequestTotal.WithLabelValues(method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			kind := "client"
			if c.Writer.Status() >= 500 {
				kind = "server"
			}
			m.ErrorTotal.WithLabelValues(method, path, kind).Inc()
		}
	}
}
