package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/userhub/userhub/util/metrics"
)

// MetricsMiddleware counts requests per matched route template, so /get_userbyId/:id is a
// single series. Unmatched requests are labelled "unmatched".
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
