package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/statekit/observability"
)

// Metrics returns a Gin middleware recording request count, duration and
// in-flight requests, labelled by route template rather than raw path.
func Metrics(m *observability.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
