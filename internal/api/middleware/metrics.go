package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"pisqre/backend/pkg/metrics"
)

// Metrics 记录请求耗时与并发数，路由取注册模板以控制标签基数
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.InFlight()
		start := time.Now()

		c.Next()

		done()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
