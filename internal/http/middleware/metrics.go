package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bigocean-backend/internal/http/response"
	"github.com/yungbote/bigocean-backend/internal/observability"
)

// Metrics records request latency per matched route and counts error
// responses by the machine code the handler rendered.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			// unmatched paths share one label to keep cardinality bounded
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(status), time.Since(start))
		if status >= 400 {
			code := c.GetString(response.ErrorCodeKey)
			if code == "" {
				code = strconv.Itoa(status)
			}
			m.IncAPIError(route, code)
		}
	}
}
