package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/observability"
)

// Routes left out of request metrics. The SSE stream stays open for the life
// of the client and would pin the in-flight gauge and the latency buckets.
var unmeteredRoutes = map[string]struct{}{
	"/metrics":        {},
	"/healthcheck":    {},
	"/api/sse/stream": {},
}

// routeLabel keeps label cardinality bounded: cart keys and restaurant ids
// stay as their :params, and anything gin did not match shares one label.
func routeLabel(fullPath string) (string, bool) {
	if fullPath == "" {
		return "unmatched", true
	}
	if _, skip := unmeteredRoutes[fullPath]; skip {
		return "", false
	}
	return fullPath, true
}

// Metrics records storefront request counts and latency by route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route, track := routeLabel(c.FullPath())
		if !track {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
