package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request with the request_id. Probe and
// scrape endpoints are logged at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := GetRequestLogger(c).WithFields(map[string]interface{}{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(c.Request.URL.Path),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if v, ok := c.Get(AdminIDKey); ok {
			entry = entry.WithField("admin_id", v)
		}

		if quietPath(c.Request.URL.Path) {
			entry.Debug("handled request")
			return
		}
		entry.Info("handled request")
	}
}

func quietPath(p string) bool {
	return p == "/metrics" || strings.HasSuffix(p, "/health")
}
