package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/services"
	"github.com/voicedesk/backoffice/internal/util"
)

// IPAllowlist enforces the global and per-admin allowlists for an
// authenticated admin. It must run after AuthMiddleware.
func IPAllowlist(allowlist *services.AllowlistService) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := allowlist.Check(AdminID(c), c.ClientIP())
		if !d.Allowed {
			GetRequestLogger(c).WithFields(map[string]interface{}{
				"admin_id": AdminID(c),
				"client":   util.SanitizeForLog(c.ClientIP()),
				"reason":   d.Reason,
			}).Warn("admin request blocked by IP allowlist")
			c.AbortWithStatusJSON(d.Status, gin.H{"error": d.Reason})
			return
		}
		c.Next()
	}
}
