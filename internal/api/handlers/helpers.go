package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/api/middleware"
	"github.com/voicedesk/backoffice/internal/services"
)

// parseID reads a positive numeric route parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// auditContext fills the request-derived fields of an audit entry.
func auditContext(c *gin.Context, targetType, targetID string) services.AuditDetails {
	return services.AuditDetails{
		TargetType: targetType,
		TargetID:   targetID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
}

func currentAdmin(c *gin.Context) uint {
	return middleware.AdminID(c)
}

func queryLimit(c *gin.Context, fallback int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return fallback
	}
	if n > 500 {
		return 500
	}
	return n
}
