package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/services"
)

type ActivityLogHandler struct {
	audit *services.AuditService
}

func NewActivityLogHandler(audit *services.AuditService) *ActivityLogHandler {
	return &ActivityLogHandler{audit: audit}
}

func (h *ActivityLogHandler) List(c *gin.Context) {
	filter := services.ActivityFilter{
		Action:   c.Query("action"),
		Severity: c.Query("severity"),
		Limit:    queryLimit(c, 100),
	}
	if v := c.Query("admin_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin_id"})
			return
		}
		filter.AdminID = uint(id)
	}

	entries, err := h.audit.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list activity logs"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
