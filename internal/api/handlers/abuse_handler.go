package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

// AbuseHandler exposes abuse alerts and the manual sweep trigger.
type AbuseHandler struct {
	service *services.AbuseService
	audit   *services.AuditService
}

func NewAbuseHandler(service *services.AbuseService, audit *services.AuditService) *AbuseHandler {
	return &AbuseHandler{service: service, audit: audit}
}

func (h *AbuseHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.service.ListAlerts(services.AlertFilter{
		Status:    c.Query("status"),
		AlertType: c.Query("type"),
		Limit:     queryLimit(c, 100),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AbuseHandler) GetAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	alert, err := h.service.GetAlert(id)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *AbuseHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alert stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type ResolveAlertRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *AbuseHandler) Resolve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == "" {
		req.Status = models.AlertStatusResolved
	}

	alert, err := h.service.ResolveAlert(id, currentAdmin(c), req.Status, req.Notes)
	if err != nil {
		writeAlertError(c, err)
		return
	}

	d := auditContext(c, "abuse_alert", c.Param("id"))
	d.Details = map[string]interface{}{
		"alert_type": alert.AlertType,
		"entity_id":  alert.EntityID,
		"status":     alert.Status,
	}
	h.audit.Log(currentAdmin(c), services.ActionAlertResolved, d)
	c.JSON(http.StatusOK, alert)
}

// Sweep runs every detector once and reports what it raised.
func (h *AbuseHandler) Sweep(c *gin.Context) {
	result, err := h.service.RunOnce()
	h.audit.Log(currentAdmin(c), services.ActionAbuseSweepTriggered, auditContext(c, "abuse_sweep", ""))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep finished with errors", "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func writeAlertError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAlertStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlertAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Alert operation failed"})
	}
}
