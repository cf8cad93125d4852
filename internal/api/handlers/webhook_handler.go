package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

// callsEndpoint is the webhook endpoint that reports completed calls.
const callsEndpoint = "calls"

// WebhookHandler receives provider webhooks that already passed
// middleware.WebhookSignature.
type WebhookHandler struct {
	abuse *services.AbuseService
}

func NewWebhookHandler(abuse *services.AbuseService) *WebhookHandler {
	return &WebhookHandler{abuse: abuse}
}

type CallEvent struct {
	CallID          string `json:"call_id"`
	UserID          string `json:"user_id" binding:"required"`
	AgentID         string `json:"agent_id"`
	Direction       string `json:"direction"`
	Status          string `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	provider, endpoint := c.Param("provider"), c.Param("endpoint")

	if endpoint == callsEndpoint {
		var ev CallEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		call := &models.CallLog{
			CallID:          ev.CallID,
			UserID:          ev.UserID,
			AgentID:         ev.AgentID,
			Direction:       ev.Direction,
			Status:          ev.Status,
			DurationSeconds: ev.DurationSeconds,
		}
		if err := h.abuse.RecordCall(call); err != nil {
			logger.Component("webhooks").WithError(err).Error("failed to record call")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record call"})
			return
		}
	}

	if _, err := h.abuse.DetectWebhookFlood(provider, endpoint); err != nil {
		logger.Component("webhooks").WithError(err).
			WithField("provider", sanitizeForLog(provider)).
			Warn("webhook flood check failed")
	}

	c.JSON(http.StatusAccepted, gin.H{"received": true})
}
