package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

type WebhookSecurityHandler struct {
	service *services.WebhookSecurityService
	audit   *services.AuditService
}

func NewWebhookSecurityHandler(service *services.WebhookSecurityService, audit *services.AuditService) *WebhookSecurityHandler {
	return &WebhookSecurityHandler{service: service, audit: audit}
}

// webhookSettingView is a setting as shown to admins; the secret never leaves
// the server except from RotateSecret.
type webhookSettingView struct {
	models.WebhookSecuritySetting
	SecretSet bool `json:"has_secret"`
}

func viewOf(s models.WebhookSecuritySetting) webhookSettingView {
	return webhookSettingView{WebhookSecuritySetting: s, SecretSet: s.HasSecret()}
}

type WebhookSettingRequest struct {
	ProviderName       string `json:"provider_name" binding:"required"`
	WebhookEndpoint    string `json:"webhook_endpoint" binding:"required"`
	Secret             string `json:"secret"`
	Algorithm          string `json:"algorithm"`
	Enabled            *bool  `json:"enabled"`
	RequireSignature   *bool  `json:"require_signature"`
	AllowedIPs         string `json:"allowed_ips"`
	RateLimitPerMinute *int   `json:"rate_limit_per_minute"`
}

func (h *WebhookSecurityHandler) List(c *gin.Context) {
	settings, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list webhook settings"})
		return
	}
	views := make([]webhookSettingView, 0, len(settings))
	for _, s := range settings {
		views = append(views, viewOf(s))
	}
	c.JSON(http.StatusOK, views)
}

func (h *WebhookSecurityHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	setting, err := h.service.Get(id)
	if err != nil {
		writeWebhookSettingError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(*setting))
}

// Upsert creates or updates the setting for provider_name/webhook_endpoint.
// Omitted booleans default to enabled and signed; an omitted rate limit
// defaults to 60 per minute.
func (h *WebhookSecurityHandler) Upsert(c *gin.Context) {
	var req WebhookSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setting := &models.WebhookSecuritySetting{
		ProviderName:       req.ProviderName,
		WebhookEndpoint:    req.WebhookEndpoint,
		Secret:             req.Secret,
		Algorithm:          req.Algorithm,
		Enabled:            req.Enabled == nil || *req.Enabled,
		RequireSignature:   req.RequireSignature == nil || *req.RequireSignature,
		AllowedIPs:         req.AllowedIPs,
		RateLimitPerMinute: 60,
	}
	if req.RateLimitPerMinute != nil {
		setting.RateLimitPerMinute = *req.RateLimitPerMinute
	}

	saved, err := h.service.Upsert(setting)
	if err != nil {
		writeWebhookSettingError(c, err)
		return
	}

	d := auditContext(c, "webhook_security_setting", strconv.FormatUint(uint64(saved.ID), 10))
	d.NewValues = viewOf(*saved)
	h.audit.Log(currentAdmin(c), services.ActionWebhookSettingSaved, d)
	c.JSON(http.StatusOK, viewOf(*saved))
}

func (h *WebhookSecurityHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	removed, err := h.service.Delete(id)
	if err != nil {
		writeWebhookSettingError(c, err)
		return
	}

	d := auditContext(c, "webhook_security_setting", c.Param("id"))
	d.OldValues = viewOf(*removed)
	h.audit.Log(currentAdmin(c), services.ActionWebhookSettingDeleted, d)
	c.JSON(http.StatusOK, gin.H{"message": "Webhook setting deleted"})
}

func (h *WebhookSecurityHandler) RotateSecret(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	secret, err := h.service.RotateSecret(id)
	if err != nil {
		writeWebhookSettingError(c, err)
		return
	}

	h.audit.Log(currentAdmin(c), services.ActionWebhookSecretRotated, auditContext(c, "webhook_security_setting", c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"secret": secret, "rotated_at": time.Now().UTC()})
}

func (h *WebhookSecurityHandler) Logs(c *gin.Context) {
	logs, err := h.service.ListLogs(services.WebhookLogFilter{
		Provider: c.Query("provider"),
		Endpoint: c.Query("endpoint"),
		Limit:    queryLimit(c, 100),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list webhook logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func writeWebhookSettingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidWebhookSetting), errors.Is(err, services.ErrInvalidAllowlistEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrWebhookSettingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook setting update failed"})
	}
}
