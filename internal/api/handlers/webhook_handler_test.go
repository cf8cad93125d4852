package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

func TestWebhookHandler_Receive(t *testing.T) {
	db := openTestDB(t)
	abuse := services.NewAbuseService(db, config.DefaultAbuseConfig(), nil)
	h := NewWebhookHandler(abuse)

	r := gin.New()
	r.POST("/webhooks/:provider/:endpoint", h.Receive)

	t.Run("call event is recorded", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/webhooks/twilio/calls", gin.H{
			"call_id":          "CA123",
			"user_id":          "user-1",
			"agent_id":         "agent-9",
			"direction":        "outbound",
			"status":           "completed",
			"duration_seconds": 42,
		})
		assert.Equal(t, http.StatusAccepted, w.Code)

		var call models.CallLog
		require.NoError(t, db.Where("call_id = ?", "CA123").First(&call).Error)
		assert.Equal(t, "user-1", call.UserID)
		assert.Equal(t, 42, call.DurationSeconds)
		assert.False(t, call.CreatedAt.IsZero())
	})

	t.Run("call event without user is rejected", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/webhooks/twilio/calls", gin.H{"call_id": "CA124"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other endpoints are acknowledged", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/webhooks/stripe/payments", gin.H{"type": "charge.succeeded"})
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestWebhookHandler_FloodRaisesAlert(t *testing.T) {
	db := openTestDB(t)
	cfg := config.DefaultAbuseConfig()
	cfg.WebhookFloodThreshold = 3
	h := NewWebhookHandler(services.NewAbuseService(db, cfg, nil))

	r := gin.New()
	r.POST("/webhooks/:provider/:endpoint", h.Receive)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.WebhookRequestLog{Provider: "stripe", Endpoint: "payments", CreatedAt: time.Now().UTC()}).Error)
	}
	w := doJSON(r, http.MethodPost, "/webhooks/stripe/payments", gin.H{})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var alert models.AbuseAlert
	require.NoError(t, db.Where("alert_type = ?", models.AlertWebhookFlood).First(&alert).Error)
	assert.Equal(t, "stripe:payments", alert.EntityID)
}
