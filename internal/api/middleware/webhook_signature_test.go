package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/security"
	"github.com/voicedesk/backoffice/internal/services"
)

func webhookRouter(t *testing.T) *gin.Engine {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.WebhookSecuritySetting{
		ProviderName:     "vapi",
		WebhookEndpoint:  "events",
		Secret:           "vapi-secret",
		Algorithm:        security.AlgorithmHMACSHA256,
		Enabled:          true,
		RequireSignature: true,
	}).Error)
	svc := services.NewWebhookSecurityService(db, config.DefaultWebhookConfig())

	r := gin.New()
	r.POST("/webhooks/:provider/:endpoint", WebhookSignature(svc), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestWebhookSignature_RestoresBody(t *testing.T) {
	r := webhookRouter(t)

	payload := `{"type":"end-of-call-report"}`
	mac := hmac.New(sha256.New, []byte("vapi-secret"))
	mac.Write([]byte(payload))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi/events", strings.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.String())
}

func TestWebhookSignature_Rejects(t *testing.T) {
	r := webhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi/events", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Webhook signature required"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/webhooks/vapi/events", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer deadbeef")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid webhook signature"}`, w.Body.String())
}

func TestWebhookSignature_UnconfiguredEndpointProceeds(t *testing.T) {
	r := webhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/retell/events", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestWebhookSignature_BodyTooLarge(t *testing.T) {
	r := webhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi/events", strings.NewReader(strings.Repeat("a", MaxWebhookBody+1)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPublicURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://internal:8080/api/v1/webhooks/twilio/voice?a=1", nil)
	assert.Equal(t, "http://internal:8080/api/v1/webhooks/twilio/voice?a=1", publicURL(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "hooks.example.com")
	assert.Equal(t, "https://hooks.example.com/api/v1/webhooks/twilio/voice?a=1", publicURL(req))

	req.Header.Set("X-Forwarded-Url", "https://edge.example.com/twilio")
	assert.Equal(t, "https://edge.example.com/twilio", publicURL(req))
}
