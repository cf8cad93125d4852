package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicedesk/backoffice/internal/logger"
)

// panicRequest serves one panicking request and returns the response and
// everything logged while handling it.
func panicRequest(t *testing.T, verbose bool, header http.Header) (*httptest.ResponseRecorder, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger.Init(verbose, buf)
	t.Cleanup(func() { logger.Init(false, nil) })

	router := gin.New()
	router.Use(RequestID(), Recovery(verbose))
	router.POST("/api/v1/webhooks/:provider/:endpoint", func(c *gin.Context) {
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/twilio/calls", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, buf.String()
}

func TestRecovery_RespondsWithRequestID(t *testing.T) {
	w, _ := panicRequest(t, false, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), body["request_id"])
	assert.NotEmpty(t, body["request_id"])
}

func TestRecovery_Verbosity(t *testing.T) {
	_, brief := panicRequest(t, false, nil)
	assert.Contains(t, brief, "PANIC: handler exploded")
	assert.NotContains(t, brief, "Stacktrace:")

	_, verbose := panicRequest(t, true, nil)
	assert.Contains(t, verbose, "PANIC: handler exploded")
	assert.Contains(t, verbose, "Stacktrace:")
	assert.Contains(t, verbose, "request_id")
	assert.Contains(t, verbose, "/api/v1/webhooks/twilio/calls")
}

func TestRecovery_RedactsCredentials(t *testing.T) {
	_, out := panicRequest(t, true, http.Header{
		"Authorization":      {"Bearer admin-jwt"},
		"X-Twilio-Signature": {"provider-signature"},
		"User-Agent":         {"TwilioProxy/1.1"},
	})

	assert.NotContains(t, out, "admin-jwt")
	assert.NotContains(t, out, "provider-signature")
	assert.Contains(t, out, "<redacted>")
	assert.Contains(t, out, "TwilioProxy/1.1")
}
