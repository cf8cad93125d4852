package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/security"
	"github.com/voicedesk/backoffice/internal/services"
)

func TestIPAllowlist(t *testing.T) {
	db := openTestDB(t)
	allowlist := services.NewAllowlistService(db)
	require.NoError(t, allowlist.AddForAdmin(&models.AdminIPAllowlist{AdminID: 5, IPAddress: "192.0.2.0/28", IsActive: true}))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(AdminIDKey, uint(5))
		c.Next()
	})
	r.Use(IPAllowlist(allowlist))
	r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.RemoteAddr = "192.0.2.9:51000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.RemoteAddr = "192.0.2.77:51000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"`+security.ReasonNotInAdminList+`"}`, w.Body.String())
}
