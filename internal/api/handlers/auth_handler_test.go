package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *services.AuthService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	cfg := config.Config{JWTSecret: "test-secret", Abuse: config.DefaultAbuseConfig()}
	abuse := services.NewAbuseService(db, cfg.Abuse, nil)
	authService := services.NewAuthService(db, cfg, abuse)
	audit := services.NewAuditService(db, nil)
	h := NewAuthHandler(authService, audit, false)
	admins := NewAdminHandler(authService, audit)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	protected := r.Group("/", asAdmin(1, models.RoleSuperAdmin))
	protected.GET("/auth/me", h.Me)
	protected.POST("/auth/change-password", h.ChangePassword)
	protected.GET("/admins", admins.List)
	protected.POST("/admins", admins.Create)
	return r, authService, db
}

func TestAuthHandler_Login(t *testing.T) {
	r, authService, _ := setupAuthRouter(t)
	_, err := authService.CreateAdmin("ops@example.com", "password123", "Ops", models.RoleSuperAdmin)
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "OPS@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string       `json:"token"`
		Admin models.Admin `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ops@example.com", resp.Admin.Email)
	assert.NotContains(t, w.Body.String(), "password_hash")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	claims, err := authService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
}

func TestAuthHandler_LoginFailuresFeedAbuseDetector(t *testing.T) {
	r, authService, db := setupAuthRouter(t)
	_, err := authService.CreateAdmin("ops@example.com", "password123", "Ops", models.RoleAdmin)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		w := doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "ops@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	var attempts int64
	db.Model(&models.FailedLoginAttempt{}).Where("ip_address = ?", "198.51.100.20").Count(&attempts)
	assert.Equal(t, int64(5), attempts)

	var alert models.AbuseAlert
	require.NoError(t, db.Where("alert_type = ?", models.AlertFailedLoginFlood).First(&alert).Error)
	assert.Equal(t, "198.51.100.20", alert.EntityID)

	w := doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_MeAndChangePassword(t *testing.T) {
	r, authService, db := setupAuthRouter(t)
	_, err := authService.CreateAdmin("ops@example.com", "password123", "Ops", models.RoleSuperAdmin)
	require.NoError(t, err)

	w := doJSON(r, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@example.com")

	w = doJSON(r, http.MethodPost, "/auth/change-password", gin.H{"old_password": "wrong", "new_password": "newpassword1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/change-password", gin.H{"old_password": "password123", "new_password": "newpassword1"})
	require.Equal(t, http.StatusOK, w.Code)

	_, _, err = authService.Login("ops@example.com", "newpassword1", "127.0.0.1", "test")
	assert.NoError(t, err)

	var entry models.AdminActivityLog
	require.NoError(t, db.Where("action = ?", services.ActionPasswordChanged).First(&entry).Error)
	assert.Equal(t, "1", entry.TargetID)
}

func TestAuthHandler_Logout(t *testing.T) {
	r, _, _ := setupAuthRouter(t)
	w := doJSON(r, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestAdminHandler_Create(t *testing.T) {
	r, _, db := setupAuthRouter(t)

	body := gin.H{"email": "support@example.com", "password": "password123", "name": "Support", "role": models.RoleSupport}
	w := doJSON(r, http.MethodPost, "/admins", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/admins", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/admins", gin.H{"email": "x@example.com", "password": "password123", "name": "X", "role": "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/admins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var admins []models.Admin
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &admins))
	assert.Len(t, admins, 1)

	var entry models.AdminActivityLog
	require.NoError(t, db.Where("action = ?", services.ActionAdminCreated).First(&entry).Error)
	assert.Equal(t, models.SeverityCritical, entry.Severity)
}
