package handlers

import (
	"encoding/json"
	"fmt"
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

func setupAbuseRouter(t *testing.T) (*gin.Engine, *services.AbuseService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	abuse := services.NewAbuseService(db, config.DefaultAbuseConfig(), nil)
	h := NewAbuseHandler(abuse, services.NewAuditService(db, nil))

	r := gin.New()
	g := r.Group("/api/v1", asAdmin(7, models.RoleAdmin))
	g.GET("/abuse/alerts", h.ListAlerts)
	g.GET("/abuse/alerts/:id", h.GetAlert)
	g.POST("/abuse/alerts/:id/resolve", h.Resolve)
	g.GET("/abuse/stats", h.Stats)
	g.POST("/abuse/sweep", h.Sweep)
	return r, abuse, db
}

func floodLogins(t *testing.T, abuse *services.AbuseService, ip string) {
	t.Helper()
	for i := 0; i < 5; i++ {
		require.NoError(t, abuse.RecordFailedLogin(&models.FailedLoginAttempt{
			Email:     "x@example.com",
			IPAddress: ip,
			Reason:    "wrong password",
		}))
	}
}

func TestAbuseHandler_ListAndGet(t *testing.T) {
	r, abuse, _ := setupAbuseRouter(t)
	floodLogins(t, abuse, "203.0.113.7")

	w := doJSON(r, http.MethodGet, "/api/v1/abuse/alerts?status=open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.AbuseAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertFailedLoginFlood, alerts[0].AlertType)
	assert.Equal(t, "203.0.113.7", alerts[0].EntityID)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/abuse/alerts/%d", alerts[0].ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/abuse/alerts/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/abuse/alerts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAbuseHandler_Resolve(t *testing.T) {
	r, abuse, db := setupAbuseRouter(t)
	floodLogins(t, abuse, "203.0.113.8")

	var alert models.AbuseAlert
	require.NoError(t, db.First(&alert).Error)
	path := fmt.Sprintf("/api/v1/abuse/alerts/%d/resolve", alert.ID)

	w := doJSON(r, http.MethodPost, path, gin.H{"status": "ignored"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, path, gin.H{"status": models.AlertStatusFalsePositive, "notes": "load test"})
	require.Equal(t, http.StatusOK, w.Code)
	var resolved models.AbuseAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, models.AlertStatusFalsePositive, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, uint(7), *resolved.ResolvedBy)

	w = doJSON(r, http.MethodPost, path, gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)

	var logs []models.AdminActivityLog
	require.NoError(t, db.Where("action = ?", services.ActionAlertResolved).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, uint(7), logs[0].AdminID)
	assert.Equal(t, models.SeverityWarning, logs[0].Severity)
}

func TestAbuseHandler_StatsAndSweep(t *testing.T) {
	r, abuse, db := setupAbuseRouter(t)
	floodLogins(t, abuse, "203.0.113.9")

	w := doJSON(r, http.MethodPost, "/api/v1/abuse/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.SweepResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.IPsChecked)
	assert.Equal(t, 0, result.AlertsRaised)

	w = doJSON(r, http.MethodGet, "/api/v1/abuse/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.AlertStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Open)

	var count int64
	db.Model(&models.AdminActivityLog{}).Where("action = ?", services.ActionAbuseSweepTriggered).Count(&count)
	assert.Equal(t, int64(1), count)
}
