package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/metrics"
	"github.com/voicedesk/backoffice/internal/models"
)

// Audited admin actions.
const (
	ActionAdminCreated          = "admin_created"
	ActionAdminDeleted          = "admin_deleted"
	ActionAdminRoleChanged      = "admin_role_changed"
	ActionUserDeleted           = "user_deleted"
	ActionUserSuspended         = "user_suspended"
	ActionCreditsAdjusted       = "credits_adjusted"
	ActionGlobalAllowlistAdded  = "global_ip_allowlist_added"
	ActionGlobalAllowlistRemove = "global_ip_allowlist_removed"
	ActionAdminAllowlistAdded   = "admin_ip_allowlist_added"
	ActionAdminAllowlistRemove  = "admin_ip_allowlist_removed"
	ActionWebhookSettingSaved   = "webhook_setting_saved"
	ActionWebhookSettingDeleted = "webhook_setting_deleted"
	ActionWebhookSecretRotated  = "webhook_secret_rotated"
	ActionAlertResolved         = "abuse_alert_resolved"
	ActionAbuseSweepTriggered   = "abuse_sweep_triggered"
	ActionPasswordChanged       = "password_changed"
	ActionProviderCreated       = "notification_provider_created"
	ActionProviderDeleted       = "notification_provider_deleted"
)

// CriticalActions always log with critical severity.
var CriticalActions = map[string]struct{}{
	ActionAdminCreated:          {},
	ActionAdminDeleted:          {},
	ActionAdminRoleChanged:      {},
	ActionUserDeleted:           {},
	ActionGlobalAllowlistRemove: {},
	ActionWebhookSettingDeleted: {},
	ActionWebhookSecretRotated:  {},
}

// WarningActions log with warning severity unless they are critical.
var WarningActions = map[string]struct{}{
	ActionUserSuspended:        {},
	ActionCreditsAdjusted:      {},
	ActionGlobalAllowlistAdded: {},
	ActionAdminAllowlistAdded:  {},
	ActionAdminAllowlistRemove: {},
	ActionWebhookSettingSaved:  {},
	ActionAlertResolved:        {},
	ActionPasswordChanged:      {},
	ActionProviderDeleted:      {},
}

// ClassifyAction derives the severity of an admin action from its name alone.
func ClassifyAction(action string) string {
	if _, ok := CriticalActions[action]; ok {
		return models.SeverityCritical
	}
	if _, ok := WarningActions[action]; ok {
		return models.SeverityWarning
	}
	return models.SeverityInfo
}

// AuditDetails describes the target and context of an admin action.
type AuditDetails struct {
	TargetType string
	TargetID   string
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{}
	OldValues  interface{}
	NewValues  interface{}
}

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	AdminID  uint
	Action   string
	Severity string
	Limit    int
}

type AuditService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewAuditService returns an AuditService. notifier may be nil.
func NewAuditService(db *gorm.DB, notifier *NotificationService) *AuditService {
	return &AuditService{db: db, notifier: notifier}
}

// Log appends an activity entry. It never fails the caller: storage errors
// are logged and dropped.
func (s *AuditService) Log(adminID uint, action string, d AuditDetails) {
	defer func() {
		if r := recover(); r != nil {
			logger.Component("audit").WithField("action", action).Errorf("audit log panic: %v", r)
		}
	}()

	entry := models.AdminActivityLog{
		AdminID:    adminID,
		Action:     action,
		TargetType: d.TargetType,
		TargetID:   d.TargetID,
		IPAddress:  d.IPAddress,
		UserAgent:  d.UserAgent,
		Severity:   ClassifyAction(action),
		Details:    toJSON(d.Details),
		OldValues:  toJSON(d.OldValues),
		NewValues:  toJSON(d.NewValues),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.db.Create(&entry).Error; err != nil {
		logger.Component("audit").WithError(err).WithFields(map[string]interface{}{
			"admin_id": adminID,
			"action":   action,
		}).Error("failed to write admin activity log")
		return
	}
	metrics.IncAdminAction(entry.Severity)

	if entry.Severity == models.SeverityCritical && s.notifier != nil {
		s.notifier.Notify(EventCriticalAction, models.Notification{
			Level:      models.NotificationLevelCritical,
			Title:      "Critical admin action",
			Message:    fmt.Sprintf("Admin #%d performed %s on %s %s", adminID, action, d.TargetType, d.TargetID),
			SourceType: models.NotificationSourceActivityLog,
			SourceID:   entry.ID,
		})
	}
}

// List returns activity entries, newest first.
func (s *AuditService) List(f ActivityFilter) ([]models.AdminActivityLog, error) {
	q := s.db.Order("created_at desc")
	if f.AdminID != 0 {
		q = q.Where("admin_id = ?", f.AdminID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var entries []models.AdminActivityLog
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok && m == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
