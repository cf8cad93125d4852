package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification levels, most urgent last.
const (
	NotificationLevelInfo     = "info"
	NotificationLevelWarning  = "warning"
	NotificationLevelCritical = "critical"
)

// Rows a notification can be raised from.
const (
	NotificationSourceAbuseAlert  = "abuse_alert"
	NotificationSourceActivityLog = "admin_activity_log"
)

// Notification is a dashboard entry for an abuse alert or a critical admin
// action. SourceType and SourceID point at the row that raised it.
type Notification struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	Level      string     `json:"level" gorm:"index"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	SourceType string     `json:"source_type,omitempty" gorm:"index:idx_notifications_source"`
	SourceID   uint       `json:"source_id,omitempty" gorm:"index:idx_notifications_source"`
	Read       bool       `json:"read" gorm:"index"`
	ReadBy     *uint      `json:"read_by,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Level == "" {
		n.Level = NotificationLevelInfo
	}
	return nil
}

// LevelForAlertSeverity maps an abuse alert severity onto a notification level.
func LevelForAlertSeverity(severity string) string {
	switch severity {
	case AlertSeverityHigh, AlertSeverityCritical:
		return NotificationLevelCritical
	default:
		return NotificationLevelWarning
	}
}
