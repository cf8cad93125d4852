package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationProvider is an outbound channel (any shoutrrr URL: slack, discord,
// telegram, generic webhooks, smtp) that receives security events.
type NotificationProvider struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // slack, discord, telegram, generic, smtp
	URL     string `json:"url"`  // shoutrrr service URL
	Enabled bool   `json:"enabled"`

	// Notification Preferences
	NotifyAbuseAlerts     bool `json:"notify_abuse_alerts" gorm:"default:true"`
	NotifyCriticalActions bool `json:"notify_critical_actions" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *NotificationProvider) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
