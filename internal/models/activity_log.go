package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin action severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AdminActivityLog records a mutating admin action.
type AdminActivityLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	AdminID    uint           `json:"admin_id" gorm:"index"`
	Action     string         `json:"action" gorm:"index"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Details    datatypes.JSON `json:"details"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	Severity   string         `json:"severity" gorm:"index"`
	OldValues  datatypes.JSON `json:"old_values"`
	NewValues  datatypes.JSON `json:"new_values"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}
