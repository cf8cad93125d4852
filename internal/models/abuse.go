package models

import (
	"time"
)

// Alert types raised by the flood detectors.
const (
	AlertFailedLoginFlood = "failed_login_flood"
	AlertWebhookFlood     = "webhook_flood"
	AlertCallVolumeSpike  = "call_volume_spike"
)

// Alert lifecycle states. Only open alerts take part in de-duplication.
const (
	AlertStatusOpen          = "open"
	AlertStatusResolved      = "resolved"
	AlertStatusFalsePositive = "false_positive"
)

// Alert severities.
const (
	AlertSeverityLow      = "low"
	AlertSeverityMedium   = "medium"
	AlertSeverityHigh     = "high"
	AlertSeverityCritical = "critical"
)

// AbuseAlert records a threshold breach for one entity. At most one open
// alert exists per (alert type, entity type, entity id); the database
// enforces this with a partial unique index created at migration time.
type AbuseAlert struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	AlertType       string     `json:"alert_type" gorm:"not null;index"`
	Severity        string     `json:"severity"`
	EntityType      string     `json:"entity_type" gorm:"not null"`
	EntityID        string     `json:"entity_id" gorm:"not null"`
	ThresholdValue  int64      `json:"threshold_value"`
	ActualValue     int64      `json:"actual_value"`
	WindowMinutes   int        `json:"window_minutes"`
	Description     string     `json:"description"`
	Status          string     `json:"status" gorm:"not null;default:'open';index"`
	ResolvedBy      *uint      `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FailedLoginAttempt is appended for every rejected login.
type FailedLoginAttempt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"index"`
	IPAddress string    `json:"ip_address" gorm:"index:idx_failed_login_ip_time,priority:1"`
	IsAdmin   bool      `json:"is_admin"`
	Reason    string    `json:"reason"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_failed_login_ip_time,priority:2"`
}
