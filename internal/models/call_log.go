package models

import (
	"time"
)

// CallLog is one call reported by the telephony provider. The call-volume
// detector counts these rows per user and agent.
type CallLog struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	CallID          string    `json:"call_id" gorm:"index"`
	UserID          string    `json:"user_id" gorm:"not null;index:idx_call_user_time,priority:1"`
	AgentID         string    `json:"agent_id,omitempty"`
	Direction       string    `json:"direction"` // inbound, outbound
	Status          string    `json:"status"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at" gorm:"index:idx_call_user_time,priority:2"`
}
