package models

import (
	"time"
)

// GlobalIPAllowlist entries apply to every admin. When any active row exists
// the per-admin lists are not consulted.
type GlobalIPAllowlist struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IPAddress   string    `json:"ip_address" gorm:"not null"` // IPv4 address or CIDR block
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active" gorm:"index"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AdminIPAllowlist entries restrict a single admin.
type AdminIPAllowlist struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	AdminID     uint      `json:"admin_id" gorm:"index;not null"`
	IPAddress   string    `json:"ip_address" gorm:"not null"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
