package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookSecuritySetting configures signature, source IP and rate checks for
// one provider endpoint.
type WebhookSecuritySetting struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	ProviderName       string     `json:"provider_name" gorm:"not null;uniqueIndex:idx_webhook_provider_endpoint"`
	WebhookEndpoint    string     `json:"webhook_endpoint" gorm:"not null;uniqueIndex:idx_webhook_provider_endpoint"`
	Secret             string     `json:"-"`
	Algorithm          string     `json:"algorithm" gorm:"default:'hmac_sha256'"` // hmac_sha256, hmac_sha1, twilio
	Enabled            bool       `json:"enabled"`
	RequireSignature   bool       `json:"require_signature"`
	AllowedIPs         string     `json:"allowed_ips" gorm:"type:text"` // Comma-separated IPv4 addresses or CIDRs
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	LastValidatedAt    *time.Time `json:"last_validated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasSecret lets the UI show whether a secret is configured without exposing it.
func (s WebhookSecuritySetting) HasSecret() bool {
	return s.Secret != ""
}

// WebhookRequestLog is an append-only record of an inbound webhook attempt.
// The rate limiter counts these rows.
type WebhookRequestLog struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Provider         string         `json:"provider" gorm:"index:idx_webhook_log_window,priority:1"`
	Endpoint         string         `json:"endpoint" gorm:"index:idx_webhook_log_window,priority:2"`
	Method           string         `json:"method"`
	Headers          datatypes.JSON `json:"headers"`
	Body             string         `json:"body" gorm:"type:text"`
	IPAddress        string         `json:"ip_address"`
	SignatureValid   bool           `json:"signature_valid"`
	Error            string         `json:"error,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	CreatedAt        time.Time      `json:"created_at" gorm:"index:idx_webhook_log_window,priority:3"`
}
