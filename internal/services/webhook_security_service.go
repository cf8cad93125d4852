package services

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/metrics"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/security"
	"github.com/voicedesk/backoffice/internal/util"
)

// Webhook rejection reasons.
const (
	ReasonSignatureRequired    = "Webhook signature required"
	ReasonInvalidSignature     = "Invalid webhook signature"
	ReasonUnsupportedAlgorithm = "Unsupported signature algorithm"
	ReasonIPNotAllowed         = "IP not allowed"
	ReasonRateLimited          = "Rate limit exceeded"
)

var (
	ErrWebhookSettingNotFound = errors.New("webhook security setting not found")
	ErrInvalidWebhookSetting  = errors.New("invalid webhook security setting")
)

// WebhookRequest is the part of an inbound webhook the validator inspects.
type WebhookRequest struct {
	Provider string
	Endpoint string
	Method   string
	Headers  http.Header
	Body     []byte
	ClientIP string
	// URL is the public URL the provider called; Twilio signs it.
	URL string
}

// WebhookLogFilter narrows request log listings.
type WebhookLogFilter struct {
	Provider string
	Endpoint string
	Limit    int
}

type WebhookSecurityService struct {
	db  *gorm.DB
	cfg config.WebhookConfig
	now func() time.Time
}

func NewWebhookSecurityService(db *gorm.DB, cfg config.WebhookConfig) *WebhookSecurityService {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &WebhookSecurityService{
		db:  db,
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Validate runs the signature, source IP and rate checks configured for the
// request's provider endpoint and records the attempt. Internal errors reject
// the request.
func (s *WebhookSecurityService) Validate(req WebhookRequest) security.Decision {
	start := s.now()
	signatureValid := false
	providerLabel := metrics.UnconfiguredProvider

	d := security.Evaluate(security.FailClosed, "Webhook validation", func() (security.Decision, error) {
		setting, err := s.findActive(req.Provider, req.Endpoint)
		if err != nil {
			return security.Decision{}, err
		}
		if setting != nil {
			providerLabel = setting.ProviderName
		}
		if setting == nil || !setting.RequireSignature {
			return security.AllowWithReason("no signature required"), nil
		}

		d, valid, err := s.check(setting, req)
		signatureValid = valid
		if err != nil || !d.Allowed {
			return d, err
		}

		now := s.now()
		if err := s.db.Model(setting).Update("last_validated_at", &now).Error; err != nil {
			return security.Decision{}, fmt.Errorf("stamp last_validated_at: %w", err)
		}
		return d, nil
	})

	s.logRequest(req, d, signatureValid, start)

	result := "accepted"
	if !d.Allowed {
		result = "rejected"
		logger.Component("webhooks").WithFields(map[string]interface{}{
			"provider": util.SanitizeForLog(req.Provider),
			"endpoint": util.SanitizeForLog(req.Endpoint),
			"ip":       req.ClientIP,
			"reason":   d.Reason,
		}).Warn("webhook rejected")
	}
	metrics.IncWebhookValidation(providerLabel, result)
	return d
}

// check applies steps 2-5 of validation to a signature-requiring setting. The
// boolean reports whether the signature itself verified.
func (s *WebhookSecurityService) check(setting *models.WebhookSecuritySetting, req WebhookRequest) (security.Decision, bool, error) {
	provided := security.ExtractSignature(req.Headers)
	if provided == "" {
		return security.Deny(http.StatusUnauthorized, ReasonSignatureRequired), false, nil
	}

	ok, err := security.VerifySignature(setting.Algorithm, setting.Secret, req.Body, req.URL, provided)
	if errors.Is(err, security.ErrUnknownAlgorithm) {
		return security.Deny(http.StatusUnauthorized, ReasonUnsupportedAlgorithm), false, nil
	}
	if err != nil {
		return security.Decision{}, false, err
	}
	if !ok {
		return security.Deny(http.StatusUnauthorized, ReasonInvalidSignature), false, nil
	}

	if allowed := security.SplitEntries(setting.AllowedIPs); len(allowed) > 0 && !security.MatchAny(req.ClientIP, allowed) {
		return security.Deny(http.StatusForbidden, ReasonIPNotAllowed), true, nil
	}

	if setting.RateLimitPerMinute > 0 {
		count, err := s.CountRecent(req.Provider, req.Endpoint, s.cfg.RateWindow)
		if err != nil {
			return security.Decision{}, true, fmt.Errorf("count recent webhook requests: %w", err)
		}
		if count >= int64(setting.RateLimitPerMinute) {
			return security.Deny(http.StatusTooManyRequests, ReasonRateLimited), true, nil
		}
	}

	return security.Allow(), true, nil
}

// CountRecent counts logged requests for provider/endpoint inside the trailing window.
func (s *WebhookSecurityService) CountRecent(provider, endpoint string, window time.Duration) (int64, error) {
	var count int64
	err := s.db.Model(&models.WebhookRequestLog{}).
		Where("provider = ? AND endpoint = ? AND created_at > ?", provider, endpoint, s.now().Add(-window)).
		Count(&count).Error
	return count, err
}

func (s *WebhookSecurityService) findActive(provider, endpoint string) (*models.WebhookSecuritySetting, error) {
	var setting models.WebhookSecuritySetting
	res := s.db.Where("provider_name = ? AND webhook_endpoint = ? AND enabled = ?", provider, endpoint, true).
		Limit(1).Find(&setting)
	if res.Error != nil {
		return nil, fmt.Errorf("load webhook setting: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &setting, nil
}

func (s *WebhookSecurityService) logRequest(req WebhookRequest, d security.Decision, signatureValid bool, start time.Time) {
	var headers datatypes.JSON
	if b, err := json.Marshal(util.SanitizeHeaders(req.Headers)); err == nil {
		headers = datatypes.JSON(b)
	}

	entry := models.WebhookRequestLog{
		Provider:         req.Provider,
		Endpoint:         req.Endpoint,
		Method:           req.Method,
		Headers:          headers,
		Body:             util.TruncatePayload(req.Body, s.cfg.BodyLogLimit),
		IPAddress:        req.ClientIP,
		SignatureValid:   signatureValid,
		ProcessingTimeMs: s.now().Sub(start).Milliseconds(),
		CreatedAt:        s.now(),
	}
	if !d.Allowed {
		entry.Error = d.Reason
	}

	if err := s.db.Create(&entry).Error; err != nil {
		logger.Component("webhooks").WithError(err).Error("failed to write webhook request log")
	}
}

// ListLogs returns recent request log rows, newest first.
func (s *WebhookSecurityService) ListLogs(f WebhookLogFilter) ([]models.WebhookRequestLog, error) {
	q := s.db.Order("created_at desc")
	if f.Provider != "" {
		q = q.Where("provider = ?", f.Provider)
	}
	if f.Endpoint != "" {
		q = q.Where("endpoint = ?", f.Endpoint)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.WebhookRequestLog
	if err := q.Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Settings

// List returns every webhook security setting.
func (s *WebhookSecurityService) List() ([]models.WebhookSecuritySetting, error) {
	var settings []models.WebhookSecuritySetting
	if err := s.db.Order("provider_name asc, webhook_endpoint asc").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Get returns a setting by id.
func (s *WebhookSecurityService) Get(id uint) (*models.WebhookSecuritySetting, error) {
	var setting models.WebhookSecuritySetting
	if err := s.db.First(&setting, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert validates cfg and creates or updates the row for its provider
// endpoint. An empty secret keeps the stored one.
func (s *WebhookSecurityService) Upsert(cfg *models.WebhookSecuritySetting) (*models.WebhookSecuritySetting, error) {
	if err := validateWebhookSetting(cfg); err != nil {
		return nil, err
	}

	var existing models.WebhookSecuritySetting
	res := s.db.Where("provider_name = ? AND webhook_endpoint = ?", cfg.ProviderName, cfg.WebhookEndpoint).
		Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if cfg.RequireSignature && cfg.Secret == "" {
			return nil, fmt.Errorf("%w: secret is required when signatures are required", ErrInvalidWebhookSetting)
		}
		if err := s.db.Create(cfg).Error; err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if cfg.Secret != "" {
		existing.Secret = cfg.Secret
	}
	if existing.RequireSignature = cfg.RequireSignature; existing.RequireSignature && existing.Secret == "" {
		return nil, fmt.Errorf("%w: secret is required when signatures are required", ErrInvalidWebhookSetting)
	}
	existing.Algorithm = cfg.Algorithm
	existing.Enabled = cfg.Enabled
	existing.AllowedIPs = cfg.AllowedIPs
	existing.RateLimitPerMinute = cfg.RateLimitPerMinute

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// Delete removes a setting and returns what was removed.
func (s *WebhookSecurityService) Delete(id uint) (*models.WebhookSecuritySetting, error) {
	setting, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Delete(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

// RotateSecret generates a new random secret, stores it and returns it. The
// plaintext is only ever returned here.
func (s *WebhookSecurityService) RotateSecret(id uint) (string, error) {
	setting, err := s.Get(id)
	if err != nil {
		return "", err
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(b)

	if err := s.db.Model(setting).Update("secret", secret).Error; err != nil {
		return "", err
	}
	return secret, nil
}

func validateWebhookSetting(cfg *models.WebhookSecuritySetting) error {
	cfg.ProviderName = strings.TrimSpace(cfg.ProviderName)
	cfg.WebhookEndpoint = strings.Trim(strings.TrimSpace(cfg.WebhookEndpoint), "/")
	if cfg.ProviderName == "" || cfg.WebhookEndpoint == "" {
		return fmt.Errorf("%w: provider_name and webhook_endpoint are required", ErrInvalidWebhookSetting)
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = security.AlgorithmHMACSHA256
	}
	if !security.ValidAlgorithm(cfg.Algorithm) {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidWebhookSetting, cfg.Algorithm)
	}
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("%w: rate_limit_per_minute must not be negative", ErrInvalidWebhookSetting)
	}

	entries := security.SplitEntries(cfg.AllowedIPs)
	for _, e := range entries {
		if !security.ValidEntry(e) {
			return fmt.Errorf("%w: %q", ErrInvalidAllowlistEntry, e)
		}
	}
	cfg.AllowedIPs = strings.Join(entries, ",")
	return nil
}
