package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/metrics"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/security"
)

var (
	ErrAllowlistEntryNotFound = errors.New("allowlist entry not found")
	ErrInvalidAllowlistEntry  = errors.New("invalid IP address or CIDR")
)

// AllowlistService manages the global and per-admin IP allowlists and
// evaluates them for incoming admin requests.
type AllowlistService struct {
	db *gorm.DB
}

func NewAllowlistService(db *gorm.DB) *AllowlistService {
	return &AllowlistService{db: db}
}

// Check decides whether clientIP may act as adminID. Storage errors fail open.
func (s *AllowlistService) Check(adminID uint, clientIP string) security.Decision {
	d := security.Evaluate(security.FailOpen, "IP allowlist check", func() (security.Decision, error) {
		if clientIP == "" {
			return security.EvaluateAllowlist("", nil, nil), nil
		}

		global, err := s.activeGlobal()
		if err != nil {
			return security.Decision{}, fmt.Errorf("load global allowlist: %w", err)
		}

		var perAdmin []string
		if len(global) == 0 {
			perAdmin, err = s.activeForAdmin(adminID)
			if err != nil {
				return security.Decision{}, fmt.Errorf("load admin allowlist: %w", err)
			}
		}

		return security.EvaluateAllowlist(clientIP, global, perAdmin), nil
	})
	metrics.IncAllowlistDecision(d.Allowed)
	return d
}

func (s *AllowlistService) activeGlobal() ([]string, error) {
	var ips []string
	err := s.db.Model(&models.GlobalIPAllowlist{}).Where("is_active = ?", true).Pluck("ip_address", &ips).Error
	return ips, err
}

func (s *AllowlistService) activeForAdmin(adminID uint) ([]string, error) {
	var ips []string
	err := s.db.Model(&models.AdminIPAllowlist{}).
		Where("admin_id = ? AND is_active = ?", adminID, true).
		Pluck("ip_address", &ips).Error
	return ips, err
}

// ListGlobal returns all global entries, active or not.
func (s *AllowlistService) ListGlobal() ([]models.GlobalIPAllowlist, error) {
	var entries []models.GlobalIPAllowlist
	if err := s.db.Order("created_at desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// AddGlobal validates and stores a global entry.
func (s *AllowlistService) AddGlobal(entry *models.GlobalIPAllowlist) error {
	ip, err := normalizeEntry(entry.IPAddress)
	if err != nil {
		return err
	}
	entry.IPAddress = ip
	return s.db.Create(entry).Error
}

// RemoveGlobal deletes a global entry and returns what was removed.
func (s *AllowlistService) RemoveGlobal(id uint) (*models.GlobalIPAllowlist, error) {
	var entry models.GlobalIPAllowlist
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllowlistEntryNotFound
		}
		return nil, err
	}
	if err := s.db.Delete(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetGlobalActive toggles a global entry without deleting it.
func (s *AllowlistService) SetGlobalActive(id uint, active bool) error {
	res := s.db.Model(&models.GlobalIPAllowlist{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAllowlistEntryNotFound
	}
	return nil
}

// ListForAdmin returns the per-admin entries of adminID.
func (s *AllowlistService) ListForAdmin(adminID uint) ([]models.AdminIPAllowlist, error) {
	var entries []models.AdminIPAllowlist
	if err := s.db.Where("admin_id = ?", adminID).Order("created_at desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// AddForAdmin validates and stores a per-admin entry.
func (s *AllowlistService) AddForAdmin(entry *models.AdminIPAllowlist) error {
	if entry.AdminID == 0 {
		return errors.New("admin_id is required")
	}
	ip, err := normalizeEntry(entry.IPAddress)
	if err != nil {
		return err
	}
	entry.IPAddress = ip
	return s.db.Create(entry).Error
}

// RemoveForAdmin deletes a per-admin entry belonging to adminID.
func (s *AllowlistService) RemoveForAdmin(adminID, id uint) (*models.AdminIPAllowlist, error) {
	var entry models.AdminIPAllowlist
	if err := s.db.Where("id = ? AND admin_id = ?", id, adminID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllowlistEntryNotFound
		}
		return nil, err
	}
	if err := s.db.Delete(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func normalizeEntry(ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if !security.ValidEntry(ip) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAllowlistEntry, ip)
	}
	return ip, nil
}
