package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/util"
)

// Outbound event types.
const (
	EventAbuseAlert     = "abuse_alert"
	EventCriticalAction = "critical_action"
	EventTest           = "test"
)

// ErrNotificationNotFound is returned when no notification has the given id.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService stores dashboard notifications and fans events out to
// the configured shoutrrr providers.
type NotificationService struct {
	DB *gorm.DB

	// send delivers a message to a shoutrrr URL.
	send func(url, message string) error
	now  func() time.Time
	wg   sync.WaitGroup
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		DB:   db,
		send: shoutrrr.Send,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// NotificationFilter narrows List. Zero values match everything.
type NotificationFilter struct {
	UnreadOnly bool
	SourceType string
	Limit      int
}

func (s *NotificationService) Create(n *models.Notification) error {
	n.Read = false
	n.ReadBy = nil
	n.ReadAt = nil
	return s.DB.Create(n).Error
}

// List returns notifications newest first, at most 100 unless f.Limit says otherwise.
func (s *NotificationService) List(f NotificationFilter) ([]models.Notification, error) {
	q := s.DB.Order("created_at desc")
	if f.UnreadOnly {
		q = q.Where("read = ?", false)
	}
	if f.SourceType != "" {
		q = q.Where("source_type = ?", f.SourceType)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var notifications []models.Notification
	err := q.Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) UnreadCount() (int64, error) {
	var n int64
	err := s.DB.Model(&models.Notification{}).Where("read = ?", false).Count(&n).Error
	return n, err
}

// MarkAsRead records adminID as the reader. Marking an already read
// notification again keeps the first reader.
func (s *NotificationService) MarkAsRead(id string, adminID uint) error {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND read = ?", id, false).
		Updates(s.readColumns(adminID))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.DB.Model(&models.Notification{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllAsRead marks every unread notification and returns how many changed.
func (s *NotificationService) MarkAllAsRead(adminID uint) (int64, error) {
	res := s.DB.Model(&models.Notification{}).Where("read = ?", false).Updates(s.readColumns(adminID))
	return res.RowsAffected, res.Error
}

// MarkSourceRead clears the unread notifications raised by one source row,
// e.g. when the abuse alert behind them is resolved.
func (s *NotificationService) MarkSourceRead(sourceType string, sourceID, adminID uint) error {
	return s.DB.Model(&models.Notification{}).
		Where("source_type = ? AND source_id = ? AND read = ?", sourceType, sourceID, false).
		Updates(s.readColumns(adminID)).Error
}

func (s *NotificationService) readColumns(adminID uint) map[string]interface{} {
	return map[string]interface{}{
		"read":    true,
		"read_by": adminID,
		"read_at": s.now(),
	}
}

// Notify stores n as a dashboard notification and sends its title and
// message to every enabled provider subscribed to eventType. Delivery is
// asynchronous and failures are only logged.
func (s *NotificationService) Notify(eventType string, n models.Notification) {
	if s == nil || s.DB == nil {
		return
	}
	if err := s.Create(&n); err != nil {
		logger.Component("notifications").WithError(err).WithFields(map[string]interface{}{
			"source_type": n.SourceType,
			"source_id":   n.SourceID,
		}).Warn("failed to store notification")
	}
	s.SendExternal(eventType, n.Title, n.Message)
}

// SendExternal delivers title/message to providers subscribed to eventType.
func (s *NotificationService) SendExternal(eventType, title, message string) {
	var providers []models.NotificationProvider
	if err := s.DB.Where("enabled = ?", true).Find(&providers).Error; err != nil {
		logger.Component("notifications").WithError(err).Error("failed to fetch notification providers")
		return
	}

	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, provider := range providers {
		if !wantsEvent(provider, eventType) {
			continue
		}

		s.wg.Add(1)
		go func(p models.NotificationProvider) {
			defer s.wg.Done()
			if err := s.send(p.URL, msg); err != nil {
				logger.Component("notifications").WithError(err).
					WithField("provider", util.SanitizeForLog(p.Name)).
					Warn("failed to send notification")
			}
		}(provider)
	}
}

// Wait blocks until in-flight deliveries finish.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// TestProvider sends a test message synchronously so the caller sees the error.
func (s *NotificationService) TestProvider(p models.NotificationProvider) error {
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("provider url is required")
	}
	return s.send(p.URL, "VoiceDesk test notification")
}

// Providers

func (s *NotificationService) ListProviders() ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	result := s.DB.Order("created_at asc").Find(&providers)
	return providers, result.Error
}

func (s *NotificationService) CreateProvider(provider *models.NotificationProvider) error {
	if strings.TrimSpace(provider.URL) == "" {
		return fmt.Errorf("provider url is required")
	}
	return s.DB.Create(provider).Error
}

func (s *NotificationService) DeleteProvider(id string) error {
	return s.DB.Delete(&models.NotificationProvider{}, "id = ?", id).Error
}

func wantsEvent(p models.NotificationProvider, eventType string) bool {
	switch eventType {
	case EventAbuseAlert:
		return p.NotifyAbuseAlerts
	case EventCriticalAction:
		return p.NotifyCriticalActions
	default:
		return true
	}
}
