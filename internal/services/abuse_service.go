package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/metrics"
	"github.com/voicedesk/backoffice/internal/models"
)

// Alert entity types.
const (
	EntityIPAddress       = "ip_address"
	EntityWebhookEndpoint = "webhook_endpoint"
	EntityUser            = "user"
	EntityUserAgent       = "user_agent"
)

var (
	ErrAlertNotFound        = errors.New("abuse alert not found")
	ErrAlertAlreadyResolved = errors.New("abuse alert already resolved")
	ErrInvalidAlertStatus   = errors.New("alert status must be resolved or false_positive")
)

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Status    string
	AlertType string
	Limit     int
}

// AlertStats summarises the alert table for the dashboard.
type AlertStats struct {
	Open       int64            `json:"open"`
	Resolved   int64            `json:"resolved"`
	OpenByType map[string]int64 `json:"open_by_type"`
}

// SweepResult reports what a single sweep looked at and raised.
type SweepResult struct {
	IPsChecked       int `json:"ips_checked"`
	EndpointsChecked int `json:"endpoints_checked"`
	UsersChecked     int `json:"users_checked"`
	AlertsRaised     int `json:"alerts_raised"`
}

// AbuseService records suspicious events and raises de-duplicated alerts when
// a trailing-window count crosses its threshold.
type AbuseService struct {
	db       *gorm.DB
	cfg      config.AbuseConfig
	notifier *NotificationService
	now      func() time.Time
}

// NewAbuseService returns an AbuseService. notifier may be nil.
func NewAbuseService(db *gorm.DB, cfg config.AbuseConfig, notifier *NotificationService) *AbuseService {
	return &AbuseService{
		db:       db,
		cfg:      cfg,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordFailedLogin stores a failed login and checks its source IP for a flood.
func (s *AbuseService) RecordFailedLogin(attempt *models.FailedLoginAttempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = s.now()
	}
	if err := s.db.Create(attempt).Error; err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	metrics.IncFailedLogin()

	if attempt.IPAddress == "" {
		return nil
	}
	_, err := s.DetectFailedLoginFlood(attempt.IPAddress)
	return err
}

// DetectFailedLoginFlood raises a high severity alert when ip has produced at
// least FailedLoginThreshold failures inside FailedLoginWindow. It reports
// whether a new alert was opened.
func (s *AbuseService) DetectFailedLoginFlood(ip string) (bool, error) {
	window := s.cfg.FailedLoginWindow

	var count int64
	err := s.db.Model(&models.FailedLoginAttempt{}).
		Where("ip_address = ? AND created_at > ?", ip, s.now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count failed logins: %w", err)
	}
	if count < int64(s.cfg.FailedLoginThreshold) {
		return false, nil
	}

	return s.raiseAlert(&models.AbuseAlert{
		AlertType:      models.AlertFailedLoginFlood,
		Severity:       models.AlertSeverityHigh,
		EntityType:     EntityIPAddress,
		EntityID:       ip,
		ThresholdValue: int64(s.cfg.FailedLoginThreshold),
		ActualValue:    count,
		WindowMinutes:  int(window.Minutes()),
		Description:    fmt.Sprintf("%d failed login attempts from %s in %d minutes", count, ip, int(window.Minutes())),
	})
}

// DetectWebhookFlood raises a medium severity alert when a provider endpoint
// received at least WebhookFloodThreshold requests inside WebhookFloodWindow.
func (s *AbuseService) DetectWebhookFlood(provider, endpoint string) (bool, error) {
	window := s.cfg.WebhookFloodWindow

	var count int64
	err := s.db.Model(&models.WebhookRequestLog{}).
		Where("provider = ? AND endpoint = ? AND created_at > ?", provider, endpoint, s.now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count webhook requests: %w", err)
	}
	if count < int64(s.cfg.WebhookFloodThreshold) {
		return false, nil
	}

	entity := provider + ":" + endpoint
	return s.raiseAlert(&models.AbuseAlert{
		AlertType:      models.AlertWebhookFlood,
		Severity:       models.AlertSeverityMedium,
		EntityType:     EntityWebhookEndpoint,
		EntityID:       entity,
		ThresholdValue: int64(s.cfg.WebhookFloodThreshold),
		ActualValue:    count,
		WindowMinutes:  int(window.Minutes()),
		Description:    fmt.Sprintf("%d webhook requests to %s in %d minutes", count, entity, int(window.Minutes())),
	})
}

// RecordCall stores a call and checks it for a volume spike per user and,
// when the call names an agent, per user and agent.
func (s *AbuseService) RecordCall(call *models.CallLog) error {
	if strings.TrimSpace(call.UserID) == "" {
		return errors.New("call user_id is required")
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = s.now()
	}
	if err := s.db.Create(call).Error; err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	_, err := s.DetectCallSpike(call.UserID, "")
	if call.AgentID != "" {
		_, agentErr := s.DetectCallSpike(call.UserID, call.AgentID)
		err = errors.Join(err, agentErr)
	}
	return err
}

// CallSpikeThreshold returns the alerting threshold for userID/agentID: the
// multiplier times the average call count seen at the current hour of day
// across the history window, or times the default baseline when there is no
// history.
func (s *AbuseService) CallSpikeThreshold(userID, agentID string) (int64, error) {
	now := s.now()
	windowStart := now.Add(-s.cfg.CallSpikeWindow)
	days := s.cfg.CallHistoryDays
	if days <= 0 {
		days = 7
	}

	var stamps []time.Time
	err := s.callScope(userID, agentID).
		Where("created_at > ? AND created_at <= ?", now.AddDate(0, 0, -days), windowStart).
		Pluck("created_at", &stamps).Error
	if err != nil {
		return 0, fmt.Errorf("load call history: %w", err)
	}

	var sameHour int
	for _, ts := range stamps {
		if ts.UTC().Hour() == now.Hour() {
			sameHour++
		}
	}

	baseline := float64(s.cfg.CallSpikeBaseline)
	if sameHour > 0 {
		baseline = float64(sameHour) / float64(days)
	}
	threshold := int64(math.Ceil(baseline * float64(s.cfg.CallSpikeMultiplier)))
	if threshold < 1 {
		threshold = 1
	}
	return threshold, nil
}

// DetectCallSpike raises a call volume alert when the trailing-window call
// count for userID (optionally narrowed to agentID) reaches the threshold.
// The alert is high severity at twice the threshold, medium otherwise.
func (s *AbuseService) DetectCallSpike(userID, agentID string) (bool, error) {
	window := s.cfg.CallSpikeWindow

	var count int64
	err := s.callScope(userID, agentID).
		Where("created_at > ?", s.now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count calls: %w", err)
	}

	threshold, err := s.CallSpikeThreshold(userID, agentID)
	if err != nil {
		return false, err
	}
	if count < threshold {
		return false, nil
	}

	severity := models.AlertSeverityMedium
	if count >= 2*threshold {
		severity = models.AlertSeverityHigh
	}

	entityType, entityID := EntityUser, userID
	if agentID != "" {
		entityType, entityID = EntityUserAgent, userID+":"+agentID
	}

	return s.raiseAlert(&models.AbuseAlert{
		AlertType:      models.AlertCallVolumeSpike,
		Severity:       severity,
		EntityType:     entityType,
		EntityID:       entityID,
		ThresholdValue: threshold,
		ActualValue:    count,
		WindowMinutes:  int(window.Minutes()),
		Description:    fmt.Sprintf("%d calls for %s in %d minutes (threshold %d)", count, entityID, int(window.Minutes()), threshold),
	})
}

func (s *AbuseService) callScope(userID, agentID string) *gorm.DB {
	q := s.db.Model(&models.CallLog{}).Where("user_id = ?", userID)
	if agentID != "" {
		q = q.Where("agent_id = ?", agentID)
	}
	return q
}

// raiseAlert inserts alert unless an open alert already exists for the same
// entity. The partial unique index turns concurrent inserts into no-ops.
func (s *AbuseService) raiseAlert(alert *models.AbuseAlert) (bool, error) {
	alert.Status = models.AlertStatusOpen
	now := s.now()
	alert.CreatedAt = now
	alert.UpdatedAt = now

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(alert)
	if res.Error != nil {
		return false, fmt.Errorf("raise %s alert: %w", alert.AlertType, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	metrics.IncAbuseAlert(alert.AlertType)
	logger.Component("abuse").WithFields(map[string]interface{}{
		"alert_type": alert.AlertType,
		"entity":     alert.EntityID,
		"actual":     alert.ActualValue,
		"threshold":  alert.ThresholdValue,
		"severity":   alert.Severity,
	}).Warn("abuse alert raised")

	if s.notifier != nil {
		s.notifier.Notify(EventAbuseAlert, models.Notification{
			Level:      models.LevelForAlertSeverity(alert.Severity),
			Title:      "Abuse alert: " + alert.AlertType,
			Message:    alert.Description,
			SourceType: models.NotificationSourceAbuseAlert,
			SourceID:   alert.ID,
		})
	}
	return true, nil
}

// ResolveAlert closes an open alert with status resolved or false_positive.
func (s *AbuseService) ResolveAlert(id, adminID uint, status, notes string) (*models.AbuseAlert, error) {
	if status != models.AlertStatusResolved && status != models.AlertStatusFalsePositive {
		return nil, ErrInvalidAlertStatus
	}

	alert, err := s.GetAlert(id)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.AlertStatusOpen {
		return nil, ErrAlertAlreadyResolved
	}

	now := s.now()
	res := s.db.Model(&models.AbuseAlert{}).
		Where("id = ? AND status = ?", id, models.AlertStatusOpen).
		Updates(map[string]interface{}{
			"status":           status,
			"resolved_by":      adminID,
			"resolved_at":      now,
			"resolution_notes": notes,
			"updated_at":       now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlertAlreadyResolved
	}

	if s.notifier != nil {
		if err := s.notifier.MarkSourceRead(models.NotificationSourceAbuseAlert, id, adminID); err != nil {
			logger.Component("abuse").WithError(err).WithField("alert_id", id).Warn("failed to clear alert notifications")
		}
	}
	return s.GetAlert(id)
}

// GetAlert returns an alert by id.
func (s *AbuseService) GetAlert(id uint) (*models.AbuseAlert, error) {
	var alert models.AbuseAlert
	if err := s.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// ListAlerts returns alerts, newest first.
func (s *AbuseService) ListAlerts(f AlertFilter) ([]models.AbuseAlert, error) {
	q := s.db.Order("created_at desc, id desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AlertType != "" {
		q = q.Where("alert_type = ?", f.AlertType)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var alerts []models.AbuseAlert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// Stats counts alerts by status and open alerts by type.
func (s *AbuseService) Stats() (AlertStats, error) {
	stats := AlertStats{OpenByType: map[string]int64{}}

	var rows []struct {
		AlertType string
		Count     int64
	}
	err := s.db.Model(&models.AbuseAlert{}).
		Select("alert_type, count(*) as count").
		Where("status = ?", models.AlertStatusOpen).
		Group("alert_type").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.OpenByType[r.AlertType] = r.Count
		stats.Open += r.Count
	}

	err = s.db.Model(&models.AbuseAlert{}).Where("status <> ?", models.AlertStatusOpen).Count(&stats.Resolved).Error
	return stats, err
}

// RunOnce sweeps every entity active inside its detector window and runs the
// matching detector. It does not schedule itself. Detector errors are
// collected and the sweep continues.
func (s *AbuseService) RunOnce() (SweepResult, error) {
	var (
		result SweepResult
		errs   []error
	)
	now := s.now()

	var ips []string
	if err := s.db.Model(&models.FailedLoginAttempt{}).
		Where("created_at > ? AND ip_address <> ''", now.Add(-s.cfg.FailedLoginWindow)).
		Distinct().Pluck("ip_address", &ips).Error; err != nil {
		errs = append(errs, fmt.Errorf("list failed login ips: %w", err))
	}
	for _, ip := range ips {
		result.IPsChecked++
		s.tally(&result, &errs)(s.DetectFailedLoginFlood(ip))
	}

	var endpoints []struct {
		Provider string
		Endpoint string
	}
	if err := s.db.Model(&models.WebhookRequestLog{}).
		Select("DISTINCT provider, endpoint").
		Where("created_at > ?", now.Add(-s.cfg.WebhookFloodWindow)).
		Scan(&endpoints).Error; err != nil {
		errs = append(errs, fmt.Errorf("list webhook endpoints: %w", err))
	}
	for _, e := range endpoints {
		result.EndpointsChecked++
		s.tally(&result, &errs)(s.DetectWebhookFlood(e.Provider, e.Endpoint))
	}

	callWindow := now.Add(-s.cfg.CallSpikeWindow)
	var users []string
	if err := s.db.Model(&models.CallLog{}).
		Where("created_at > ?", callWindow).
		Distinct().Pluck("user_id", &users).Error; err != nil {
		errs = append(errs, fmt.Errorf("list callers: %w", err))
	}
	for _, u := range users {
		result.UsersChecked++
		s.tally(&result, &errs)(s.DetectCallSpike(u, ""))
	}

	var agents []struct {
		UserID  string
		AgentID string
	}
	if err := s.db.Model(&models.CallLog{}).
		Select("DISTINCT user_id, agent_id").
		Where("created_at > ? AND agent_id <> ''", callWindow).
		Scan(&agents).Error; err != nil {
		errs = append(errs, fmt.Errorf("list caller agents: %w", err))
	}
	for _, a := range agents {
		result.UsersChecked++
		s.tally(&result, &errs)(s.DetectCallSpike(a.UserID, a.AgentID))
	}

	logger.Component("abuse").WithFields(map[string]interface{}{
		"ips":       result.IPsChecked,
		"endpoints": result.EndpointsChecked,
		"users":     result.UsersChecked,
		"raised":    result.AlertsRaised,
	}).Info("abuse sweep finished")

	return result, errors.Join(errs...)
}

func (s *AbuseService) tally(result *SweepResult, errs *[]error) func(bool, error) {
	return func(raised bool, err error) {
		if err != nil {
			*errs = append(*errs, err)
			return
		}
		if raised {
			result.AlertsRaised++
		}
	}
}
