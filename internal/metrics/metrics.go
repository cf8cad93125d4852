package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicedesk_webhook_validations_total",
		Help: "Inbound webhook requests by provider and validation result",
	}, []string{"provider", "result"})
	allowlistDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicedesk_allowlist_decisions_total",
		Help: "Admin IP allowlist evaluations by result",
	}, []string{"result"})
	abuseAlertsRaisedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicedesk_abuse_alerts_raised_total",
		Help: "Abuse alerts opened by alert type",
	}, []string{"alert_type"})
	adminActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicedesk_admin_actions_total",
		Help: "Audited admin actions by severity",
	}, []string{"severity"})
	failedLoginsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "voicedesk_failed_logins_total",
		Help: "Total number of failed login attempts recorded",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		webhookValidationsTotal,
		allowlistDecisionsTotal,
		abuseAlertsRaisedTotal,
		adminActionsTotal,
		failedLoginsTotal,
	)
}

// UnconfiguredProvider labels webhook validations that matched no enabled
// setting, so caller-chosen route params never become label values.
const UnconfiguredProvider = "unconfigured"

// IncWebhookValidation counts one webhook validation outcome. provider must
// be a configured provider name or UnconfiguredProvider.
func IncWebhookValidation(provider, result string) {
	webhookValidationsTotal.WithLabelValues(provider, result).Inc()
}

// IncAllowlistDecision counts one allowlist evaluation.
func IncAllowlistDecision(allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	allowlistDecisionsTotal.WithLabelValues(result).Inc()
}

// IncAbuseAlert counts a newly opened alert.
func IncAbuseAlert(alertType string) { abuseAlertsRaisedTotal.WithLabelValues(alertType).Inc() }

// IncAdminAction counts an audited admin action.
func IncAdminAction(severity string) { adminActionsTotal.WithLabelValues(severity).Inc() }

// IncFailedLogin increments the failed login counter.
func IncFailedLogin() { failedLoginsTotal.Inc() }
