// Package security holds the request-path checks shared by the admin API and
// the inbound webhook endpoints: IPv4 allowlist matching, webhook signatures
// and the fail-open / fail-closed evaluation helper.
package security

import (
	"fmt"
	"net/http"

	"github.com/voicedesk/backoffice/internal/logger"
)

// FailurePolicy decides what a check returns when it cannot be evaluated.
type FailurePolicy int

const (
	// FailOpen permits the guarded action when the check errors.
	FailOpen FailurePolicy = iota
	// FailClosed denies the guarded action when the check errors.
	FailClosed
)

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// Decision is the outcome of a security check. Status is the HTTP status a
// rejected request should be answered with.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Status  int    `json:"-"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

// AllowWithReason returns a permitting decision that carries an explanation.
func AllowWithReason(reason string) Decision {
	return Decision{Allowed: true, Status: http.StatusOK, Reason: reason}
}

// Deny returns a rejecting decision.
func Deny(status int, reason string) Decision {
	return Decision{Allowed: false, Status: status, Reason: reason}
}

// Evaluate runs fn and applies policy when fn returns an error or panics.
// component names the check in logs and in the fail-closed reason.
func Evaluate(policy FailurePolicy, component string, fn func() (Decision, error)) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = fallback(policy, component, fmt.Errorf("panic: %v", r))
		}
	}()

	d, err := fn()
	if err != nil {
		return fallback(policy, component, err)
	}
	return d
}

func fallback(policy FailurePolicy, component string, err error) Decision {
	logger.Log().WithError(err).WithFields(map[string]interface{}{
		"component": component,
		"policy":    policy.String(),
	}).Error("security check failed")

	if policy == FailClosed {
		return Deny(http.StatusInternalServerError, component+" failed")
	}
	return Allow()
}
