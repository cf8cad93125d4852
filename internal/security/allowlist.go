package security

import "net/http"

const (
	ReasonNoClientIP     = "Unable to determine IP address"
	ReasonNotInGlobal    = "IP address not in global allowlist"
	ReasonNotInAdminList = "IP address not in your allowlist"
	ReasonGlobalMatch    = "Allowed by global allowlist"
	ReasonAdminMatch     = "Allowed by admin allowlist"
	ReasonNoAllowlist    = "No IP allowlist configured"
)

// EvaluateAllowlist decides whether clientIP may reach the admin API.
// A non-empty global list is authoritative and per-admin entries are not
// consulted. With no entries in either tier the request is allowed.
func EvaluateAllowlist(clientIP string, global, perAdmin []string) Decision {
	if clientIP == "" {
		return Deny(http.StatusForbidden, ReasonNoClientIP)
	}

	if len(global) > 0 {
		if MatchAny(clientIP, global) {
			return AllowWithReason(ReasonGlobalMatch)
		}
		return Deny(http.StatusForbidden, ReasonNotInGlobal)
	}

	if len(perAdmin) > 0 {
		if MatchAny(clientIP, perAdmin) {
			return AllowWithReason(ReasonAdminMatch)
		}
		return Deny(http.StatusForbidden, ReasonNotInAdminList)
	}

	return AllowWithReason(ReasonNoAllowlist)
}
