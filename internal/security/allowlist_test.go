package security

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAllowlist(t *testing.T) {
	tests := []struct {
		name     string
		ip       string
		global   []string
		perAdmin []string
		allowed  bool
		reason   string
	}{
		{"no ip", "", []string{"10.0.0.0/8"}, nil, false, ReasonNoClientIP},
		{"nothing configured fails open", "8.8.8.8", nil, nil, true, ReasonNoAllowlist},
		{"global match", "10.1.2.3", []string{"10.0.0.0/8"}, nil, true, ReasonGlobalMatch},
		{"global miss", "8.8.8.8", []string{"10.0.0.0/8"}, nil, false, ReasonNotInGlobal},
		{"global miss ignores admin match", "8.8.8.8", []string{"10.0.0.0/8"}, []string{"8.8.8.8"}, false, ReasonNotInGlobal},
		{"global match short-circuits admin list", "10.0.0.1", []string{"10.0.0.0/8"}, []string{"192.168.0.0/16"}, true, ReasonGlobalMatch},
		{"admin match", "192.168.4.4", nil, []string{"192.168.0.0/16"}, true, ReasonAdminMatch},
		{"admin miss", "8.8.4.4", nil, []string{"192.168.0.0/16", "1.1.1.1"}, false, ReasonNotInAdminList},
		{"malformed entries deny rather than crash", "8.8.4.4", []string{"bogus/99"}, nil, false, ReasonNotInGlobal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateAllowlist(tt.ip, tt.global, tt.perAdmin)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			if !tt.allowed {
				assert.Equal(t, http.StatusForbidden, d.Status)
			}
		})
	}
}
