package handlers

import (
	"github.com/voicedesk/backoffice/internal/util"
)

// sanitizeForLog removes control characters and newlines from user content before logging.
func sanitizeForLog(s string) string {
	return util.SanitizeForLog(s)
}
