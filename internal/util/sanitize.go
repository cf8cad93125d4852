package util

import (
	"fmt"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]+`)

// SanitizeForLog removes control characters and newlines from user content before logging.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return controlChars.ReplaceAllString(s, " ")
}

// TruncatePayload returns body as a string when it fits in limit bytes and a
// size marker otherwise. A non-positive limit always yields the marker.
func TruncatePayload(body []byte, limit int) string {
	if len(body) == 0 {
		return ""
	}
	if limit > 0 && len(body) <= limit {
		return string(body)
	}
	return fmt.Sprintf("[truncated: %d bytes]", len(body))
}
