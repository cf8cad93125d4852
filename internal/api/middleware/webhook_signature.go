package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/services"
)

// MaxWebhookBody caps inbound webhook payloads.
const MaxWebhookBody = 1 << 20

// WebhookSignature validates an inbound webhook against the security setting
// for its :provider/:endpoint route params. The body is buffered and restored
// so the downstream handler can read it again.
func WebhookSignature(svc *services.WebhookSecurityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		d := svc.Validate(services.WebhookRequest{
			Provider: c.Param("provider"),
			Endpoint: c.Param("endpoint"),
			Method:   c.Request.Method,
			Headers:  c.Request.Header,
			Body:     body,
			ClientIP: c.ClientIP(),
			URL:      publicURL(c.Request),
		})
		if !d.Allowed {
			c.AbortWithStatusJSON(d.Status, gin.H{"error": d.Reason})
			return
		}
		c.Next()
	}
}

// publicURL reconstructs the URL the provider called, preferring the
// X-Forwarded-Url set by the edge proxy.
func publicURL(r *http.Request) string {
	if u := r.Header.Get("X-Forwarded-Url"); u != "" {
		return u
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	host := r.Host
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = h
	}
	return scheme + "://" + host + r.URL.RequestURI()
}
