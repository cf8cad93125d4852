package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

// Context keys set by AuthMiddleware.
const (
	AdminIDKey = "adminID"
	RoleKey    = "role"
)

// AuthMiddleware resolves the bearer token (or auth_token cookie) to an
// enabled admin and stores its id and current role in the context.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		admin, err := authService.GetAdminByID(claims.AdminID)
		if err != nil || !admin.Enabled {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account not active"})
			return
		}

		c.Set(AdminIDKey, admin.ID)
		c.Set(RoleKey, admin.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	if cookie, err := c.Cookie("auth_token"); err == nil {
		return cookie
	}
	return ""
}

// RequireRole rejects requests whose role ranks below min.
func RequireRole(min string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !models.RoleAtLeast(c.GetString(RoleKey), min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// AdminID returns the authenticated admin id, or 0.
func AdminID(c *gin.Context) uint {
	if v, ok := c.Get(AdminIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
