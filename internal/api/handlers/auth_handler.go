package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/services"
)

const authCookie = "auth_token"

type AuthHandler struct {
	authService   *services.AuthService
	audit         *services.AuditService
	secureCookies bool
}

// NewAuthHandler returns an AuthHandler. secureCookies marks the session
// cookie Secure and should be true outside local development.
func NewAuthHandler(authService *services.AuthService, audit *services.AuditService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, audit: audit, secureCookies: secureCookies}
}

// setSecureCookie sets an HttpOnly, SameSite=Strict auth cookie.
func (h *AuthHandler) setSecureCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(authCookie, value, maxAge, "/", "", h.secureCookies, true)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, admin, err := h.authService.Login(req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrAccountDisabled) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	h.setSecureCookie(c, token, 3600*24)
	c.JSON(http.StatusOK, gin.H{"token": token, "admin": admin})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSecureCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	admin, err := h.authService.GetAdminByID(currentAdmin(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
		return
	}
	c.JSON(http.StatusOK, admin)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := currentAdmin(c)
	if err := h.authService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}

	h.audit.Log(adminID, services.ActionPasswordChanged, auditContext(c, "admin", strconv.FormatUint(uint64(adminID), 10)))
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
