package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/services"
)

type AdminHandler struct {
	authService *services.AuthService
	audit       *services.AuditService
}

func NewAdminHandler(authService *services.AuthService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{authService: authService, audit: audit}
}

func (h *AdminHandler) List(c *gin.Context) {
	admins, err := h.authService.ListAdmins()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list admins"})
		return
	}
	c.JSON(http.StatusOK, admins)
}

type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func (h *AdminHandler) Create(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.authService.CreateAdmin(req.Email, req.Password, req.Name, req.Role)
	switch {
	case errors.Is(err, services.ErrAdminExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin"})
		return
	}

	d := auditContext(c, "admin", strconv.FormatUint(uint64(admin.ID), 10))
	d.NewValues = map[string]string{"email": admin.Email, "role": admin.Role}
	h.audit.Log(currentAdmin(c), services.ActionAdminCreated, d)

	c.JSON(http.StatusCreated, admin)
}
