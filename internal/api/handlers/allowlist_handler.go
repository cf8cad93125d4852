package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

// AllowlistHandler manages the global and per-admin IP allowlists.
type AllowlistHandler struct {
	service *services.AllowlistService
	audit   *services.AuditService
}

func NewAllowlistHandler(service *services.AllowlistService, audit *services.AuditService) *AllowlistHandler {
	return &AllowlistHandler{service: service, audit: audit}
}

type AllowlistEntryRequest struct {
	IPAddress   string `json:"ip_address" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (r AllowlistEntryRequest) active() bool {
	return r.IsActive == nil || *r.IsActive
}

func (h *AllowlistHandler) ListGlobal(c *gin.Context) {
	entries, err := h.service.ListGlobal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list global allowlist"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *AllowlistHandler) AddGlobal(c *gin.Context) {
	var req AllowlistEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := &models.GlobalIPAllowlist{
		IPAddress:   req.IPAddress,
		Description: req.Description,
		IsActive:    req.active(),
		CreatedBy:   currentAdmin(c),
	}
	if err := h.service.AddGlobal(entry); err != nil {
		writeAllowlistError(c, err)
		return
	}

	d := auditContext(c, "global_ip_allowlist", strconv.FormatUint(uint64(entry.ID), 10))
	d.NewValues = entry
	h.audit.Log(currentAdmin(c), services.ActionGlobalAllowlistAdded, d)
	c.JSON(http.StatusCreated, entry)
}

func (h *AllowlistHandler) RemoveGlobal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	removed, err := h.service.RemoveGlobal(id)
	if err != nil {
		writeAllowlistError(c, err)
		return
	}

	d := auditContext(c, "global_ip_allowlist", c.Param("id"))
	d.OldValues = removed
	h.audit.Log(currentAdmin(c), services.ActionGlobalAllowlistRemove, d)
	c.JSON(http.StatusOK, gin.H{"message": "Entry removed"})
}

func (h *AllowlistHandler) ListForAdmin(c *gin.Context) {
	adminID, ok := parseID(c, "adminId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin id"})
		return
	}
	entries, err := h.service.ListForAdmin(adminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list admin allowlist"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *AllowlistHandler) AddForAdmin(c *gin.Context) {
	adminID, ok := parseID(c, "adminId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin id"})
		return
	}
	var req AllowlistEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := &models.AdminIPAllowlist{
		AdminID:     adminID,
		IPAddress:   req.IPAddress,
		Description: req.Description,
		IsActive:    req.active(),
		CreatedBy:   currentAdmin(c),
	}
	if err := h.service.AddForAdmin(entry); err != nil {
		writeAllowlistError(c, err)
		return
	}

	d := auditContext(c, "admin_ip_allowlist", strconv.FormatUint(uint64(entry.ID), 10))
	d.NewValues = entry
	h.audit.Log(currentAdmin(c), services.ActionAdminAllowlistAdded, d)
	c.JSON(http.StatusCreated, entry)
}

func (h *AllowlistHandler) RemoveForAdmin(c *gin.Context) {
	adminID, ok := parseID(c, "adminId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin id"})
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	removed, err := h.service.RemoveForAdmin(adminID, id)
	if err != nil {
		writeAllowlistError(c, err)
		return
	}

	d := auditContext(c, "admin_ip_allowlist", c.Param("id"))
	d.OldValues = removed
	h.audit.Log(currentAdmin(c), services.ActionAdminAllowlistRemove, d)
	c.JSON(http.StatusOK, gin.H{"message": "Entry removed"})
}

// Check reports how the allowlists treat the caller's own address.
func (h *AllowlistHandler) Check(c *gin.Context) {
	d := h.service.Check(currentAdmin(c), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"ip":      c.ClientIP(),
		"allowed": d.Allowed,
		"reason":  d.Reason,
	})
}

func writeAllowlistError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAllowlistEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAllowlistEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Allowlist update failed"})
	}
}
