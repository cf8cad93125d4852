package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/api/handlers"
	"github.com/voicedesk/backoffice/internal/api/middleware"
	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

// Services groups the long-lived services shared by the router and the
// background sweep.
type Services struct {
	Notifications   *services.NotificationService
	Audit           *services.AuditService
	Abuse           *services.AbuseService
	Auth            *services.AuthService
	Allowlist       *services.AllowlistService
	WebhookSecurity *services.WebhookSecurityService
}

// NewServices builds the service graph on top of db.
func NewServices(db *gorm.DB, cfg config.Config) *Services {
	notifications := services.NewNotificationService(db)
	abuse := services.NewAbuseService(db, cfg.Abuse, notifications)
	return &Services{
		Notifications:   notifications,
		Audit:           services.NewAuditService(db, notifications),
		Abuse:           abuse,
		Auth:            services.NewAuthService(db, cfg, abuse),
		Allowlist:       services.NewAllowlistService(db),
		WebhookSecurity: services.NewWebhookSecurityService(db, cfg.Webhooks),
	}
}

// Register wires up API routes. registry may be nil, in which case /metrics
// is not served.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, svc *Services, registry *prometheus.Registry) {
	router.GET("/api/v1/health", handlers.HealthHandler(db))
	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Audit, !cfg.IsDevelopment())
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	// Provider callbacks authenticate by signature, not by admin session.
	webhookHandler := handlers.NewWebhookHandler(svc.Abuse)
	api.POST("/webhooks/:provider/:endpoint", middleware.WebhookSignature(svc.WebhookSecurity), webhookHandler.Receive)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(svc.Auth), middleware.IPAllowlist(svc.Allowlist))

	viewer := middleware.RequireRole(models.RoleViewer)
	support := middleware.RequireRole(models.RoleSupport)
	admin := middleware.RequireRole(models.RoleAdmin)
	superAdmin := middleware.RequireRole(models.RoleSuperAdmin)

	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

	adminHandler := handlers.NewAdminHandler(svc.Auth, svc.Audit)
	protected.GET("/admins", superAdmin, adminHandler.List)
	protected.POST("/admins", superAdmin, adminHandler.Create)

	allowlist := handlers.NewAllowlistHandler(svc.Allowlist, svc.Audit)
	protected.GET("/security/allowlist/check", allowlist.Check)
	protected.GET("/security/allowlist/global", superAdmin, allowlist.ListGlobal)
	protected.POST("/security/allowlist/global", superAdmin, allowlist.AddGlobal)
	protected.DELETE("/security/allowlist/global/:id", superAdmin, allowlist.RemoveGlobal)
	protected.GET("/security/allowlist/admins/:adminId", admin, allowlist.ListForAdmin)
	protected.POST("/security/allowlist/admins/:adminId", admin, allowlist.AddForAdmin)
	protected.DELETE("/security/allowlist/admins/:adminId/:id", admin, allowlist.RemoveForAdmin)

	webhooks := handlers.NewWebhookSecurityHandler(svc.WebhookSecurity, svc.Audit)
	protected.GET("/security/webhooks", admin, webhooks.List)
	protected.PUT("/security/webhooks", admin, webhooks.Upsert)
	protected.GET("/security/webhooks/logs", admin, webhooks.Logs)
	protected.GET("/security/webhooks/:id", admin, webhooks.Get)
	protected.DELETE("/security/webhooks/:id", admin, webhooks.Delete)
	protected.POST("/security/webhooks/:id/rotate-secret", admin, webhooks.RotateSecret)

	abuse := handlers.NewAbuseHandler(svc.Abuse, svc.Audit)
	protected.GET("/security/alerts", viewer, abuse.ListAlerts)
	protected.GET("/security/alerts/stats", viewer, abuse.Stats)
	protected.GET("/security/alerts/:id", viewer, abuse.GetAlert)
	protected.POST("/security/alerts/:id/resolve", support, abuse.Resolve)
	protected.POST("/security/sweep", admin, abuse.Sweep)

	activity := handlers.NewActivityLogHandler(svc.Audit)
	protected.GET("/activity-logs", admin, activity.List)

	notifications := handlers.NewNotificationHandler(svc.Notifications)
	protected.GET("/notifications", viewer, notifications.List)
	protected.GET("/notifications/unread-count", viewer, notifications.UnreadCount)
	protected.POST("/notifications/:id/read", viewer, notifications.MarkAsRead)
	protected.POST("/notifications/read-all", viewer, notifications.MarkAllAsRead)

	providers := handlers.NewNotificationProviderHandler(svc.Notifications, svc.Audit)
	protected.GET("/notifications/providers", admin, providers.List)
	protected.POST("/notifications/providers", admin, providers.Create)
	protected.POST("/notifications/providers/test", admin, providers.Test)
	protected.DELETE("/notifications/providers/:id", admin, providers.Delete)
}
