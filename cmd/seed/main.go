package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/database"
	"github.com/voicedesk/backoffice/internal/models"
	"github.com/voicedesk/backoffice/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	fmt.Println("✓ Database migrated successfully")

	// Seed the first super admin
	email := getEnv("VOICEDESK_SEED_EMAIL", "admin@example.com")
	password := getEnv("VOICEDESK_SEED_PASSWORD", "changeme123")
	auth := services.NewAuthService(db, cfg, nil)
	admin, err := auth.CreateAdmin(email, password, "Administrator", models.RoleSuperAdmin)
	switch {
	case errors.Is(err, services.ErrAdminExists):
		fmt.Printf("  Admin already exists: %s\n", email)
	case err != nil:
		log.Fatal("Failed to seed admin:", err)
	default:
		fmt.Printf("✓ Created super admin: %s (id %d)\n", admin.Email, admin.ID)
	}

	// Seed webhook security settings
	webhooks := services.NewWebhookSecurityService(db, cfg.Webhooks)
	settings := []models.WebhookSecuritySetting{
		{
			ProviderName:       "twilio",
			WebhookEndpoint:    "calls",
			Algorithm:          "twilio",
			Enabled:            true,
			RequireSignature:   false,
			RateLimitPerMinute: 120,
		},
		{
			ProviderName:       "stripe",
			WebhookEndpoint:    "payments",
			Algorithm:          "hmac_sha256",
			Enabled:            true,
			RequireSignature:   false,
			RateLimitPerMinute: 60,
		},
	}
	for i := range settings {
		saved, err := webhooks.Upsert(&settings[i])
		if err != nil {
			log.Printf("Failed to seed webhook setting %s/%s: %v", settings[i].ProviderName, settings[i].WebhookEndpoint, err)
			continue
		}
		if saved.HasSecret() {
			fmt.Printf("  Webhook setting already exists: %s/%s\n", saved.ProviderName, saved.WebhookEndpoint)
			continue
		}
		secret, err := webhooks.RotateSecret(saved.ID)
		if err != nil {
			log.Printf("Failed to generate secret for %s/%s: %v", saved.ProviderName, saved.WebhookEndpoint, err)
			continue
		}
		fmt.Printf("✓ Webhook setting %s/%s (secret %s)\n", saved.ProviderName, saved.WebhookEndpoint, secret)
	}

	fmt.Println("\n✓ Database seeded successfully!")
	fmt.Println("  Signatures are not required yet; enable require_signature once providers are configured.")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
