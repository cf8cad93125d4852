package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/api/routes"
	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/database"
	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/metrics"
	"github.com/voicedesk/backoffice/internal/server"
	"github.com/voicedesk/backoffice/internal/services"
	"github.com/voicedesk/backoffice/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	// Setup logging with rotation
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		logger.Log().WithError(err).Fatal("create log directory")
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "voicedesk.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.IsDevelopment(), io.MultiWriter(os.Stdout, rotator))

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log().WithError(err).Fatal("connect database")
	}

	// Handle CLI commands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "sweep":
			runSweep(db, cfg)
			return
		case "reset-password":
			if len(os.Args) != 4 {
				logger.Log().Fatalf("Usage: %s reset-password <email> <new-password>", os.Args[0])
			}
			authService := services.NewAuthService(db, cfg, nil)
			if err := authService.ResetPassword(os.Args[2], os.Args[3]); err != nil {
				logger.Log().WithError(err).Fatal("reset password")
			}
			logger.Log().WithField("email", os.Args[2]).Info("password updated")
			return
		}
	}

	logger.Log().Infof("starting %s %s", version.Name, version.Full())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	svc := routes.NewServices(db, cfg)

	sched := cron.New()
	if cfg.SweepSchedule != "" {
		if _, err := sched.AddFunc(cfg.SweepSchedule, func() {
			if _, err := svc.Abuse.RunOnce(); err != nil {
				logger.Component("abuse").WithError(err).Warn("scheduled sweep finished with errors")
			}
		}); err != nil {
			logger.Log().WithError(err).Fatal("invalid sweep schedule")
		}
		sched.Start()
		logger.Component("abuse").WithField("schedule", cfg.SweepSchedule).Info("abuse sweep scheduled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(db, cfg, svc, registry)
	if err != nil {
		logger.Log().WithError(err).Fatal("build server")
	}
	logger.Log().WithField("port", cfg.HTTPPort).Info("listening")
	err = srv.Run(ctx)

	<-sched.Stop().Done()
	svc.Notifications.Wait()
	if err != nil {
		logger.Log().WithError(err).Fatal("server error")
	}
}

// runSweep runs every abuse detector once and waits for alert deliveries.
func runSweep(db *gorm.DB, cfg config.Config) {
	notifications := services.NewNotificationService(db)
	abuse := services.NewAbuseService(db, cfg.Abuse, notifications)

	result, err := abuse.RunOnce()
	notifications.Wait()
	if err != nil {
		logger.Component("abuse").WithError(err).Fatal("sweep finished with errors")
	}
	logger.Component("abuse").WithField("raised", result.AlertsRaised).Info("sweep complete")
}
