package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/vibhor121/mastersunion/internal/activities"
	"github.com/vibhor121/mastersunion/internal/database"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/notifications"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"github.com/vibhor121/mastersunion/internal/tasks"
	"github.com/vibhor121/mastersunion/pkg/config"
	"github.com/vibhor121/mastersunion/pkg/queue"
	"github.com/vibhor121/mastersunion/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting CRM worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	composer, err := mail.NewComposer()
	if err != nil {
		logger.Error("failed to load mail templates", "error", err)
		os.Exit(1)
	}

	// Reminder mail goes back through the queue so it gets the email task's
	// retries. The worker holds no websocket connections.
	client := queue.NewClient(&cfg.Redis)
	emails := tasks.NewEmailQueue(client)
	notifier := notifications.NewNotifier(notifications.NewStore(db), realtime.Nop{}, logger)
	activityService := activities.NewService(db, notifier, realtime.Nop{}, emails, composer, logger)

	sender := mail.NewSMTPSender(cfg.SMTP, logger)
	if !cfg.SMTP.Enabled() {
		logger.Warn("SMTP_HOST not set, outbound email will fail")
	}

	handler := tasks.NewHandler(sender, activityService, cfg.Reminder.Window(), logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	schedule, err := util.ParseSchedule(cfg.Reminder.CronSpec)
	if err != nil {
		logger.Error("invalid REMINDER_CRON", "error", err)
		os.Exit(1)
	}
	now := time.Now()
	if gap := schedule.MaxGap(now, 32); gap > cfg.Reminder.Window() {
		logger.Warn("reminder sweep runs less often than the reminder window, some reminders will be late",
			"cron", schedule.String(), "max_gap", gap, "window", cfg.Reminder.Window())
	}

	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := tasks.RegisterSchedule(scheduler, schedule)
	if err != nil {
		logger.Error("failed to register reminder sweep", "cron", schedule.String(), "error", err)
		os.Exit(1)
	}
	logger.Info("reminder sweep scheduled", "entry_id", entryID, "cron", schedule.String(), "next_run", schedule.Next(now))

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, 10)
	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	client.Close()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
