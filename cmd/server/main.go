package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/vibhor121/mastersunion/internal/api"
	"github.com/vibhor121/mastersunion/internal/auth"
	"github.com/vibhor121/mastersunion/internal/database"
	"github.com/vibhor121/mastersunion/internal/mail"
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

	logger.Info("starting CRM server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it mail is sent in-process and the
	// dashboard is not cached.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var (
		emails      mail.Queue
		asynqClient *asynq.Client
		localMail   *mail.AsyncQueue
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		emails = tasks.NewEmailQueue(asynqClient)
	} else {
		localMail = mail.NewAsyncQueue(mail.NewSMTPSender(cfg.SMTP, logger), 2, 256, logger)
		emails = localMail
	}

	composer, err := mail.NewComposer()
	if err != nil {
		logger.Error("failed to load mail templates", "error", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	hub := realtime.NewHub(realtime.NewDirectory(), logger)

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		Hub:            hub,
		Emails:         emails,
		Composer:       composer,
		AllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		DashboardTTL:   cfg.Dashboard.CacheTTL(),
	})

	// WriteTimeout stays zero so websocket connections are not cut off.
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	router.Close()

	if localMail != nil {
		localMail.Close()
	}
	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
