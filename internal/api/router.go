package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/vibhor121/mastersunion/internal/activities"
	"github.com/vibhor121/mastersunion/internal/api/handlers"
	"github.com/vibhor121/mastersunion/internal/api/middleware"
	"github.com/vibhor121/mastersunion/internal/auth"
	"github.com/vibhor121/mastersunion/internal/dashboard"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/leads"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/notifications"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"github.com/vibhor121/mastersunion/internal/users"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client // optional: readiness and dashboard cache
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	Hub            *realtime.Hub
	Emails         mail.Queue
	Composer       *mail.Composer
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
	DashboardTTL   time.Duration
}

// Auth endpoints get a tighter per-IP budget than the rest of the API.
const (
	authRateLimitReqs = 20
	authRateLimitSecs = 60
)

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	hub := cfg.Hub
	if hub == nil {
		hub = realtime.NewHub(realtime.NewDirectory(), cfg.Logger)
	}
	emails := cfg.Emails
	if emails == nil {
		emails = mail.NopQueue{}
	}

	composer := cfg.Composer
	if composer == nil {
		var err error
		if composer, err = mail.NewComposer(); err != nil {
			panic("loading email templates: " + err.Error())
		}
	}

	var cache dashboard.Cache = dashboard.NoCache{}
	if cfg.Redis != nil {
		cache = dashboard.NewRedisCache(cfg.Redis, cfg.Logger)
	}

	// Services
	authService := auth.NewService(cfg.DB, cfg.JWTService)
	notificationStore := notifications.NewStore(cfg.DB)
	notifier := notifications.NewNotifier(notificationStore, hub, cfg.Logger)
	dashboardService := dashboard.NewService(cfg.DB, cache, cfg.DashboardTTL, cfg.Logger)
	leadService := leads.NewService(cfg.DB, notifier, hub, emails, composer, cfg.Logger).
		WithCache(dashboardService)
	activityService := activities.NewService(cfg.DB, notifier, hub, emails, composer, cfg.Logger).
		WithCache(dashboardService)
	userService := users.NewService(cfg.DB, cfg.Logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(authService, cfg.Logger)
	leadHandler := handlers.NewLeadHandler(leadService, cfg.Logger)
	activityHandler := handlers.NewActivityHandler(activityService, cfg.Logger)
	notificationHandler := handlers.NewNotificationHandler(notificationStore, cfg.Logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, cfg.Logger)
	userHandler := handlers.NewUserHandler(userService, cfg.Logger)
	wsHandler := realtime.NewHandler(hub, cfg.JWTService, authService, leadService.CanView, allowedOrigins, cfg.Logger)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", wsHandler)

	requireAuth := middleware.Auth(cfg.JWTService, authService)
	privileged := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitReqs > 0 {
			r.Use(middleware.RateLimit(router.limiter(cfg.RateLimitReqs, cfg.RateLimitSecs)))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(router.limiter(authRateLimitReqs, authRateLimitSecs)))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Put("/change-password", authHandler.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/leads", func(r chi.Router) {
				r.Get("/", leadHandler.List)
				r.Post("/", leadHandler.Create)
				r.Get("/{id}", leadHandler.Get)
				r.Put("/{id}", leadHandler.Update)
				r.Patch("/{id}", leadHandler.Update)
				r.With(privileged).Delete("/{id}", leadHandler.Delete)
				r.Get("/{id}/history", leadHandler.History)

				r.Get("/{id}/activities", activityHandler.ListForLead)
				r.Post("/{id}/activities", activityHandler.Create)
			})

			r.Route("/activities", func(r chi.Router) {
				r.Get("/upcoming", activityHandler.Upcoming)
				r.Get("/{id}", activityHandler.Get)
				r.Put("/{id}", activityHandler.Update)
				r.Delete("/{id}", activityHandler.Delete)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", dashboardHandler.Stats)
				r.Get("/leads-by-status", dashboardHandler.LeadsByStatus)
				r.Get("/leads-by-priority", dashboardHandler.LeadsByPriority)
				r.Get("/leads-timeline", dashboardHandler.Timeline)
				r.With(privileged).Get("/top-performers", dashboardHandler.TopPerformers)
				r.Get("/activity-stats", dashboardHandler.ActivityStats)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Put("/read-all", notificationHandler.MarkAllRead)
				r.Put("/{id}/read", notificationHandler.MarkRead)
				r.Delete("/{id}", notificationHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(privileged).Get("/", userHandler.List)
				r.With(privileged).Get("/sales-executives", userHandler.Assignable)
				r.With(middleware.RequireRole(models.RoleAdmin)).Post("/", userHandler.Create)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.With(middleware.RequireRole(models.RoleAdmin)).Delete("/{id}", userHandler.Delete)
			})
		})
	})

	return router
}

func (rt *Router) limiter(requests, windowSeconds int) *middleware.RateLimiter {
	l := middleware.NewRateLimiter(requests, windowSeconds)
	rt.limiters = append(rt.limiters, l)
	return l
}

// Close stops background work owned by the router.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}

var _ http.Handler = (*Router)(nil)
