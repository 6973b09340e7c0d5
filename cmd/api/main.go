package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/lexhaven/firmportal/internal/http/handlers"
	"github.com/lexhaven/firmportal/internal/mailer"
	"github.com/lexhaven/firmportal/internal/otp"
	"github.com/lexhaven/firmportal/internal/repo/postgres"
	"github.com/lexhaven/firmportal/internal/service"
	"github.com/lexhaven/firmportal/pkg/config"
	"github.com/lexhaven/firmportal/pkg/database"
	"github.com/lexhaven/firmportal/pkg/events"
	"github.com/lexhaven/firmportal/pkg/logger"
	mw "github.com/lexhaven/firmportal/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Redis backs the OTP store and rate limiting when configured;
	// without it codes live in memory and limiting is off.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid Redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var otpStore otp.Store
	if redisClient != nil {
		otpStore = otp.NewRedisStore(redisClient, "otp")
	} else {
		otpStore = otp.NewMemoryStore()
	}

	var eventBus events.Publisher
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		eventBus = bus
	}

	mailSvc := selectMailer(cfg)
	otpIssuer := otp.NewIssuer(otpStore, mailSvc, cfg.OTP.TTL)

	userRepo := postgres.NewUserRepository(pool)
	caseRepo := postgres.NewCaseRepository(pool)

	registrationService := service.NewRegistrationService(userRepo, otpIssuer, eventBus, cfg)
	caseService := service.NewCaseService(caseRepo, eventBus)

	h := handlers.New(registrationService, caseService, cfg)

	registrationLimit := mw.NewRateLimiter(redisClient, "reg", 5, 15*time.Minute)
	generalLimit := mw.NewRateLimiter(redisClient, "api", 100, 15*time.Minute)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(generalLimit.Middleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(registrationLimit.Middleware)
				r.Post("/register/step1", h.RegisterStep1)
				r.Post("/send-otp", h.SendOTP)
				r.Post("/verify-otp", h.VerifyOTP)
			})

			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)

			r.Get("/check-email", h.CheckEmail)
			r.Get("/check-firm-name", h.CheckFirmName)
			r.Get("/check-license", h.CheckLicense)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireSession)
				r.Post("/register/step2", h.RegisterStep2)
				r.Get("/profile", h.Profile)
			})
		})

		r.Route("/cases", func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/", h.CreateCase)
			r.Get("/", h.ListCases)
			r.Get("/{id}", h.GetCase)
			r.Put("/{id}", h.UpdateCase)
			r.Delete("/{id}", h.DeleteCase)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func selectMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		logger.Info("Email dev mode enabled, codes will be logged")
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		ms, err := mailer.NewMailerSendMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
		if err == nil {
			return ms
		}
		logger.Warn("MailerSend unavailable, falling back to SMTP", "error", err)
	}
	return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
}
