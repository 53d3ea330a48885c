// @title EventHorizon API
// @version 1.0
// @description Event planning service: users, events, registrations, and email reminders.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventhorizon/config"
	_ "eventhorizon/docs"
	"eventhorizon/internal/adapters/auth"
	"eventhorizon/internal/adapters/email"
	httpdelivery "eventhorizon/internal/delivery/http"
	"eventhorizon/internal/delivery/http/controllers"
	"eventhorizon/internal/delivery/http/middleware"
	"eventhorizon/internal/observability/metrics"
	"eventhorizon/internal/repository/postgres"
	"eventhorizon/internal/scheduler"
	"eventhorizon/internal/services"
)

func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	metrics.MustRegister()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	regRepo := postgres.NewRegistrationRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(10)
	issuer, verifier := auth.NewJWTCodec(cfg.JWTSecret)
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}

	// Services
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), cfg.Timezone)
	authSvc := services.NewAuthService(userRepo, hasher, issuer, emailSvc, cfg.JWTExpiry, logger)
	eventSvc := services.NewEventService(eventRepo, cfg.Timezone)
	attendeeSvc := services.NewAttendeeService(eventRepo, regRepo, cfg.Timezone)
	reminderSvc := services.NewReminderService(eventRepo, regRepo, emailSvc, cfg.ReminderWindow, cfg.Timezone, logger)

	sched := scheduler.New(reminderSvc, cfg.ReminderInterval, logger)

	mux := httpdelivery.NewRouter(
		controllers.NewAuthController(logger, authSvc),
		controllers.NewEventController(logger, eventSvc),
		controllers.NewAttendeeController(logger, attendeeSvc),
		controllers.NewReminderController(logger, sched),
		verifier,
	)
	handler := middleware.LoggingMiddleware(logger, mux)
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
