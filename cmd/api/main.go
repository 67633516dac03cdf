package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/config"
	"github.com/synesthesie/verification/internal/handlers"
	"github.com/synesthesie/verification/internal/middleware"
	"github.com/synesthesie/verification/internal/models"
	"github.com/synesthesie/verification/internal/services"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.New()
	setupLogger(cfg)
	if envErr != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	clock := services.SystemClock{}
	emailService := services.NewEmailService(cfg)
	smsService := services.NewSMSService(cfg)
	dispatcher := services.NewNotificationDispatcher(emailService, smsService, services.NewDispatcherConfig(cfg))
	dispatcher.Start()

	codeStore := services.NewGormCodeStore(db, clock)
	codeService := services.NewSecurityCodeService(codeStore, dispatcher, clock)
	auditService := services.NewAuditService(db, clock)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	codeHandler := handlers.NewSecurityCodeHandler(codeService, auditService)
	adminHandler := handlers.NewAdminHandler(auditService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	{
		limited := api.Group("/security-codes")
		limited.Use(middleware.RateLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitDuration))
		{
			limited.POST("", codeHandler.Issue)
			limited.POST("/verify", codeHandler.Verify)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(cfg.JWTSecret))
		{
			admin.GET("/security-codes", codeHandler.Search)
			admin.GET("/security-codes/:id", codeHandler.Get)
			admin.POST("/security-codes/:id/resend", codeHandler.Resend)
			admin.DELETE("/security-codes/:id", codeHandler.Delete)

			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	// queued notifications still go out
	if err := dispatcher.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("notification dispatcher did not drain")
	}

	log.Info().Msg("server exited")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
