package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/adapters/http/routes"
	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/config"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/logger"
	"unionpass-api/internal/pkg/metrics"
	"unionpass-api/internal/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "unionpass-api/docs" // Swagger docs
)

// @title UnionPass API
// @version 1.0
// @description UnionPass membership payments, role administration and transaction history
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@unionpass.app

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(logger.Config{
		ServiceName: "unionpass-api",
		Environment: cfg.AppMode,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if !cfg.EnvFileLoaded {
		log.Info("no .env file found, using process environment")
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = config.CloseDatabase() }()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to auto migrate", zap.Error(err))
	}
	log.Info("database migration completed")

	// Seed the demo tenant (development only)
	if cfg.IsDev() {
		if err := config.NewSeeder(db, log).Run(); err != nil {
			log.Warn("failed to seed demo data", zap.Error(err))
		}
	}

	clk := clock.New()
	m := metrics.New(cfg.AppMode)

	limiter, closeLimiter := buildLimiter(cfg, clk, log)
	defer closeLimiter()

	otpService := services.NewOTPService(services.OTPOptions{
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
		Cooldown:    cfg.OTP.Cooldown,
		HashCost:    cfg.OTP.HashCost,
	}, clk, log)

	var sender services.OTPSender = services.NewLogOTPSender(log, cfg.IsDev())
	if notify := services.NewNotificationService(cfg.OTP.WebhookURL, cfg.OTP.WebhookToken, log); notify.IsEnabled() {
		sender = notify
	}

	// Start maintenance cron (every 10 minutes)
	cronService := services.NewCronService(
		repositories.NewRoleOverrideRepository(db),
		repositories.NewRefreshTokenRepository(db),
		otpService,
		limiter,
		clk,
		m,
		log,
	)
	if err := cronService.Start(); err != nil {
		log.Fatal("failed to start cron", zap.Error(err))
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "UnionPass API v1.0",
		ErrorHandler: middleware.ErrorHandler(log),
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, routes.Dependencies{
		DB:      db,
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		Limiter: limiter,
		OTP:     otpService,
		Sender:  sender,
		Clock:   clk,
	})

	// Graceful shutdown
	go gracefulShutdown(app, log)

	// Start server
	log.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// buildLimiter returns the gateway rate-limit store and its close function
func buildLimiter(cfg *config.Config, clk clock.Clock, log *zap.Logger) (ratelimit.Store, func()) {
	if cfg.RateLimit.Backend != "redis" {
		return ratelimit.NewMemoryStore(clk), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.String("addr", cfg.RateLimit.RedisAddr), zap.Error(err))
	}
	log.Info("rate limiting backed by redis", zap.String("addr", cfg.RateLimit.RedisAddr))

	return ratelimit.NewRedisStore(client), func() { _ = client.Close() }
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
