package routes

import (
	"unionpass-api/internal/adapters/http/handlers"
	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/config"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/metrics"
	"unionpass-api/internal/pkg/qrtoken"
	"unionpass-api/internal/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the shared components built by main
type Dependencies struct {
	DB      *gorm.DB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Limiter ratelimit.Store
	OTP     *services.OTPService
	Sender  services.OTPSender
	Clock   clock.Clock
	// CheckDB overrides the database ping used by /health
	CheckDB func() error
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	log := deps.Logger

	// Initialize repositories
	userRepo := repositories.NewUserRepository(deps.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(deps.DB)
	overrideRepo := repositories.NewRoleOverrideRepository(deps.DB)
	accessRepo := repositories.NewAccessRepository(deps.DB)
	membershipRepo := repositories.NewMembershipRepository(deps.DB)
	transactionRepo := repositories.NewTransactionRepository(deps.DB)
	auditRepo := repositories.NewAuditLogRepository(deps.DB)

	// Initialize services
	codec := qrtoken.NewCodec(deps.Clock)
	auditService := services.NewAuditService(auditRepo, deps.Clock, deps.Metrics, log)
	identityService := services.NewIdentityService(userRepo, overrideRepo, deps.Clock, cfg.IsDev(), log)
	gateway := services.NewGatewayService(identityService, deps.Limiter, cfg, cfg.IsDev(), deps.Metrics, log)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, deps.OTP, deps.Sender, cfg, log)
	userService := services.NewUserService(userRepo, accessRepo, auditService, log)
	upgradeService := services.NewDemoUpgradeService(overrideRepo, auditService, deps.Clock, cfg.Security.DemoOverrideTTL, log)
	accessService := services.NewAccessService(userRepo, accessRepo, log)
	chargeService := services.NewChargeService(
		deps.DB,
		membershipRepo,
		transactionRepo,
		userRepo,
		codec,
		deps.Clock,
		services.ChargeOptions{
			QRExpiry: cfg.Payment.QRCodeExpiry,
			QRSkew:   cfg.Payment.QRCodeMaxSkew,
		},
		deps.Metrics,
		log,
	)
	historyService := services.NewHistoryService(transactionRepo)
	membershipService := services.NewMembershipService(membershipRepo, codec, deps.Clock, cfg.Payment.QRCodeExpiry)

	// Initialize handlers
	h := &handlerSet{
		health:      handlers.NewHealthHandler(cfg, deps.CheckDB),
		auth:        handlers.NewAuthHandler(authService, cfg),
		user:        handlers.NewUserHandler(userService),
		upgrade:     handlers.NewUpgradeHandler(upgradeService),
		transaction: handlers.NewTransactionHandler(chargeService, historyService, accessService, auditService),
		access:      handlers.NewAccessHandler(accessService, auditService),
		membership:  handlers.NewMembershipHandler(membershipService),
	}

	// Health check & root routes
	app.Get("/", h.health.Root)
	app.Get("/health", h.health.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Prometheus scrape endpoint
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	// API v1 group. Every request carries the authenticated subject, if any.
	apiV1 := app.Group("/api/v1", middleware.AuthMiddleware(authService))
	setupAPIV1Routes(apiV1, h, gateway, cfg)
}

type handlerSet struct {
	health      *handlers.HealthHandler
	auth        *handlers.AuthHandler
	user        *handlers.UserHandler
	upgrade     *handlers.UpgradeHandler
	transaction *handlers.TransactionHandler
	access      *handlers.AccessHandler
	membership  *handlers.MembershipHandler
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(router fiber.Router, h *handlerSet, gateway *services.GatewayService, cfg *config.Config) {
	authenticated := middleware.Protect(gateway, services.GuardConfig{RequireAuth: true})

	// API Info
	router.Get("/", h.health.APIInfo)

	// Auth routes (public)
	setupAuthRoutes(router.Group("/auth"), h.auth, authenticated)

	// Role administration
	setupAdminRoutes(router.Group("/admin"), h, gateway, cfg)

	// Point-of-sale charges and ledger
	transactionRoutes := router.Group("/transactions", middleware.NoCacheHeaders())
	setupTransactionRoutes(transactionRoutes, h.transaction, gateway, authenticated)

	// Company and venue associations
	setupAccessRoutes(router.Group("/access"), h.access, gateway, authenticated)

	// Customer memberships and QR codes
	membershipRoutes := router.Group("/memberships", middleware.NoCacheHeaders(), authenticated)
	membershipRoutes.Get("/", h.membership.ListMine)
	membershipRoutes.Get("/:id/qr", h.membership.IssueQR)

	// Diagnostics (development only)
	router.Get("/debug/env", middleware.Protect(gateway, services.GuardConfig{DevelopmentOnly: true}), h.health.DebugEnv)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, authenticated fiber.Handler) {
	// OTP routes (5 req/min/IP)
	router.Post("/otp/request", middleware.AuthRateLimiter(), handler.RequestOTP)
	router.Post("/otp/verify", middleware.AuthRateLimiter(), handler.VerifyOTP)

	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", authenticated, handler.Me)
	router.Post("/logout-all", authenticated, handler.LogoutAll)
}

// setupAdminRoutes configures user role and demo upgrade routes
func setupAdminRoutes(router fiber.Router, h *handlerSet, gateway *services.GatewayService, cfg *config.Config) {
	setRole := services.GuardConfig{
		RequireAuth:     true,
		RequireRole:     domain.RoleSuperAdmin,
		RateLimitKey:    "user_creation",
		RateLimitWindow: cfg.Security.UserManagementRateLimit,
	}
	// The flag only gates production; development always allows it
	if cfg.IsProd() {
		setRole.RequireEnvFlag = config.FlagAllowUserManagement
	}

	router.Post("/users", middleware.Protect(gateway, setRole), h.user.SetUserRole)

	viewUsers := middleware.Protect(gateway, services.GuardConfig{RequireAuth: true, RequireRole: domain.RoleCompanyAdmin})
	router.Get("/users", viewUsers, h.user.GetUsers)
	router.Get("/users/:id", viewUsers, h.user.GetUser)

	upgrade := middleware.Protect(gateway, services.GuardConfig{
		RequireAuth:    true,
		RequireEnvFlag: config.FlagAllowDemoRoleUpgrade,
	})
	router.Post("/upgrade", upgrade, h.upgrade.Upgrade)
	router.Get("/upgrade", upgrade, h.upgrade.Status)
	router.Delete("/upgrade", upgrade, h.upgrade.Clear)
}

// setupTransactionRoutes configures charge and history routes
func setupTransactionRoutes(router fiber.Router, handler *handlers.TransactionHandler, gateway *services.GatewayService, authenticated fiber.Handler) {
	staff := middleware.Protect(gateway, services.GuardConfig{RequireAuth: true, RequireRole: domain.RoleStaff})

	router.Get("/process", staff, handler.LookupCustomer)
	router.Post("/process", staff, handler.ProcessCharge)
	router.Get("/history", authenticated, handler.History)
}

// setupAccessRoutes configures company and venue association routes
func setupAccessRoutes(router fiber.Router, handler *handlers.AccessHandler, gateway *services.GatewayService, authenticated fiber.Handler) {
	companyAdmin := middleware.Protect(gateway, services.GuardConfig{RequireAuth: true, RequireRole: domain.RoleCompanyAdmin})

	users := router.Group("/users")
	users.Get("/:id/permissions", authenticated, handler.Permissions)
	users.Get("/:id/companies", authenticated, handler.Companies)
	users.Get("/:id/venues", authenticated, handler.Venues)

	users.Post("/:id/companies", companyAdmin, handler.AssignCompany)
	users.Delete("/:id/companies/:companyId", companyAdmin, handler.RemoveCompany)
	users.Post("/:id/venues", companyAdmin, handler.AssignVenue)
	users.Delete("/:id/venues/:venueId", companyAdmin, handler.RemoveVenue)
}
