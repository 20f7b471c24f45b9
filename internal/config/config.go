package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feature flags that gate endpoints. A flag is on only when its value is "true".
const (
	FlagAllowDemoRoleUpgrade = "ALLOW_DEMO_ROLE_UPGRADE"
	FlagAllowUserManagement  = "ALLOW_USER_MANAGEMENT"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	Database  DatabaseConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Payment   PaymentConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	OTP       OTPConfig

	// EnvFileLoaded is false when no .env file was found
	EnvFileLoaded bool

	flags map[string]bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string // mysql | postgres | sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// PaymentConfig holds QR payment settings
type PaymentConfig struct {
	// QRCodeExpiry of zero disables server-side expiry
	QRCodeExpiry  time.Duration
	QRCodeMaxSkew time.Duration
}

// SecurityConfig holds gateway settings
type SecurityConfig struct {
	DemoOverrideTTL         time.Duration
	UserManagementRateLimit time.Duration
}

// RateLimitConfig selects the rate-limit store
type RateLimitConfig struct {
	Backend       string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// OTPConfig holds one-time-password settings
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	Cooldown    time.Duration
	HashCost    int
	// WebhookURL receives codes in prod; empty means codes are only logged
	WebhookURL   string
	WebhookToken string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	envLoaded := godotenv.Load() == nil

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database, err := loadDatabaseConfig(appMode)
	if err != nil {
		return nil, err
	}
	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:       appMode,
		Port:          getEnv("PORT", "3000"),
		Database:      database,
		JWT:           loadJWTConfig(appMode),
		Cookie:        loadCookieConfig(appMode),
		Payment:       loadPaymentConfig(),
		Security:      loadSecurityConfig(appMode),
		RateLimit:     rateLimit,
		Log:           LogConfig{Level: getEnv("LOG_LEVEL", "info"), Format: getEnv("LOG_FORMAT", "")},
		OTP:           loadOTPConfig(),
		EnvFileLoaded: envLoaded,
		flags: map[string]bool{
			FlagAllowDemoRoleUpgrade: getEnv(FlagAllowDemoRoleUpgrade, "") == "true",
			FlagAllowUserManagement:  getEnv(FlagAllowUserManagement, "") == "true",
		},
	}

	if config.IsProd() && (config.JWT.Secret == defaultJWTSecret || config.JWT.RefreshSecret == defaultRefreshSecret) {
		return nil, fmt.Errorf("JWT secrets must be set in prod mode")
	}

	return config, nil
}

const (
	defaultJWTSecret     = "default_secret"
	defaultRefreshSecret = "default_refresh_secret"
)

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) (DatabaseConfig, error) {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	defaultPort := "3306"
	switch driver {
	case "mysql", "sqlite":
	case "postgres":
		defaultPort = "5432"
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql', 'postgres' or 'sqlite')", driver)
	}

	return DatabaseConfig{
		Driver:     driver,
		Host:       getEnv(prefix+"DB_HOST", "localhost"),
		Port:       getEnv(prefix+"DB_PORT", defaultPort),
		User:       getEnv(prefix+"DB_USER", "root"),
		Password:   getEnv(prefix+"DB_PASS", ""),
		DBName:     getEnv(prefix+"DB_NAME", "unionpass"),
		SQLitePath: getEnv("SQLITE_PATH", "unionpass.db"),
	}, nil
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", defaultRefreshSecret),
		AccessTokenMins:  getEnvInt("ACCESS_TOKEN_MINUTES", 15),
		RefreshTokenDays: getEnvInt("REFRESH_TOKEN_DAYS", 7),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		QRCodeExpiry:  time.Duration(getEnvInt("QR_CODE_EXPIRY_MINUTES", 15)) * time.Minute,
		QRCodeMaxSkew: time.Duration(getEnvInt("QR_CODE_MAX_SKEW_SECONDS", 60)) * time.Second,
	}
}

// loadSecurityConfig loads gateway settings. User management is throttled
// to one call per 10 minutes in prod and 30 seconds in dev.
func loadSecurityConfig(mode string) SecurityConfig {
	defaultMinutes := "10"
	if mode == "dev" {
		defaultMinutes = "0.5"
	}
	minutes, err := strconv.ParseFloat(getEnv("USER_MANAGEMENT_RATE_LIMIT_MINUTES", defaultMinutes), 64)
	if err != nil || minutes < 0 {
		minutes, _ = strconv.ParseFloat(defaultMinutes, 64)
	}

	return SecurityConfig{
		DemoOverrideTTL:         time.Duration(getEnvInt("DEMO_OVERRIDE_HOURS", 24)) * time.Hour,
		UserManagementRateLimit: time.Duration(minutes * float64(time.Minute)),
	}
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	backend := strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory"))
	if backend != "memory" && backend != "redis" {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_BACKEND: '%s' (must be 'memory' or 'redis')", backend)
	}
	return RateLimitConfig{
		Backend:       backend,
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}, nil
}

func loadOTPConfig() OTPConfig {
	return OTPConfig{
		TTL:         time.Duration(getEnvInt("OTP_TTL_MINUTES", 5)) * time.Minute,
		MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		Cooldown:    time.Minute,
		HashCost:    getEnvInt("OTP_HASH_COST", 10),

		WebhookURL:   getEnv("OTP_WEBHOOK_URL", ""),
		WebhookToken: getEnv("OTP_WEBHOOK_TOKEN", ""),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// FlagEnabled reports whether a feature flag is set to "true". Flags not
// captured at load time are read from the environment.
func (c *Config) FlagEnabled(name string) bool {
	if v, ok := c.flags[name]; ok {
		return v
	}
	return os.Getenv(name) == "true"
}

// SetFlag overrides a feature flag
func (c *Config) SetFlag(name string, enabled bool) {
	if c.flags == nil {
		c.flags = make(map[string]bool)
	}
	c.flags[name] = enabled
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		// Default production origins
		return "https://unionpass.app"
	}
	return origins
}
