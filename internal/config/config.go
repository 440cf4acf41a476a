package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Log        LogConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr             string
	Password         string //nolint:gosec // G117: Redis connection config
	DB               int
	IdentityCacheTTL time.Duration
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// TenantRPS and TenantBurst bound authenticated traffic per tenant.
	TenantRPS   float64
	TenantBurst int
	// LoginRPS and LoginBurst bound login attempts per client IP.
	LoginRPS   float64
	LoginBurst int
}

// LogConfig controls the global zerolog logger.
type LogConfig struct {
	Level  zerolog.Level
	Format string // "json" or "text"
}

// Load reads configuration from environment variables. An optional dotenv
// file (COMPLAINTDESK_ENV_FILE, default ".env") is read first; variables
// already present in the environment win.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("COMPLAINTDESK_ENV_FILE", ".env")); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbPort, err := getEnvInt("COMPLAINTDESK_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("COMPLAINTDESK_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("COMPLAINTDESK_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	identityTTL, err := getEnvDuration("COMPLAINTDESK_IDENTITY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("COMPLAINTDESK_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("COMPLAINTDESK_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("COMPLAINTDESK_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("COMPLAINTDESK_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tenantRPS, err := getEnvFloat("COMPLAINTDESK_TENANT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tenantBurst, err := getEnvInt("COMPLAINTDESK_TENANT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loginRPS, err := getEnvFloat("COMPLAINTDESK_LOGIN_RPS", 0.2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loginBurst, err := getEnvInt("COMPLAINTDESK_LOGIN_BURST", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	logLevel, err := zerolog.ParseLevel(getEnv("COMPLAINTDESK_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("config.Load: parsing COMPLAINTDESK_LOG_LEVEL: %w", err)
	}

	selfHosted, err := getEnvBool("COMPLAINTDESK_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("COMPLAINTDESK_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("COMPLAINTDESK_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("COMPLAINTDESK_DB_USER", "complaintdesk"),
			Password: getEnv("COMPLAINTDESK_DB_PASSWORD", ""),
			DBName:   getEnv("COMPLAINTDESK_DB_NAME", "complaintdesk_dev"),
			SSLMode:  getEnv("COMPLAINTDESK_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:             getEnv("COMPLAINTDESK_REDIS_ADDR", "localhost:6379"),
			Password:         getEnv("COMPLAINTDESK_REDIS_PASSWORD", ""),
			DB:               redisDB,
			IdentityCacheTTL: identityTTL,
		},
		JWT: JWTConfig{
			Secret:     getEnv("COMPLAINTDESK_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("COMPLAINTDESK_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
			TenantRPS:    tenantRPS,
			TenantBurst:  tenantBurst,
			LoginRPS:     loginRPS,
			LoginBurst:   loginBurst,
		},
		Log: LogConfig{
			Level:  logLevel,
			Format: strings.ToLower(getEnv("COMPLAINTDESK_LOG_FORMAT", "json")),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// loadDotEnv applies a dotenv file if it exists.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("reading %s: %w", path, err)
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("COMPLAINTDESK_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("COMPLAINTDESK_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("COMPLAINTDESK_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("COMPLAINTDESK_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("COMPLAINTDESK_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Redis.IdentityCacheTTL < 0 {
		return fmt.Errorf("COMPLAINTDESK_IDENTITY_CACHE_TTL must not be negative, got %s", c.Redis.IdentityCacheTTL)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("COMPLAINTDESK_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("COMPLAINTDESK_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("COMPLAINTDESK_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("COMPLAINTDESK_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.TenantRPS <= 0 || c.Server.TenantBurst < 1 {
		return fmt.Errorf("COMPLAINTDESK_TENANT_RPS and COMPLAINTDESK_TENANT_BURST must be positive, got %g/%d",
			c.Server.TenantRPS, c.Server.TenantBurst)
	}
	if c.Server.LoginRPS <= 0 || c.Server.LoginBurst < 1 {
		return fmt.Errorf("COMPLAINTDESK_LOGIN_RPS and COMPLAINTDESK_LOGIN_BURST must be positive, got %g/%d",
			c.Server.LoginRPS, c.Server.LoginBurst)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("COMPLAINTDESK_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
