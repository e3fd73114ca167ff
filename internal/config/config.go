// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Logging   LoggingConfig
	JWT       JWTConfig
	Media     MediaConfig
	Cache     CacheConfig
	Admin     AdminConfig
	RateLimit int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings.
// Redis is optional: an empty Host means the in-memory cache is used.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret             string
	Issuer             string
	Audience           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// MediaConfig holds book cover storage settings
type MediaConfig struct {
	BasePath      string
	BaseURL       string
	MaxUploadSize int64
}

// CacheConfig holds book cache settings
type CacheConfig struct {
	TTL  time.Duration
	Size int
}

// AdminConfig holds the optional bootstrap admin account.
// An empty Username disables seeding.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPort, err := intFromEnv("DB_PORT", "")
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := intFromEnv("SERVER_PORT", "8080")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	cfg.Logging.Level = stringFromEnv("LOG_LEVEL", "info")

	// JWT configuration
	if err := loadJWT(cfg); err != nil {
		return nil, err
	}

	// Media configuration
	cfg.Media.BasePath = stringFromEnv("MEDIA_BASE_PATH", "./wwwroot/images")
	cfg.Media.BaseURL = stringFromEnv("MEDIA_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Server.Port))
	maxUploadMB, err := intFromEnv("MAX_UPLOAD_SIZE_MB", "10")
	if err != nil {
		return nil, err
	}
	cfg.Media.MaxUploadSize = int64(maxUploadMB) << 20

	// Redis configuration (optional, enables the shared book cache)
	cfg.Redis.Host = os.Getenv("REDIS_HOST")
	redisPort, err := intFromEnv("REDIS_PORT", "6379")
	if err != nil {
		return nil, err
	}
	cfg.Redis.Port = redisPort
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := intFromEnv("REDIS_DB", "0")
	if err != nil {
		return nil, err
	}
	cfg.Redis.DB = redisDB

	// Cache configuration
	cacheTTL, err := durationFromEnv("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	cfg.Cache.TTL = cacheTTL
	cacheSize, err := intFromEnv("CACHE_SIZE", "1024")
	if err != nil {
		return nil, err
	}
	cfg.Cache.Size = cacheSize

	// Bootstrap admin (optional)
	cfg.Admin.Username = os.Getenv("ADMIN_USERNAME")
	cfg.Admin.Email = os.Getenv("ADMIN_EMAIL")
	cfg.Admin.Password = os.Getenv("ADMIN_PASSWORD")
	if cfg.Admin.Username != "" && (cfg.Admin.Email == "" || cfg.Admin.Password == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are required when ADMIN_USERNAME is set")
	}

	rateLimit, err := intFromEnv("RATE_LIMIT_PER_MINUTE", "100")
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = rateLimit

	return cfg, nil
}

// loadJWT reads the token settings. A missing secret is a configuration error.
func loadJWT(cfg *Config) error {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return apperrors.New(apperrors.ErrConfiguration, "JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret
	cfg.JWT.Issuer = stringFromEnv("JWT_ISSUER", "library-api")
	cfg.JWT.Audience = stringFromEnv("JWT_AUDIENCE", "library-clients")

	// Access token lifetime is configured in minutes (default: 1 hour)
	accessMinutes, err := intFromEnv("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", "60")
	if err != nil {
		return err
	}
	if accessMinutes <= 0 {
		return fmt.Errorf("invalid JWT_ACCESS_TOKEN_EXPIRY_MINUTES: must be positive")
	}
	cfg.JWT.AccessTokenExpiry = time.Duration(accessMinutes) * time.Minute

	// Refresh token expiry (default: 7 days)
	refreshExpiry, err := durationFromEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h")
	if err != nil {
		return err
	}
	if refreshExpiry <= 0 {
		return fmt.Errorf("invalid JWT_REFRESH_TOKEN_EXPIRY: must be positive")
	}
	cfg.JWT.RefreshTokenExpiry = refreshExpiry

	return nil
}

// DSN returns the database connection string.
// clientFoundRows makes RowsAffected report matched rows, not changed ones.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&charset=utf8mb4&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// RedisAddr returns the Redis address in host:port form
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func stringFromEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// intFromEnv parses an integer variable. An empty fallback makes the key required.
func intFromEnv(key, fallback string) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		if fallback == "" {
			return 0, fmt.Errorf("%s is required", key)
		}
		raw = fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func durationFromEnv(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(stringFromEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
