package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers
const (
	DriverSurreal = "surrealdb"
	DriverMongo   = "mongodb"
)

// MinProductionSecretLength is the shortest JWT_SECRET accepted in production
const MinProductionSecretLength = 32

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Jobs      JobsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	MaxBodyBytes    int64
}

// DatabaseConfig selects the document store and holds its connection settings
type DatabaseConfig struct {
	Driver string

	// SurrealDB
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string

	// MongoDB
	MongoURI      string
	MongoDatabase string
}

// JWTConfig holds identity token settings
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	CookieDays int
	Issuer     string
}

// CookieTTL is the lifetime of the token cookie
func (j JWTConfig) CookieTTL() time.Duration {
	return time.Duration(j.CookieDays) * 24 * time.Hour
}

// MailConfig holds SMTP relay settings. An empty Host logs mail instead of
// sending it.
type MailConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	ResetURLBase string
}

// Enabled reports whether a relay is configured
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// RateLimitConfig holds request limiter settings. With a Redis URL the
// window is shared by every instance.
type RateLimitConfig struct {
	Rate     int
	Window   time.Duration
	Burst    int
	RedisURL string
}

// LogConfig holds logging settings. An empty File logs to stdout only.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// JobsConfig holds background job settings
type JobsConfig struct {
	ResetTokenSweepInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from CONFIG_FILE (default config.env) are loaded first when the
// file exists; variables already set in the environment win.
func Load() (*Config, error) {
	file := getEnv("CONFIG_FILE", "config.env")
	if _, err := os.Stat(file); err == nil {
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "4000"),
			Env:             getEnv("NODE_ENV", getEnv("SERVER_ENV", "development")),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxBodyBytes:    int64(getIntEnv("MAX_BODY_BYTES", 10<<10)),
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", DriverSurreal),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "8000"),
			Namespace:     getEnv("DB_NAMESPACE", "tours"),
			Database:      getEnv("DB_DATABASE", "main"),
			User:          getEnv("DB_USER", "root"),
			Password:      getEnv("DB_PASSWORD", "root"),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "natours"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: getDurationEnv("JWT_EXPIRES_IN", 90*24*time.Hour),
			CookieDays: getIntEnv("JWT_COOKIE_EXPIRES_IN", 90),
			Issuer:     getEnv("JWT_ISSUER", "tours-api"),
		},
		Mail: MailConfig{
			Host:         getEnv("EMAIL_HOST", ""),
			Port:         getIntEnv("EMAIL_PORT", 587),
			User:         getEnv("EMAIL_USERNAME", ""),
			Password:     getEnv("EMAIL_PASSWORD", ""),
			From:         getEnv("EMAIL_FROM", "Tours <hello@tours.local>"),
			ResetURLBase: getEnv("RESET_URL_BASE", ""),
		},
		RateLimit: RateLimitConfig{
			Rate:     getIntEnv("RATE_LIMIT_MAX", 100),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", time.Hour),
			Burst:    getIntEnv("RATE_LIMIT_BURST", 0),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getIntEnv("LOG_MAX_AGE_DAYS", 28),
		},
		Jobs: JobsConfig{
			ResetTokenSweepInterval: getDurationEnv("RESET_TOKEN_SWEEP_INTERVAL", 10*time.Minute),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("NODE_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}

	// Database validation
	switch c.Database.Driver {
	case DriverSurreal:
		if c.Database.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if c.Database.Port == "" {
			errs = append(errs, errors.New("DB_PORT is required"))
		}
		if c.Database.Namespace == "" {
			errs = append(errs, errors.New("DB_NAMESPACE is required"))
		}
		if c.Database.Database == "" {
			errs = append(errs, errors.New("DB_DATABASE is required"))
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required"))
		}
		if c.Database.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be '%s' or '%s', got '%s'", DriverSurreal, DriverMongo, c.Database.Driver))
	}

	// JWT validation - the secret is only optional in development
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.IsProduction() && c.JWT.Secret != "" && len(c.JWT.Secret) < MinProductionSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters in production", MinProductionSecretLength))
	}
	if c.JWT.Expiration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.JWT.CookieDays <= 0 {
		errs = append(errs, errors.New("JWT_COOKIE_EXPIRES_IN must be positive"))
	}

	// Mail validation
	if c.Mail.Enabled() {
		if c.Mail.Port <= 0 {
			errs = append(errs, errors.New("EMAIL_PORT must be positive"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("EMAIL_FROM is required when EMAIL_HOST is set"))
		}
	}

	// Rate limit validation
	if c.RateLimit.Rate <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimit.RedisURL != "" && !strings.HasPrefix(c.RateLimit.RedisURL, "redis://") && !strings.HasPrefix(c.RateLimit.RedisURL, "rediss://") {
		errs = append(errs, errors.New("REDIS_URL must start with redis:// or rediss://"))
	}

	if c.Jobs.ResetTokenSweepInterval <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_SWEEP_INTERVAL must be positive"))
	}

	// Log validation
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got '%s'", c.Log.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("15s") and the day suffix used by
// token lifetimes ("90d").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
