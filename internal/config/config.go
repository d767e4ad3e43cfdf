package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Issuer     IssuerConfig
	Cache      CacheConfig
	Cloudinary CloudinaryConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxUploadBytes  int64

	// Redirect targets handed back to callers of lifecycle transitions
	DirectoryPath        string
	DefaultBadgeImageURL string
}

// DatabaseConfig holds draft store configuration
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	ConnectTimeout     time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
}

// IssuerConfig holds configuration for the external badge issuing service
type IssuerConfig struct {
	URL     string
	Key     string
	Secret  string
	Timeout time.Duration

	// SurfaceAwardErrors makes award granting failures visible to callers.
	// Off by default: the upstream award endpoint is not implemented yet.
	SurfaceAwardErrors bool
}

// CacheConfig holds configuration for the published badge read cache
type CacheConfig struct {
	Provider string // "memory", "redis", "none"
	RedisURL string
	TTL      time.Duration
	MaxKeys  int
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. Outside production a
// .env.<GO_ENV> file (or .env) is loaded first.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server:     loadServerConfig(env),
		Database:   loadDatabaseConfig(env),
		Issuer:     loadIssuerConfig(),
		Cache:      loadCacheConfig(),
		Cloudinary: loadCloudinaryConfig(),
		Logging:    loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// ===============================
// SECTION LOADERS
// ===============================

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:                 getEnv("PORT", "9000"),
		Host:                 getEnv("SERVER_HOST", "0.0.0.0"),
		Environment:          env,
		ReadTimeout:          getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:          getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout:      getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxUploadBytes:       getInt64Env("MAX_UPLOAD_BYTES", 10*1024*1024), // 10MB
		DirectoryPath:        getEnv("DIRECTORY_PATH", "/directory"),
		DefaultBadgeImageURL: getEnv("DEFAULT_BADGE_IMAGE_URL", "/static/images/default-badge.png"),
	}

	if env == "development" {
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 10*time.Second)
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	var defaultMaxOpen, defaultMaxIdle int
	var defaultConnLifetime time.Duration

	switch env {
	case "production":
		defaultMaxOpen = 50
		defaultMaxIdle = 20
		defaultConnLifetime = 15 * time.Minute
	case "staging":
		defaultMaxOpen = 25
		defaultMaxIdle = 10
		defaultConnLifetime = 10 * time.Minute
	default: // development
		defaultMaxOpen = 10
		defaultMaxIdle = 5
		defaultConnLifetime = 5 * time.Minute
	}

	return DatabaseConfig{
		URL:                os.Getenv("DATABASE_URL"),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdle),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:     getDurationEnv("DB_CONNECT_TIMEOUT", 30*time.Second),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "./migrations"),
	}
}

func loadIssuerConfig() IssuerConfig {
	return IssuerConfig{
		URL:                strings.TrimRight(os.Getenv("ISSUER_URL"), "/"),
		Key:                getEnv("ISSUER_KEY", "master"),
		Secret:             os.Getenv("ISSUER_SECRET"),
		Timeout:            getDurationEnv("ISSUER_TIMEOUT", 10*time.Second),
		SurfaceAwardErrors: getBoolEnv("ISSUER_SURFACE_AWARD_ERRORS", false),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Provider: getEnv("CACHE_PROVIDER", "memory"),
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      getDurationEnv("CACHE_TTL", 30*time.Second),
		MaxKeys:  getIntEnv("CACHE_MAX_KEYS", 10000),
	}
}

func loadCloudinaryConfig() CloudinaryConfig {
	return CloudinaryConfig{
		CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		Folder:    getEnv("CLOUDINARY_FOLDER", "badgekit/badges"),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// ===============================
// VALIDATION
// ===============================

// Validate checks every configuration section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Issuer.Validate(); err != nil {
		return fmt.Errorf("issuer config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}

	if s.MaxUploadBytes <= 0 {
		return fmt.Errorf("MaxUploadBytes must be positive")
	}

	return nil
}

func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}

	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}

	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}

	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}

	return nil
}

func (i *IssuerConfig) Validate() error {
	if i.URL == "" {
		return fmt.Errorf("ISSUER_URL is required")
	}

	u, err := url.Parse(i.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ISSUER_URL must be an absolute URL")
	}

	if i.Timeout <= 0 {
		return fmt.Errorf("ISSUER_TIMEOUT must be positive")
	}

	return nil
}

func (c *CacheConfig) Validate() error {
	switch c.Provider {
	case "memory", "none":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis cache provider")
		}
	default:
		return fmt.Errorf("unknown cache provider %q", c.Provider)
	}

	if c.TTL < 0 {
		return fmt.Errorf("CACHE_TTL cannot be negative")
	}

	return nil
}

// Enabled reports whether Cloudinary credentials are configured
func (c *CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ===============================
// ENVIRONMENT HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
