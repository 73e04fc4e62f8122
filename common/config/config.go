package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
	Orders    OrderConfig
	AI        AIConfig
	Client    ClientConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL         string // DATABASE_URL; overrides the discrete fields when set
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Enabled    bool
	SizeMB     int
	DefaultTTL time.Duration
}

// QueueConfig holds event queue settings
type QueueConfig struct {
	Type       string // only "memory" is supported
	BufferSize int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// RateLimitConfig holds Redis-backed rate limit settings
type RateLimitConfig struct {
	Enabled       bool
	GlobalLimit   int64 // requests per minute across all users
	UserLimit     int64 // requests per minute per user
	CheckoutLimit int64 // checkouts per minute per user
	AILimit       int64 // AI generations per minute per user
	// Internal callers presenting this in X-Internal-Service skip limits; empty disables the bypass
	InternalSecret string
}

// OrderConfig holds order lifecycle settings
type OrderConfig struct {
	PendingTTL     time.Duration // unpaid orders older than this are cancelled; 0 disables
	ExpiryInterval time.Duration
}

// AIConfig holds generative AI provider settings
type AIConfig struct {
	APIKey  string // GEMINI_API_KEY; falls back to the settings table when empty
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ClientConfig holds settings for the shopper-side client (shopctl)
type ClientConfig struct {
	APIBaseURL     string
	UserID         string
	CacheDir       string
	IndexStore     string // memory | sqlite | redis
	IndexStorePath string // sqlite file for IndexStore=sqlite
	DeviceTier     string // forces a tier when set
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "storefront"),
			User:        getEnv("POSTGRES_USER", "storefront"),
			Password:    getEnv("POSTGRES_PASSWORD", "storefront"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			SizeMB:     getEnvInt("CACHE_SIZE_MB", 64),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 30*time.Second),
		},
		Queue: QueueConfig{
			Type:       getEnv("QUEUE_TYPE", "memory"),
			BufferSize: getEnvInt("QUEUE_BUFFER_SIZE", 1000),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			GlobalLimit:    int64(getEnvInt("RATE_LIMIT_GLOBAL", 600)),
			UserLimit:      int64(getEnvInt("RATE_LIMIT_USER", 120)),
			CheckoutLimit:  int64(getEnvInt("RATE_LIMIT_CHECKOUT", 10)),
			AILimit:        int64(getEnvInt("RATE_LIMIT_AI", 10)),
			InternalSecret: getEnv("INTERNAL_SERVICE_SECRET", ""),
		},
		Orders: OrderConfig{
			PendingTTL:     getEnvDuration("ORDER_PENDING_TTL", 24*time.Hour),
			ExpiryInterval: getEnvDuration("ORDER_EXPIRY_INTERVAL", 5*time.Minute),
		},
		AI: AIConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
		Client: ClientConfig{
			APIBaseURL:     strings.TrimRight(getEnv("SHOP_API_URL", "http://localhost:8080"), "/"),
			UserID:         getEnv("SHOP_USER_ID", ""),
			CacheDir:       getEnv("IMAGE_CACHE_DIR", defaultCacheDir()),
			IndexStore:     getEnv("CLIENT_INDEX_STORE", "sqlite"),
			IndexStorePath: getEnv("CLIENT_INDEX_STORE_PATH", ""),
			DeviceTier:     getEnv("DEVICE_TIER", ""),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Queue.Type != "memory" {
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	if c.Orders.PendingTTL > 0 && c.Orders.ExpiryInterval <= 0 {
		return fmt.Errorf("order expiry interval must be positive")
	}

	switch c.Client.IndexStore {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown index store: %s", c.Client.IndexStore)
	}

	switch c.Client.DeviceTier {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("unknown device tier: %s", c.Client.DeviceTier)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "storefront" + string(os.PathSeparator) + "images"
	}
	return os.TempDir() + string(os.PathSeparator) + "storefront-images"
}
