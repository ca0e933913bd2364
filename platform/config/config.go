// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetMigrationsDir() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// RedisConfig provides the shared redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq client, worker and cron jobs.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetDispatchMaxInFlight() int
	GetTrendingWarmSchedule() string
}

// CacheConfig provides per-namespace TTLs for the result cache.
type CacheConfig interface {
	GetCacheTTLs() map[string]time.Duration
	GetCachePrefix() string
}

// SearchConfig provides paging and fuzzy-matching settings.
type SearchConfig interface {
	GetSearchDefaultPageSize() int
	GetSearchMaxPageSize() int
	GetFuzzyThreshold() float64
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	MigrationsDir         string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RateLimitRPS          float64
	RateLimitBurst        int
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	DispatchMaxInFlight   int
	TrendingWarmSchedule  string
	CachePrefix           string
	CacheTTLs             map[string]time.Duration
	SearchDefaultPageSize int
	SearchMaxPageSize     int
	FuzzyThreshold        float64
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetMigrationsDir() string { return c.MigrationsDir }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetDispatchMaxInFlight() int     { return c.DispatchMaxInFlight }
func (c *Config) GetTrendingWarmSchedule() string { return c.TrendingWarmSchedule }

// CacheConfig implementation
func (c *Config) GetCacheTTLs() map[string]time.Duration { return c.CacheTTLs }
func (c *Config) GetCachePrefix() string                 { return c.CachePrefix }

// SearchConfig implementation
func (c *Config) GetSearchDefaultPageSize() int { return c.SearchDefaultPageSize }
func (c *Config) GetSearchMaxPageSize() int     { return c.SearchMaxPageSize }
func (c *Config) GetFuzzyThreshold() float64    { return c.FuzzyThreshold }

// DefaultCacheTTLs returns the built-in TTL for every cache namespace.
func DefaultCacheTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"search":          5 * time.Minute,
		"autocomplete":    10 * time.Minute,
		"trending":        15 * time.Minute,
		"recommended":     10 * time.Minute,
		"recently-viewed": time.Hour,
		"similar":         15 * time.Minute,
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	ttls := DefaultCacheTTLs()
	for namespace := range ttls {
		key := "CACHE_TTL_" + strings.ToUpper(strings.ReplaceAll(namespace, "-", "_"))
		if d := mustDuration(getEnv(key, "")); d > 0 {
			ttls[namespace] = d
		}
	}
	if policyFile := getEnv("CACHE_POLICY_FILE", ""); policyFile != "" {
		overrides, err := LoadCachePolicy(policyFile)
		if err != nil {
			return nil, err
		}
		for namespace, ttl := range overrides {
			ttls[namespace] = ttl
		}
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		MigrationsDir:         getEnv("MIGRATIONS_DIR", "migrations"),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:          mustFloat(getEnv("RATE_LIMIT_RPS", "20")),
		RateLimitBurst:        mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "marketplace"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DispatchMaxInFlight:   mustInt(getEnv("DISPATCH_MAX_IN_FLIGHT", "100")),
		TrendingWarmSchedule:  getEnv("TRENDING_WARM_SCHEDULE", "*/10 * * * *"),
		CachePrefix:           getEnv("CACHE_PREFIX", "marketplace"),
		CacheTTLs:             ttls,
		SearchDefaultPageSize: mustInt(getEnv("SEARCH_DEFAULT_PAGE_SIZE", "20")),
		SearchMaxPageSize:     mustInt(getEnv("SEARCH_MAX_PAGE_SIZE", "100")),
		FuzzyThreshold:        mustFloat(getEnv("SEARCH_FUZZY_THRESHOLD", "0.3")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SearchDefaultPageSize <= 0 || cfg.SearchMaxPageSize < cfg.SearchDefaultPageSize {
		return nil, fmt.Errorf("SEARCH_MAX_PAGE_SIZE must be >= SEARCH_DEFAULT_PAGE_SIZE > 0")
	}

	return cfg, nil
}

// LoadCachePolicy reads a YAML document of `namespace: duration` pairs.
func LoadCachePolicy(path string) (map[string]time.Duration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache policy: %w", err)
	}
	return ParseCachePolicy(raw)
}

// ParseCachePolicy decodes a cache policy document. Durations use
// time.ParseDuration syntax and must be positive.
func ParseCachePolicy(raw []byte) (map[string]time.Duration, error) {
	var doc map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse cache policy: %w", err)
	}

	result := make(map[string]time.Duration, len(doc))
	for namespace, value := range doc {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("cache policy %q: invalid ttl %q", namespace, value)
		}
		result[strings.TrimSpace(namespace)] = d
	}
	return result, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
