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
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// StorageConfig provides settings for the S3-compatible object store.
type StorageConfig interface {
	GetStorageProvider() string
	GetStorageEndpoint() string
	GetStorageExternalEndpoint() string
	GetStorageAccessKey() string
	GetStorageSecretKey() string
	GetStorageBucket() string
	GetStorageUseSSL() bool
	GetStorageRegion() string
	GetStoragePresignedURLDuration() time.Duration
	GetStorageMaxFileSize() int64
}

// CacheConfig provides settings for the presigned URL cache.
type CacheConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	IsPresignCacheEnabled() bool
}

// SchedulerConfig provides settings for asynq background jobs.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SMTPConfig provides settings for outgoing mail.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromEmail() string
	GetSMTPFromName() string
	IsSMTPEnabled() bool
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// AdsConfig provides settings for the ads module.
type AdsConfig interface {
	GetAppBaseURL() string
	GetPhoneDefaultRegion() string
	GetStorageMaxFileSize() int64
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	JWTAccessSecret             string
	AccessTokenTTL              time.Duration
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	AppBaseURL                  string
	PhoneDefaultRegion          string
	StorageProvider             string
	StorageEndpoint             string
	StorageExternalEndpoint     string
	StorageAccessKey            string
	StorageSecretKey            string
	StorageBucket               string
	StorageUseSSL               bool
	StorageRegion               string
	StoragePresignedURLDuration time.Duration
	StorageMaxFileSize          int64
	RedisURL                    string
	RedisTLSInsecure            bool
	PresignCacheEnabled         bool
	AsynqQueueName              string
	AsynqConcurrency            int
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	SMTPFromEmail               string
	SMTPFromName                string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// StorageConfig implementation
func (c *Config) GetStorageProvider() string         { return c.StorageProvider }
func (c *Config) GetStorageEndpoint() string         { return c.StorageEndpoint }
func (c *Config) GetStorageExternalEndpoint() string { return c.StorageExternalEndpoint }
func (c *Config) GetStorageAccessKey() string        { return c.StorageAccessKey }
func (c *Config) GetStorageSecretKey() string        { return c.StorageSecretKey }
func (c *Config) GetStorageBucket() string           { return c.StorageBucket }
func (c *Config) GetStorageUseSSL() bool             { return c.StorageUseSSL }
func (c *Config) GetStorageRegion() string           { return c.StorageRegion }
func (c *Config) GetStoragePresignedURLDuration() time.Duration {
	return c.StoragePresignedURLDuration
}
func (c *Config) GetStorageMaxFileSize() int64 { return c.StorageMaxFileSize }

// CacheConfig and SchedulerConfig implementation
func (c *Config) GetRedisURL() string         { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool   { return c.RedisTLSInsecure }
func (c *Config) IsPresignCacheEnabled() bool { return c.PresignCacheEnabled && c.RedisURL != "" }
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string      { return c.SMTPHost }
func (c *Config) GetSMTPPort() int         { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string  { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string  { return c.SMTPPassword }
func (c *Config) GetSMTPFromEmail() string { return c.SMTPFromEmail }
func (c *Config) GetSMTPFromName() string  { return c.SMTPFromName }
func (c *Config) IsSMTPEnabled() bool      { return c.SMTPHost != "" }

// NotificationConfig and AdsConfig implementation
func (c *Config) GetAppBaseURL() string         { return c.AppBaseURL }
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	storageEndpoint := getEnv("STORAGE_ENDPOINT", "localhost:9000")

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		JWTAccessSecret:             getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:              mustDuration(getEnv("JWT_ACCESS_TTL", "24h")),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		AppBaseURL:                  getEnv("APP_BASE_URL", "http://localhost:4200"),
		PhoneDefaultRegion:          strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "FR")),
		StorageProvider:             strings.ToLower(getEnv("STORAGE_PROVIDER", "minio")),
		StorageEndpoint:             storageEndpoint,
		StorageExternalEndpoint:     getEnv("STORAGE_EXTERNAL_ENDPOINT", storageEndpoint),
		StorageAccessKey:            getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey:            getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:               getEnv("STORAGE_BUCKET", "ads"),
		StorageUseSSL:               strings.EqualFold(getEnv("STORAGE_USE_SSL", "false"), "true"),
		StorageRegion:               getEnv("STORAGE_REGION", "us-east-1"),
		StoragePresignedURLDuration: mustDuration(getEnv("STORAGE_PRESIGNED_URL_DURATION", "1h")),
		StorageMaxFileSize:          mustInt64(getEnv("STORAGE_MAX_FILE_SIZE", "10485760")),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		PresignCacheEnabled:         strings.EqualFold(getEnv("PRESIGN_CACHE_ENABLED", "true"), "true"),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:            int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		SMTPHost:                    getEnv("SMTP_HOST", ""),
		SMTPPort:                    int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:                getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail:               getEnv("SMTP_FROM_EMAIL", ""),
		SMTPFromName:                getEnv("SMTP_FROM_NAME", "Classifieds"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.StorageProvider != "minio" && c.StorageProvider != "s3" {
		return fmt.Errorf("STORAGE_PROVIDER must be one of minio, s3 (got %q)", c.StorageProvider)
	}
	if c.StorageBucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}
	if c.IsSMTPEnabled() && c.SMTPFromEmail == "" {
		return fmt.Errorf("SMTP_FROM_EMAIL is required when SMTP_HOST is set")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
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
