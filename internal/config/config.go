package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// Postgres stores commit reports only; an empty Host disables it.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the staging spool.
// An empty Endpoint makes the service spool staged files in memory.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// GraphQLConfig points at the external fleet backend.
type GraphQLConfig struct {
	Endpoint     string
	RESTBaseURL  string
	Token        string
	TimeoutSec   int
	RateLimitRPS float64
	RateBurst    int
}

// RedisConfig holds the read-cache settings. An empty Addr disables caching.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	CacheTTLSec int
}

// NATSConfig holds commit event publishing settings. An empty URL disables publishing.
type NATSConfig struct {
	URL     string
	Subject string
}

// AuthConfig controls how the caller role is derived.
// Without a JWTSecret every request runs with DefaultRole.
type AuthConfig struct {
	JWTSecret   string
	DefaultRole string
}

// StagingConfig holds the staging session defaults.
type StagingConfig struct {
	DefaultMaxUploadMB            int
	SessionTTLMin                 int
	AllowDeleteWithoutReplacement bool
	PolicyFile                    string
	ExtensionAliases              map[string]string
}

// ResilienceConfig tunes retries and the circuit breaker around GraphQL calls.
type ResilienceConfig struct {
	RetryMaxAttempts      int
	RetryInitialBackoffMs int
	RetryMaxBackoffMs     int
	BreakerEnabled        bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	LogLevel    string
	LogFormat   string
	BodyLimitMB int
	GraphQL    GraphQLConfig
	Staging    StagingConfig
	Auth       AuthConfig
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Resilience ResilienceConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		BodyLimitMB: getEnvInt("APP_BODY_LIMIT_MB", 64),
		GraphQL: GraphQLConfig{
			Endpoint:     getEnv("GRAPHQL_ENDPOINT", "http://localhost:4000/graphql"),
			RESTBaseURL:  getEnv("FLEET_REST_BASE_URL", "http://localhost:4000"),
			Token:        getEnv("GRAPHQL_TOKEN", ""),
			TimeoutSec:   getEnvInt("GRAPHQL_TIMEOUT_SEC", 15),
			RateLimitRPS: getEnvFloat("GRAPHQL_RATE_LIMIT_RPS", 20),
			RateBurst:    getEnvInt("GRAPHQL_RATE_BURST", 10),
		},
		Staging: StagingConfig{
			DefaultMaxUploadMB:            getEnvInt("STAGING_DEFAULT_MAX_UPLOAD_MB", 10),
			SessionTTLMin:                 getEnvInt("STAGING_SESSION_TTL_MIN", 60),
			AllowDeleteWithoutReplacement: getEnvBool("STAGING_ALLOW_DELETE_WITHOUT_REPLACEMENT", false),
			PolicyFile:                    getEnv("UPLOAD_POLICY_FILE", ""),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
			DefaultRole: getEnv("AUTH_DEFAULT_ROLE", "user"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			CacheTTLSec: getEnvInt("REDIS_CACHE_TTL_SEC", 300),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "fleetdocs.documents.committed"),
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts:      getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialBackoffMs: getEnvInt("RETRY_INITIAL_BACKOFF_MS", 100),
			RetryMaxBackoffMs:     getEnvInt("RETRY_MAX_BACKOFF_MS", 400),
			BreakerEnabled:        getEnvBool("BREAKER_ENABLED", true),
		},
	}
}

// uploadPolicy is the optional YAML file layout.
type uploadPolicy struct {
	Upload struct {
		DefaultMaxSizeMB int               `yaml:"default_max_size_mb"`
		ExtensionAliases map[string]string `yaml:"extension_aliases"`
	} `yaml:"upload"`
}

// ApplyPolicyFile overlays the YAML upload policy on the staging settings.
// It is a no-op when no policy file is configured.
func (c *AppConfig) ApplyPolicyFile() error {
	if c.Staging.PolicyFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Staging.PolicyFile)
	if err != nil {
		return fmt.Errorf("read upload policy: %w", err)
	}
	var p uploadPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse upload policy: %w", err)
	}
	if p.Upload.DefaultMaxSizeMB > 0 {
		c.Staging.DefaultMaxUploadMB = p.Upload.DefaultMaxSizeMB
	}
	if len(p.Upload.ExtensionAliases) > 0 {
		c.Staging.ExtensionAliases = make(map[string]string, len(p.Upload.ExtensionAliases))
		for from, to := range p.Upload.ExtensionAliases {
			c.Staging.ExtensionAliases[normalizeExt(from)] = normalizeExt(to)
		}
	}
	return nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
