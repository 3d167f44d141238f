// Package config provides configuration management for sitecontrol.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zapfragrance/sitecontrol/internal/assets"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// AssetBackend selects where uploaded images are stored.
type AssetBackend string

const (
	AssetBackendS3    AssetBackend = "s3"
	AssetBackendLocal AssetBackend = "local"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment   Environment
	ListenAddr    string
	DatabaseURL   string
	SessionSecret string
	SessionMaxAge int  // session lifetime in seconds (default: 86400)
	SecureCookie  bool // mark the session cookie Secure (default: true in production)
	CachePath     string

	AssetBackend       AssetBackend
	S3Bucket           string
	S3Region           string
	S3Endpoint         string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3PublicBaseURL    string
	S3Prefix           string
	AssetLocalDir      string
	AssetPublicBaseURL string
	MaxUploadBytes     int64

	RedisURL string

	LoginRateLimitRequests int
	LoginRateLimitPeriod   time.Duration

	RemoteLoadAttempts int
	RemoteRetryDelay   time.Duration

	AllowedOrigins []string
}

// LoadDotEnv loads variables from path (or .env when empty) without overriding
// ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	sessionMaxAge := getEnvInt("SESSION_MAX_AGE", 86400)
	if sessionMaxAge <= 0 {
		sessionMaxAge = 86400
	}

	backend := AssetBackend(strings.ToLower(getEnv("ASSET_BACKEND", string(AssetBackendS3))))

	maxUpload := int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20))
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	attempts := getEnvInt("REMOTE_LOAD_ATTEMPTS", 1)
	if attempts < 1 {
		attempts = 1
	}

	loginRequests := getEnvInt("LOGIN_RATE_LIMIT_REQUESTS", 5)
	if loginRequests < 1 {
		loginRequests = 5
	}

	return ServerConfig{
		Environment:   env,
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionMaxAge: sessionMaxAge,
		SecureCookie:  getEnvBool("SESSION_SECURE_COOKIE", env == EnvProduction),
		CachePath:     getEnv("CACHE_PATH", "sitecontrol-cache.db"),

		AssetBackend:       backend,
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           os.Getenv("S3_REGION"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		S3Prefix:           getEnv("S3_PREFIX", assets.DefaultPrefix),
		AssetLocalDir:      getEnv("ASSET_LOCAL_DIR", "data/assets"),
		AssetPublicBaseURL: getEnv("ASSET_PUBLIC_BASE_URL", "/assets"),
		MaxUploadBytes:     maxUpload,

		RedisURL: os.Getenv("REDIS_URL"),

		LoginRateLimitRequests: loginRequests,
		LoginRateLimitPeriod:   getEnvDuration("LOGIN_RATE_LIMIT_PERIOD", time.Minute),

		RemoteLoadAttempts: attempts,
		RemoteRetryDelay:   getEnvDuration("REMOTE_RETRY_DELAY", 500*time.Millisecond),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
	}
}

// IsProduction reports whether the server runs in production.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// SessionTTL returns the session lifetime as a duration.
func (c ServerConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

// Validate reports missing or inconsistent settings.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	switch c.AssetBackend {
	case AssetBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 asset backend"))
		}
		if c.S3PublicBaseURL == "" {
			errs = append(errs, errors.New("S3_PUBLIC_BASE_URL is required for the s3 asset backend"))
		}
	case AssetBackendLocal:
		if c.AssetLocalDir == "" {
			errs = append(errs, errors.New("ASSET_LOCAL_DIR is required for the local asset backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("ASSET_BACKEND %q is not one of s3, local", c.AssetBackend))
	}
	return errors.Join(errs...)
}

// getEnv reads a string from an environment variable, returning the default if unset.
func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads a Go duration string, returning the default if unset, invalid or negative.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

// getEnvList reads a comma-separated list, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
