// Package config reads service settings from the environment. main loads a
// .env file first through godotenv/autoload, so either source works.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	// StoreDriver is "postgres" or "memory".
	StoreDriver string
	DatabaseURL string

	// RedisAddr empty disables the redis event queue.
	RedisAddr   string
	RedisDB     int
	EventsQueue string

	// HistorianBatchSize and HistorianFlushInterval tune cmd/historian.
	HistorianBatchSize     int
	HistorianFlushInterval time.Duration

	RateLimitRequests  int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins []string

	// TokenExpire of zero means tokens never expire.
	TokenExpire       time.Duration
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	// StorageDriver is "s3" or "local".
	StorageDriver   string
	LocalStorageDir string
	PublicBaseURL   string
	S3Region        string
	S3Bucket        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicURL     string
}

// Load builds a Config from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DatabaseURL: databaseURL(),

		RedisAddr:   os.Getenv("REDIS_ADDR"),
		EventsQueue: getEnv("PARTNER_EVENTS_QUEUE", "fittogether_partner_events"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		JWTPrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "public"),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:     strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.HistorianBatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitRequests, err = getEnvInt("RATE_LIMIT_REQUESTS", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.HistorianFlushInterval, err = getEnvDuration("HISTORIAN_FLUSH_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.TokenExpire, err = parseTokenExpire(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.StorageDriver {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.HistorianBatchSize < 1 {
		return nil, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	if cfg.RateLimitRequests < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// discrete POSTGRES_* / PG_* variables.
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD")),
		Host:   getEnv("PG_HOST", "localhost") + ":" + getEnv("PG_PORT", "5432"),
		Path:   "/" + getEnv("PG_DATABASE", "fittogether"),
	}
	return u.String()
}

// parseTokenExpire accepts a Go duration; "", "0" and "never" disable expiry.
func parseTokenExpire(s string) (time.Duration, error) {
	if s == "" || s == "0" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, returning def when unset.
func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string, def []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
