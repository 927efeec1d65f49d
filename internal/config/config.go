package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read once at startup from the
// environment. A .env file is honored for local development.
type Config struct {
	DatabaseURL string
	Port        int

	// Auth: either a remote JWKS endpoint (hosted auth provider) or a shared
	// HS256 secret for local development. JWKSURL wins when both are set.
	JWKSURL   string
	JWTSecret string

	// Operator capability for the privileged bypass surface.
	OperatorKey string

	// Billing webhook HMAC secret.
	WebhookSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Missing .env is fine; containers inject env directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           8080,
		JWKSURL:        os.Getenv("AUTH_JWKS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OperatorKey:    os.Getenv("OPERATOR_API_KEY"),
		WebhookSecret:  os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		RedisAddr:      getEnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MinioEndpoint:  getEnvDefault("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnvDefault("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnvDefault("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		MinioBucket:    getEnvDefault("MINIO_BUCKET", "analysis-images"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWKSURL == "" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("either AUTH_JWKS_URL or JWT_SECRET must be set")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %v", portStr, err)
		}
		cfg.Port = port
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.RedisDB = db
		}
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
