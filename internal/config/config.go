package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=restaurant port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	LogLevel    string

	// Empty means in-process locking.
	RedisAddress string
	// Empty means status notifications are dropped.
	AMQPURL string
	// Empty disables trace export.
	OTelEndpoint string

	EnforceStockOnConfirm bool
	ProducibleRounding    string
	DBMaxOpenConns        int

	// Warnings collects non-fatal findings, logged by main once the logger exists.
	Warnings []string
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSOrigins:        getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		AMQPURL:            getEnv("AMQP_URL", ""),
		OTelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ProducibleRounding: strings.ToLower(getEnv("PRODUCIBLE_ROUNDING", "ceil")),
	}

	var err error
	if cfg.EnforceStockOnConfirm, err = strconv.ParseBool(getEnv("ENFORCE_STOCK_ON_CONFIRM", "false")); err != nil {
		return nil, fmt.Errorf("ENFORCE_STOCK_ON_CONFIRM: %w", err)
	}
	if cfg.DBMaxOpenConns, err = strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20")); err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.ProducibleRounding != "ceil" && c.ProducibleRounding != "floor" {
		return fmt.Errorf("PRODUCIBLE_ROUNDING must be ceil or floor, got %q", c.ProducibleRounding)
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DBMaxOpenConns)
	}

	if c.DatabaseDSN == defaultDSN {
		c.Warnings = append(c.Warnings, "DATABASE_DSN uses the local default, set your own Postgres DSN in production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		c.Warnings = append(c.Warnings, "CORS_ALLOWED_ORIGINS uses the local default")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
