package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	apperrors "studyhub/backend/pkg/errors"
)

// Store backends
const (
	StoreNeo4j  = "neo4j"
	StoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// App
	Port  string
	Env   string
	Store string // neo4j or memory

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string // empty selects the server default

	// Outbox relay
	NatsURL             string // empty disables publishing
	OutboxStream        string
	OutboxSubjectPrefix string
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int

	// Request handling
	RequestTimeout    time.Duration // deadline wrapped around every core call
	SourceConcurrency int           // parallel signal source queries per recommendation
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		Store:               getEnv("STORE", StoreNeo4j),
		Neo4jURI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:       getEnv("NEO4J_DATABASE", ""),
		NatsURL:             getEnv("NATS_URL", ""),
		OutboxStream:        getEnv("OUTBOX_STREAM", "SOCIAL"),
		OutboxSubjectPrefix: getEnv("OUTBOX_SUBJECT_PREFIX", "social"),
		OutboxPollInterval:  time.Duration(getEnvInt("OUTBOX_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		OutboxBatchSize:     getEnvInt("OUTBOX_BATCH_SIZE", 100),
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 5000)) * time.Millisecond,
		SourceConcurrency:   getEnvInt("SOURCE_CONCURRENCY", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.Store {
	case StoreNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case StoreMemory:
	default:
		return apperrors.NewConfigValidationFailed("STORE", fmt.Sprintf("unknown store %q", c.Store))
	}
	if c.OutboxBatchSize < 1 {
		return apperrors.NewConfigValidationFailed("OUTBOX_BATCH_SIZE", "must be positive")
	}
	if c.OutboxPollInterval <= 0 {
		return apperrors.NewConfigValidationFailed("OUTBOX_POLL_INTERVAL_MS", "must be positive")
	}
	if c.RequestTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("REQUEST_TIMEOUT_MS", "must be positive")
	}
	if c.SourceConcurrency < 1 {
		return apperrors.NewConfigValidationFailed("SOURCE_CONCURRENCY", "must be positive")
	}
	// NATS is optional; without it the relay has nowhere to publish
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
