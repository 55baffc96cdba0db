package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "studyhub/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", "")
	t.Setenv("OUTBOX_POLL_INTERVAL_MS", "")
	t.Setenv("REQUEST_TIMEOUT_MS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreNeo4j, cfg.Store)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "social", cfg.OutboxSubjectPrefix)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE", StoreMemory)
	t.Setenv("REQUEST_TIMEOUT_MS", "250")
	t.Setenv("SOURCE_CONCURRENCY", "2")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.SourceConcurrency)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Store:              StoreNeo4j,
			Neo4jURI:           "bolt://localhost:7687",
			Neo4jUser:          "neo4j",
			Neo4jPassword:      "password",
			OutboxBatchSize:    10,
			OutboxPollInterval: time.Second,
			RequestTimeout:     time.Second,
			SourceConcurrency:  4,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		errType apperrors.ErrorType
	}{
		{"valid", func(*Config) {}, ""},
		{"missing uri", func(c *Config) { c.Neo4jURI = "" }, apperrors.ErrorTypeConfig},
		{"memory store needs no neo4j", func(c *Config) { c.Store = StoreMemory; c.Neo4jPassword = "" }, ""},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, apperrors.ErrorTypeConfig},
		{"zero batch", func(c *Config) { c.OutboxBatchSize = 0 }, apperrors.ErrorTypeConfig},
		{"zero concurrency", func(c *Config) { c.SourceConcurrency = 0 }, apperrors.ErrorTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsErrorType(err, tt.errType), "got %v", err)
		})
	}
}
