package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"studyhub/backend/internal/adapter"
	"studyhub/backend/internal/graph"
	"studyhub/backend/internal/outbox"
	"studyhub/backend/pkg/config"
	apperrors "studyhub/backend/pkg/errors"
	"studyhub/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting outbox relay...")

	if cfg.Store != config.StoreNeo4j {
		log.Fatal("Outbox relay needs STORE=neo4j", zap.String("store", cfg.Store))
	}
	if cfg.NatsURL == "" {
		log.Fatal("NATS_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)))
	}

	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)

	publisher, err := adapter.NewNatsPublisher(ctx, adapter.NatsConfig{
		URL:           cfg.NatsURL,
		Stream:        cfg.OutboxStream,
		SubjectPrefix: cfg.OutboxSubjectPrefix,
	})
	if err != nil {
		log.Fatal("Failed to connect publisher", zap.Error(err))
	}
	defer publisher.Close()

	relay := outbox.NewRelay(repo, publisher, outbox.RelayConfig{
		SubjectPrefix: cfg.OutboxSubjectPrefix,
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
	})

	log.Info("Outbox relay running",
		zap.String("stream", cfg.OutboxStream),
		zap.Duration("poll_interval", cfg.OutboxPollInterval),
	)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Outbox relay stopped", zap.Error(err))
	}
	log.Info("Outbox relay exited")
}
