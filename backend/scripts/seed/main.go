package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/graph"
	"studyhub/backend/internal/social"
	"studyhub/backend/internal/state"
	"studyhub/backend/pkg/config"
	"studyhub/backend/pkg/logger"
)

const demoPrefix = "demo-"

func main() {
	reset := flag.Bool("reset", false, "Delete existing demo data before seeding")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	if *reset {
		if err := repo.DeleteByPrefix(ctx, demoPrefix); err != nil {
			log.Fatal("Failed to delete demo data", zap.Error(err))
		}
		log.Info("Deleted existing demo data")
	}

	if err := seed(ctx, repo); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seeding complete")
}

func seed(ctx context.Context, repo *graph.Repository) error {
	users := []state.User{
		{ID: demoPrefix + "alice", Name: "Alice", Bio: "distributed systems and go", Location: "Berlin"},
		{ID: demoPrefix + "bob", Name: "Bob", Bio: "databases, graph theory", Location: "Berlin"},
		{ID: demoPrefix + "carol", Name: "Carol", Bio: "machine learning research", Location: "Lisbon"},
		{ID: demoPrefix + "dave", Name: "Dave", Bio: "rust and systems programming", Location: "Oslo"},
		{ID: demoPrefix + "erin", Name: "Erin", Bio: "watercolor and sketching", Location: "Lisbon"},
	}
	groups := []state.Group{
		{ID: demoPrefix + "go", Name: "Go Study Circle", Description: "go concurrency, services and distributed systems"},
		{ID: demoPrefix + "graphs", Name: "Graph Databases", Description: "cypher, neo4j and graph theory"},
		{ID: demoPrefix + "ml", Name: "ML Reading Group", Description: "machine learning papers each week"},
		{ID: demoPrefix + "rust", Name: "Rustaceans", Description: "rust ownership and systems programming"},
		{ID: demoPrefix + "art", Name: "Sketch Club", Description: "drawing, watercolor and sketching outdoors"},
	}
	memberships := []state.Membership{
		{UserID: demoPrefix + "alice", GroupID: demoPrefix + "go", Role: state.RoleOwner, Points: 120},
		{UserID: demoPrefix + "bob", GroupID: demoPrefix + "go", Role: state.RoleMember, Points: 40},
		{UserID: demoPrefix + "bob", GroupID: demoPrefix + "graphs", Role: state.RoleAdmin, Points: 90},
		{UserID: demoPrefix + "carol", GroupID: demoPrefix + "ml", Role: state.RoleOwner, Points: 75},
		{UserID: demoPrefix + "carol", GroupID: demoPrefix + "graphs", Role: state.RoleGuest},
		{UserID: demoPrefix + "dave", GroupID: demoPrefix + "rust", Role: state.RoleOwner, Points: 60},
		{UserID: demoPrefix + "dave", GroupID: demoPrefix + "go", Role: state.RoleMember, Points: 15},
		{UserID: demoPrefix + "erin", GroupID: demoPrefix + "art", Role: state.RoleOwner, Points: 30},
	}
	follows := [][2]string{
		{"alice", "bob"}, {"bob", "alice"},
		{"alice", "carol"},
		{"carol", "dave"}, {"dave", "carol"},
		{"erin", "alice"},
	}

	for _, u := range users {
		if err := repo.UpsertUser(ctx, u); err != nil {
			return err
		}
	}
	for _, g := range groups {
		if err := repo.UpsertGroup(ctx, g); err != nil {
			return err
		}
	}
	for _, m := range memberships {
		if err := repo.UpsertMembership(ctx, m); err != nil {
			return err
		}
	}
	if err := repo.UpsertJoinRequest(ctx, demoPrefix+"alice", demoPrefix+"graphs", constants.JoinRequestPending); err != nil {
		return err
	}

	// Follows go through the maintainer so friend records and outbox events
	// are written the same way the API writes them
	maintainer := social.NewMaintainer(repo)
	for _, f := range follows {
		if err := maintainer.Follow(ctx, demoPrefix+f[0], demoPrefix+f[1]); err != nil {
			return err
		}
	}

	logger.Get().Info("Seeded demo graph",
		zap.Int("users", len(users)),
		zap.Int("groups", len(groups)),
		zap.Int("memberships", len(memberships)),
		zap.Int("follows", len(follows)),
	)
	return nil
}
