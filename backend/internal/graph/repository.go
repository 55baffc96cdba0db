package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"studyhub/backend/internal/outbox"
	"studyhub/backend/internal/recommend"
	"studyhub/backend/internal/social"
	"studyhub/backend/pkg/logger"
)

var (
	_ social.GraphStore       = (*Repository)(nil)
	_ social.ConnectionReader = (*Repository)(nil)
	_ recommend.DataReader    = (*Repository)(nil)
	_ outbox.Store            = (*Repository)(nil)
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewRepository creates a new graph repository. An empty database selects
// the server default.
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Named("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Ping verifies the server is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// EnsureSchema creates the constraints and indexes the queries rely on
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// schema changes cannot share a transaction with each other
	for _, stmt := range schemaStatements {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			_, err = res.Consume(ctx)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", stmt, err)
		}
	}

	r.logger.Info("Graph schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}

// InTx runs fn in one managed write transaction. The driver reruns fn on
// transient failures such as deadlocks, so fn must only write through tx.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx social.GraphTx) error) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(ctx, &graphTx{repo: r, tx: tx})
	})
	if err != nil {
		return fmt.Errorf("write transaction aborted: %w", err)
	}
	return nil
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.database,
	})
}

// write runs work in tx when one is given, otherwise in its own transaction
func (r *Repository) write(ctx context.Context, tx neo4j.ManagedTransaction, work neo4j.ManagedTransactionWork) (any, error) {
	if tx != nil {
		return work(tx)
	}
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

func (r *Repository) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// graphTx binds the repository's edge operations to one managed transaction
type graphTx struct {
	repo *Repository
	tx   neo4j.ManagedTransaction
}

func (g *graphTx) AddEdge(ctx context.Context, followerID, followedID string) (bool, error) {
	return g.repo.AddEdge(ctx, g.tx, followerID, followedID)
}

func (g *graphTx) RemoveEdge(ctx context.Context, followerID, followedID string) (bool, error) {
	return g.repo.RemoveEdge(ctx, g.tx, followerID, followedID)
}

func (g *graphTx) EdgeExists(ctx context.Context, followerID, followedID string) (bool, error) {
	return g.repo.EdgeExists(ctx, g.tx, followerID, followedID)
}

func (g *graphTx) UpsertFriend(ctx context.Context, userID1, userID2 string) (bool, error) {
	return g.repo.UpsertFriend(ctx, g.tx, userID1, userID2)
}

func (g *graphTx) RemoveFriend(ctx context.Context, userID1, userID2 string) (bool, error) {
	return g.repo.RemoveFriend(ctx, g.tx, userID1, userID2)
}

func (g *graphTx) AppendEvent(ctx context.Context, event outbox.Event) error {
	return g.repo.AppendEvent(ctx, g.tx, event)
}
