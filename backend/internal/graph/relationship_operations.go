package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

// ============================================================================
// Follow Edge and Friendship Operations
// ============================================================================
//
// Every operation takes an optional transaction. With nil it runs in a
// write transaction of its own.

// AddEdge merges follower -> followed and reports whether the edge is new.
// Missing user nodes are created.
func (r *Repository) AddEdge(ctx context.Context, tx neo4j.ManagedTransaction, followerID, followedID string) (bool, error) {
	created, err := r.write(ctx, tx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := lockUsers(ctx, tx, true, followerID, followedID); err != nil {
			return false, err
		}

		query := `
			MATCH (a:User {id: $followerId}), (b:User {id: $followedId})
			MERGE (a)-[r:FOLLOWS]->(b)
			ON CREATE SET r.created_at = datetime()
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"followerId": followerID,
			"followedId": followedID,
		})
		if err != nil {
			return false, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return false, err
		}
		return summary.Counters().RelationshipsCreated() > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to add follow edge: %w", err)
	}
	return created.(bool), nil
}

// RemoveEdge deletes follower -> followed and reports whether it existed
func (r *Repository) RemoveEdge(ctx context.Context, tx neo4j.ManagedTransaction, followerID, followedID string) (bool, error) {
	deleted, err := r.write(ctx, tx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := lockUsers(ctx, tx, false, followerID, followedID); err != nil {
			return false, err
		}

		query := `
			MATCH (:User {id: $followerId})-[r:FOLLOWS]->(:User {id: $followedId})
			DELETE r
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"followerId": followerID,
			"followedId": followedID,
		})
		if err != nil {
			return false, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return false, err
		}
		return summary.Counters().RelationshipsDeleted() > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove follow edge: %w", err)
	}
	return deleted.(bool), nil
}

// EdgeExists reports whether follower -> followed exists
func (r *Repository) EdgeExists(ctx context.Context, tx neo4j.ManagedTransaction, followerID, followedID string) (bool, error) {
	work := func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			RETURN EXISTS {
				MATCH (:User {id: $followerId})-[:FOLLOWS]->(:User {id: $followedId})
			} AS exists
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"followerId": followerID,
			"followedId": followedID,
		})
		if err != nil {
			return false, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, err
		}
		return getBoolFromRecord(record, "exists"), nil
	}

	var (
		exists any
		err    error
	)
	if tx != nil {
		exists, err = work(tx)
	} else {
		exists, err = r.read(ctx, work)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return exists.(bool), nil
}

// UpsertFriend creates the friendship for a canonical pair if it is missing
// and reports whether it was created
func (r *Repository) UpsertFriend(ctx context.Context, tx neo4j.ManagedTransaction, userID1, userID2 string) (bool, error) {
	if userID1 >= userID2 {
		return false, apperrors.NewValidationFailed("user_id1", "must sort before user_id2")
	}

	created, err := r.write(ctx, tx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (f:Friendship {user_id1: $userId1, user_id2: $userId2})
			ON CREATE SET f.created_at = datetime()
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"userId1": userID1,
			"userId2": userID2,
		})
		if err != nil {
			return false, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return false, err
		}
		return summary.Counters().NodesCreated() > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert friendship: %w", err)
	}
	return created.(bool), nil
}

// RemoveFriend deletes the friendship for a canonical pair and reports
// whether it existed
func (r *Repository) RemoveFriend(ctx context.Context, tx neo4j.ManagedTransaction, userID1, userID2 string) (bool, error) {
	deleted, err := r.write(ctx, tx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (f:Friendship {user_id1: $userId1, user_id2: $userId2})
			DELETE f
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"userId1": userID1,
			"userId2": userID2,
		})
		if err != nil {
			return false, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return false, err
		}
		return summary.Counters().NodesDeleted() > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove friendship: %w", err)
	}
	return deleted.(bool), nil
}

// lockUsers write-locks both user nodes in canonical order. Neo4j reads
// are read-committed, so without this Follow(a,b) and Follow(b,a) could each
// miss the other's edge and both skip the friendship.
func lockUsers(ctx context.Context, tx neo4j.ManagedTransaction, create bool, a, b string) error {
	first, second := state.CanonicalPair(a, b)

	query := `
		UNWIND $ids AS id
		MATCH (u:User {id: id})
		SET u.graph_version = coalesce(u.graph_version, 0) + 1
	`
	if create {
		query = `
			UNWIND $ids AS id
			MERGE (u:User {id: id})
			SET u.graph_version = coalesce(u.graph_version, 0) + 1
		`
	}

	res, err := tx.Run(ctx, query, map[string]any{"ids": []string{first, second}})
	if err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	_, err = res.Consume(ctx)
	return err
}
