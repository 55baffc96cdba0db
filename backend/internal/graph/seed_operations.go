package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"studyhub/backend/internal/state"
)

// ============================================================================
// Seed Operations
// ============================================================================
//
// Users, groups, memberships and join requests belong to other services in
// production. These upserts exist for the seed script and integration tests.

// UpsertUser creates or updates a user profile
func (r *Repository) UpsertUser(ctx context.Context, u state.User) error {
	return r.run(ctx, "upsert user", `
		MERGE (u:User {id: $id})
		SET u.name = $name, u.bio = $bio, u.location = $location, u.avatar = $avatar
	`, map[string]any{
		"id":       u.ID,
		"name":     u.Name,
		"bio":      u.Bio,
		"location": u.Location,
		"avatar":   u.Avatar,
	})
}

// UpsertGroup creates or updates a study group
func (r *Repository) UpsertGroup(ctx context.Context, g state.Group) error {
	return r.run(ctx, "upsert group", `
		MERGE (g:StudyGroup {id: $id})
		SET g.name = $name, g.description = $description
	`, map[string]any{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
	})
}

// UpsertMembership creates or updates a membership between existing nodes
func (r *Repository) UpsertMembership(ctx context.Context, m state.Membership) error {
	return r.run(ctx, "upsert membership", `
		MATCH (u:User {id: $userId}), (g:StudyGroup {id: $groupId})
		MERGE (u)-[m:MEMBER_OF]->(g)
		SET m.role = $role, m.points = $points
	`, map[string]any{
		"userId":  m.UserID,
		"groupId": m.GroupID,
		"role":    string(m.Role),
		"points":  m.Points,
	})
}

// UpsertJoinRequest records a join request between existing nodes
func (r *Repository) UpsertJoinRequest(ctx context.Context, userID, groupID, status string) error {
	return r.run(ctx, "upsert join request", `
		MATCH (u:User {id: $userId}), (g:StudyGroup {id: $groupId})
		MERGE (u)-[jr:REQUESTED_JOIN]->(g)
		SET jr.status = $status
	`, map[string]any{
		"userId":  userID,
		"groupId": groupID,
		"status":  status,
	})
}

// DeleteByPrefix removes users, groups, friendships and events whose ids
// start with prefix
func (r *Repository) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, query := range []string{
		`MATCH (n) WHERE (n:User OR n:StudyGroup) AND n.id STARTS WITH $prefix DETACH DELETE n`,
		`MATCH (f:Friendship) WHERE f.user_id1 STARTS WITH $prefix DELETE f`,
		`MATCH (e:OutboxEvent) WHERE e.payload CONTAINS $prefix DELETE e`,
	} {
		if err := r.run(ctx, "delete by prefix", query, map[string]any{"prefix": prefix}); err != nil {
			return err
		}
	}
	r.logger.Debug("Deleted nodes by prefix", zap.String("prefix", prefix))
	return nil
}

func (r *Repository) run(ctx context.Context, op, query string, params map[string]any) error {
	_, err := r.write(ctx, nil, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}
