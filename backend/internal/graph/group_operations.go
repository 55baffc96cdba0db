package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

// ============================================================================
// Study Group and Membership Operations
// ============================================================================

// Memberships returns every membership of userID, guests included
func (r *Repository) Memberships(ctx context.Context, userID string) ([]state.Membership, error) {
	return r.MembershipsOfUsers(ctx, []string{userID})
}

// MembershipsOfUsers returns every membership held by any of userIDs
func (r *Repository) MembershipsOfUsers(ctx context.Context, userIDs []string) ([]state.Membership, error) {
	query := `
		UNWIND $ids AS uid
		MATCH (u:User {id: uid})-[m:MEMBER_OF]->(g:StudyGroup)
		RETURN ` + membershipColumns + `
		ORDER BY user_id, group_id
	`
	memberships, err := r.collectMemberships(ctx, query, map[string]any{"ids": nonNil(userIDs)})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("memberships of users", err)
	}
	return memberships, nil
}

// GroupMemberships returns every membership in any of groupIDs
func (r *Repository) GroupMemberships(ctx context.Context, groupIDs []string) ([]state.Membership, error) {
	query := `
		UNWIND $ids AS gid
		MATCH (u:User)-[m:MEMBER_OF]->(g:StudyGroup {id: gid})
		RETURN ` + membershipColumns + `
		ORDER BY user_id, group_id
	`
	memberships, err := r.collectMemberships(ctx, query, map[string]any{"ids": nonNil(groupIDs)})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("group memberships", err)
	}
	return memberships, nil
}

func (r *Repository) collectMemberships(ctx context.Context, query string, params map[string]any) ([]state.Membership, error) {
	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var memberships []state.Membership
		for res.Next(ctx) {
			memberships = append(memberships, recordToMembership(res.Record()))
		}
		return memberships, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]state.Membership), nil
}

// Groups returns the groups that exist among groupIDs
func (r *Repository) Groups(ctx context.Context, groupIDs []string) (map[string]state.Group, error) {
	query := `
		UNWIND $ids AS gid
		MATCH (g:StudyGroup {id: gid})
		RETURN ` + groupColumns
	groups, err := r.collectGroups(ctx, query, map[string]any{"ids": nonNil(groupIDs)})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("groups", err)
	}

	byID := make(map[string]state.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}
	return byID, nil
}

// GroupsExcluding returns every group not in excludeIDs ordered by id
func (r *Repository) GroupsExcluding(ctx context.Context, excludeIDs []string) ([]state.Group, error) {
	query := `
		MATCH (g:StudyGroup)
		WHERE NOT g.id IN $exclude
		RETURN ` + groupColumns + `
		ORDER BY id
	`
	groups, err := r.collectGroups(ctx, query, map[string]any{"exclude": nonNil(excludeIDs)})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("groups excluding", err)
	}
	return groups, nil
}

func (r *Repository) collectGroups(ctx context.Context, query string, params map[string]any) ([]state.Group, error) {
	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		groups := []state.Group{}
		for res.Next(ctx) {
			groups = append(groups, recordToGroup(res.Record()))
		}
		return groups, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]state.Group), nil
}

// MemberCounts counts joined members per group, guests excluded
func (r *Repository) MemberCounts(ctx context.Context, groupIDs []string) (map[string]int, error) {
	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $ids AS gid
			OPTIONAL MATCH (:User)-[m:MEMBER_OF]->(:StudyGroup {id: gid})
			WHERE m.role IS NOT NULL AND m.role <> $guest
			RETURN gid, count(m) AS members
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"ids":   nonNil(groupIDs),
			"guest": string(state.RoleGuest),
		})
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int, len(groupIDs))
		for res.Next(ctx) {
			record := res.Record()
			counts[getStringFromRecord(record, "gid")] = getIntFromRecord(record, "members")
		}
		return counts, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("member counts", err)
	}
	return result.(map[string]int), nil
}

// PendingJoinRequests reports which of groupIDs userID has a pending request for
func (r *Repository) PendingJoinRequests(ctx context.Context, userID string, groupIDs []string) (map[string]bool, error) {
	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $ids AS gid
			MATCH (:User {id: $userId})-[jr:REQUESTED_JOIN]->(:StudyGroup {id: gid})
			WHERE jr.status = $pending
			RETURN DISTINCT gid
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"ids":     nonNil(groupIDs),
			"userId":  userID,
			"pending": constants.JoinRequestPending,
		})
		if err != nil {
			return nil, err
		}
		requested := make(map[string]bool)
		for res.Next(ctx) {
			requested[getStringFromRecord(res.Record(), "gid")] = true
		}
		return requested, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("pending join requests", err)
	}
	return result.(map[string]bool), nil
}
