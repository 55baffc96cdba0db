package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

// ============================================================================
// User and Connection Operations
// ============================================================================

// connectionQueries yield one otherId row per connection of $userId
var connectionQueries = map[state.ConnectionKind]string{
	state.ConnectionFriends: `
		MATCH (f:Friendship) WHERE f.user_id1 = $userId OR f.user_id2 = $userId
		WITH CASE WHEN f.user_id1 = $userId THEN f.user_id2 ELSE f.user_id1 END AS otherId`,
	state.ConnectionFollowers: `
		MATCH (o:User)-[:FOLLOWS]->(:User {id: $userId})
		WITH o.id AS otherId`,
	state.ConnectionFollowings: `
		MATCH (:User {id: $userId})-[:FOLLOWS]->(o:User)
		WITH o.id AS otherId`,
}

// ListConnections pages through one projection of userID's graph ordered by id
func (r *Repository) ListConnections(ctx context.Context, userID string, kind state.ConnectionKind, skip, limit int) ([]state.User, int, error) {
	match, ok := connectionQueries[kind]
	if !ok {
		return nil, 0, apperrors.NewValidationFailed("kind", "unknown connection kind "+string(kind))
	}

	query := match + `
		WITH otherId ORDER BY otherId
		WITH collect(otherId) AS ids
		RETURN size(ids) AS total, ids[$skip..($skip + $limit)] AS pageIds
	`

	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"userId": userID,
			"skip":   skip,
			"limit":  limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return nil, 0, apperrors.NewGraphQueryFailed("list "+string(kind), err)
	}

	record := result.(*neo4j.Record)
	total := getIntFromRecord(record, "total")
	pageIDs := getStringSliceFromRecord(record, "pageIds")
	if len(pageIDs) == 0 {
		return []state.User{}, total, nil
	}

	profiles, err := r.UsersByID(ctx, pageIDs)
	if err != nil {
		return nil, 0, err
	}
	users := make([]state.User, len(pageIDs))
	for i, id := range pageIDs {
		if u, ok := profiles[id]; ok {
			users[i] = u
		} else {
			users[i] = state.User{ID: id}
		}
	}
	return users, total, nil
}

// RelationStatus reports the edges between actorID and targetID
func (r *Repository) RelationStatus(ctx context.Context, actorID, targetID string) (*state.RelationStatus, error) {
	first, second := state.CanonicalPair(actorID, targetID)

	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// one round trip for both directions and the friendship
		query := `
			RETURN
				EXISTS { MATCH (:User {id: $actorId})-[:FOLLOWS]->(:User {id: $targetId}) } AS following,
				EXISTS { MATCH (:User {id: $targetId})-[:FOLLOWS]->(:User {id: $actorId}) } AS followedBy,
				EXISTS { MATCH (f:Friendship {user_id1: $userId1, user_id2: $userId2}) } AS friend
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"actorId":  actorID,
			"targetId": targetID,
			"userId1":  first,
			"userId2":  second,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return &state.RelationStatus{
			IsFollowing:  getBoolFromRecord(record, "following"),
			IsFollowedBy: getBoolFromRecord(record, "followedBy"),
			IsFriend:     getBoolFromRecord(record, "friend"),
		}, nil
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("relation status", err)
	}
	return result.(*state.RelationStatus), nil
}

// Neighborhoods returns the direct connections of each requested user
func (r *Repository) Neighborhoods(ctx context.Context, userIDs []string) (map[string]state.Neighborhood, error) {
	queries := []struct {
		query  string
		assign func(nb *state.Neighborhood, other string)
	}{
		{
			query: `
				UNWIND $ids AS uid
				MATCH (f:Friendship) WHERE f.user_id1 = uid OR f.user_id2 = uid
				RETURN uid, CASE WHEN f.user_id1 = uid THEN f.user_id2 ELSE f.user_id1 END AS other`,
			assign: func(nb *state.Neighborhood, other string) { nb.Friends = append(nb.Friends, other) },
		},
		{
			query: `
				UNWIND $ids AS uid
				MATCH (o:User)-[:FOLLOWS]->(:User {id: uid})
				RETURN uid, o.id AS other`,
			assign: func(nb *state.Neighborhood, other string) { nb.Followers = append(nb.Followers, other) },
		},
		{
			query: `
				UNWIND $ids AS uid
				MATCH (:User {id: uid})-[:FOLLOWS]->(o:User)
				RETURN uid, o.id AS other`,
			assign: func(nb *state.Neighborhood, other string) { nb.Followees = append(nb.Followees, other) },
		},
	}

	out := make(map[string]*state.Neighborhood, len(userIDs))
	for _, id := range userIDs {
		out[id] = &state.Neighborhood{Friends: []string{}, Followers: []string{}, Followees: []string{}}
	}

	_, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range queries {
			res, err := tx.Run(ctx, q.query, map[string]any{"ids": nonNil(userIDs)})
			if err != nil {
				return nil, err
			}
			for res.Next(ctx) {
				record := res.Record()
				if nb, ok := out[getStringFromRecord(record, "uid")]; ok {
					q.assign(nb, getStringFromRecord(record, "other"))
				}
			}
			if err := res.Err(); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("neighborhoods", err)
	}

	neighborhoods := make(map[string]state.Neighborhood, len(out))
	for id, nb := range out {
		sort.Strings(nb.Friends)
		sort.Strings(nb.Followers)
		sort.Strings(nb.Followees)
		neighborhoods[id] = *nb
	}
	return neighborhoods, nil
}

// UsersByID returns the profiles that exist among userIDs
func (r *Repository) UsersByID(ctx context.Context, userIDs []string) (map[string]state.User, error) {
	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $ids AS uid
			MATCH (u:User {id: uid})
			RETURN ` + userColumns
		res, err := tx.Run(ctx, query, map[string]any{"ids": nonNil(userIDs)})
		if err != nil {
			return nil, err
		}
		users := make(map[string]state.User)
		for res.Next(ctx) {
			u := recordToUser(res.Record())
			users[u.ID] = u
		}
		return users, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("users by id", err)
	}
	return result.(map[string]state.User), nil
}

// UserProfile returns userID's profile or a not-found error
func (r *Repository) UserProfile(ctx context.Context, userID string) (*state.User, error) {
	users, err := r.UsersByID(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	u, ok := users[userID]
	if !ok {
		return nil, apperrors.NewNotFound("user", userID)
	}
	return &u, nil
}

// FriendIDs returns userID's friends ordered by id
func (r *Repository) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	nbs, err := r.Neighborhoods(ctx, []string{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	return nbs[userID].Friends, nil
}
