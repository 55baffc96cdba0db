package recommend

import (
	"context"

	"studyhub/backend/internal/state"
)

// DataReader is the read side the recommender needs. Every call is an
// independent read; nothing ties two calls to one snapshot.
type DataReader interface {
	// UserProfile returns a not-found error for unknown users
	UserProfile(ctx context.Context, userID string) (*state.User, error)
	// Memberships returns every membership of userID, guests included
	Memberships(ctx context.Context, userID string) ([]state.Membership, error)
	MembershipsOfUsers(ctx context.Context, userIDs []string) ([]state.Membership, error)
	GroupMemberships(ctx context.Context, groupIDs []string) ([]state.Membership, error)
	Groups(ctx context.Context, groupIDs []string) (map[string]state.Group, error)
	// GroupsExcluding returns every group not listed, ordered by id
	GroupsExcluding(ctx context.Context, excludeIDs []string) ([]state.Group, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	// MemberCounts counts joined members, guests excluded
	MemberCounts(ctx context.Context, groupIDs []string) (map[string]int, error)
	PendingJoinRequests(ctx context.Context, userID string, groupIDs []string) (map[string]bool, error)
}

// Candidate is one scored group produced by a source
type Candidate struct {
	GroupID string
	Group   *state.Group
	Score   float64
}

// SourceRequest is what every source gets to work from
type SourceRequest struct {
	User       state.User
	Joined     []state.Membership
	MaxResults int
}

// JoinedGroupIDs lists the groups the requester belongs to
func (r SourceRequest) JoinedGroupIDs() []string {
	ids := make([]string, len(r.Joined))
	for i, m := range r.Joined {
		ids[i] = m.GroupID
	}
	return ids
}

// Source is one independent signal. Candidates returns at most
// req.MaxResults groups the requester has not joined, best first.
type Source interface {
	Name() string
	Weight() float64
	Candidates(ctx context.Context, req SourceRequest) ([]Candidate, error)
}
