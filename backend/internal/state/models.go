package state

import (
	"fmt"
	"strings"
	"time"
)

// Requester is the authenticated user on whose behalf a core call runs.
// The boundary layer builds it once per request and passes it explicitly.
type Requester struct {
	UserID string `json:"user_id"`
}

// NewRequester validates an identifier supplied by the auth layer
func NewRequester(userID string) (Requester, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Requester{}, ErrInvalidIdentifier{Field: "user_id", Reason: "cannot be empty"}
	}
	return Requester{UserID: userID}, nil
}

// User is the profile projection the core reads from the users collection
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// ProfileText is the text a content query is built from
func (u User) ProfileText() string {
	return strings.Join([]string{u.Name, u.Bio, u.Location}, " ")
}

// Group is a study group
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Role is a user's role inside a group
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// Membership links a user to a group. It is owned by group management and
// read-only here.
type Membership struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	Role    Role   `json:"role"`
	Points  int64  `json:"points"`
}

// Joined reports whether the membership counts as belonging to the group.
// Guests are visible to the group but have not joined it.
func (m Membership) Joined() bool {
	return m.Role != "" && m.Role != RoleGuest
}

// JoinedOnly filters memberships down to the ones that count as joined
func JoinedOnly(memberships []Membership) []Membership {
	joined := make([]Membership, 0, len(memberships))
	for _, m := range memberships {
		if m.Joined() {
			joined = append(joined, m)
		}
	}
	return joined
}

// FollowEdge is a directed "follower follows followed" edge
type FollowEdge struct {
	FollowerID string    `json:"follower_id"`
	FollowedID string    `json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FriendRecord is the canonical undirected record implied by two follow edges.
// UserID1 < UserID2 always holds.
type FriendRecord struct {
	UserID1   string    `json:"user_id1"`
	UserID2   string    `json:"user_id2"`
	CreatedAt time.Time `json:"created_at"`
}

// CanonicalPair orders two identifiers so the smaller one comes first
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ConnectionKind selects one of the read-only graph projections
type ConnectionKind string

const (
	ConnectionFriends    ConnectionKind = "friends"
	ConnectionFollowers  ConnectionKind = "followers"
	ConnectionFollowings ConnectionKind = "followings"
)

// Neighborhood is every user directly connected to one user
type Neighborhood struct {
	Friends   []string `json:"friends"`
	Followers []string `json:"followers"`
	Followees []string `json:"followees"`
}

// RelationStatus describes the edges between an actor and a target
type RelationStatus struct {
	IsFollowing  bool `json:"is_following"`   // actor follows target
	IsFollowedBy bool `json:"is_followed_by"` // target follows actor
	IsFriend     bool `json:"is_friend"`
}

// Errors

type ErrInvalidIdentifier struct {
	Field  string
	Reason string
}

func (e ErrInvalidIdentifier) Error() string {
	return fmt.Sprintf("invalid identifier: %s - %s", e.Field, e.Reason)
}
