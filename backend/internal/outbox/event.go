package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a social graph change
type EventType string

const (
	EventUserFollowed   EventType = "user.followed"
	EventUserUnfollowed EventType = "user.unfollowed"
)

// Event is a typed change record written in the same transaction as the
// change it describes. Payload is the JSON encoding of one of the payload types.
type Event struct {
	ID           string     `json:"id"`
	Type         EventType  `json:"type"`
	Payload      []byte     `json:"payload"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}

// UserFollowed is emitted when a new follow edge is created
type UserFollowed struct {
	FollowerID    string `json:"follower_id"`
	FollowedID    string `json:"followed_id"`
	BecameFriends bool   `json:"became_friends"`
}

// UserUnfollowed is emitted when an existing follow edge is removed
type UserUnfollowed struct {
	FollowerID      string `json:"follower_id"`
	FollowedID      string `json:"followed_id"`
	FriendshipEnded bool   `json:"friendship_ended"`
}

// NewUserFollowed builds a user.followed event
func NewUserFollowed(followerID, followedID string, becameFriends bool) (Event, error) {
	return newEvent(EventUserFollowed, UserFollowed{
		FollowerID:    followerID,
		FollowedID:    followedID,
		BecameFriends: becameFriends,
	})
}

// NewUserUnfollowed builds a user.unfollowed event
func NewUserUnfollowed(followerID, followedID string, friendshipEnded bool) (Event, error) {
	return newEvent(EventUserUnfollowed, UserUnfollowed{
		FollowerID:      followerID,
		FollowedID:      followedID,
		FriendshipEnded: friendshipEnded,
	})
}

func newEvent(eventType EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Subject is the broker subject an event type is published on
func Subject(prefix string, eventType EventType) string {
	if prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}
