package social

import (
	"context"

	"studyhub/backend/internal/outbox"
	"studyhub/backend/internal/state"
)

// GraphTx is the edge and friendship API available inside one store
// transaction. Nothing written through it is visible to other transactions
// before commit, and all of it is discarded on abort.
type GraphTx interface {
	// AddEdge upserts follower -> followed and reports whether it was new
	AddEdge(ctx context.Context, followerID, followedID string) (bool, error)
	// RemoveEdge deletes follower -> followed and reports whether it existed
	RemoveEdge(ctx context.Context, followerID, followedID string) (bool, error)
	EdgeExists(ctx context.Context, followerID, followedID string) (bool, error)
	// UpsertFriend inserts the canonical pair if absent and reports whether it was new
	UpsertFriend(ctx context.Context, userID1, userID2 string) (bool, error)
	// RemoveFriend deletes the canonical pair and reports whether it existed
	RemoveFriend(ctx context.Context, userID1, userID2 string) (bool, error)
	// AppendEvent writes an outbox event that commits with the transaction
	AppendEvent(ctx context.Context, event outbox.Event) error
}

// GraphStore runs fn inside one write transaction, committing when fn
// returns nil and aborting otherwise. Implementations may rerun fn on
// transient conflicts, so fn must not have side effects outside tx.
type GraphStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx GraphTx) error) error
}

// ConnectionReader is the read-only projection of the follow graph
type ConnectionReader interface {
	// ListConnections pages through one projection ordered by user id and
	// returns the page plus the total count
	ListConnections(ctx context.Context, userID string, kind state.ConnectionKind, skip, limit int) ([]state.User, int, error)
	RelationStatus(ctx context.Context, actorID, targetID string) (*state.RelationStatus, error)
	// Neighborhoods returns one entry per requested user, empty when unknown
	Neighborhoods(ctx context.Context, userIDs []string) (map[string]state.Neighborhood, error)
	// UsersByID skips identifiers with no profile
	UsersByID(ctx context.Context, userIDs []string) (map[string]state.User, error)
}
