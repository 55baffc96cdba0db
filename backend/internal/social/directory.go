package social

import (
	"context"
	"fmt"
	"strings"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

// UserPage is one page of a friend, follower or following listing
type UserPage struct {
	Items []state.User `json:"items"`
	state.Pagination
}

// Directory serves the read-only projections of the follow graph
type Directory struct {
	reader ConnectionReader
}

// NewDirectory creates a directory over reader
func NewDirectory(reader ConnectionReader) *Directory {
	return &Directory{reader: reader}
}

// Friends lists users with a friend record shared with userID
func (d *Directory) Friends(ctx context.Context, userID string, page, pageSize int) (*UserPage, error) {
	return d.list(ctx, userID, state.ConnectionFriends, page, pageSize)
}

// Followers lists users following userID
func (d *Directory) Followers(ctx context.Context, userID string, page, pageSize int) (*UserPage, error) {
	return d.list(ctx, userID, state.ConnectionFollowers, page, pageSize)
}

// Followings lists users userID follows
func (d *Directory) Followings(ctx context.Context, userID string, page, pageSize int) (*UserPage, error) {
	return d.list(ctx, userID, state.ConnectionFollowings, page, pageSize)
}

// Relation reports the edges between actorID and targetID
func (d *Directory) Relation(ctx context.Context, actorID, targetID string) (*state.RelationStatus, error) {
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" {
		return nil, apperrors.NewValidationFailed("user_id", "cannot be empty")
	}
	status, err := d.reader.RelationStatus(ctx, actorID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read relation status: %w", err)
	}
	return status, nil
}

func (d *Directory) list(ctx context.Context, userID string, kind state.ConnectionKind, page, pageSize int) (*UserPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationFailed("user_id", "cannot be empty")
	}
	page, pageSize = state.ClampPage(page, pageSize, constants.MaxListPageSize)

	users, total, err := d.reader.ListConnections(ctx, userID, kind, state.Skip(page, pageSize), pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	if users == nil {
		users = []state.User{}
	}

	return &UserPage{
		Items:      users,
		Pagination: state.NewPagination(page, pageSize, total),
	}, nil
}
