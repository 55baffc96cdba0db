package social

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"studyhub/backend/internal/outbox"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
	"studyhub/backend/pkg/logger"
)

// Maintainer owns every write to follow edges and friend records. A friend
// record exists exactly when both directed edges exist; Follow and Unfollow
// keep that true by doing all their work inside one store transaction.
type Maintainer struct {
	store  GraphStore
	logger *zap.Logger
}

// NewMaintainer creates a maintainer over store
func NewMaintainer(store GraphStore) *Maintainer {
	return &Maintainer{
		store:  store,
		logger: logger.Named("social"),
	}
}

// Follow makes userID follow targetID and completes the friendship when
// targetID already follows back. Re-following is a silent success.
func (m *Maintainer) Follow(ctx context.Context, userID, targetID string) error {
	if err := validatePair(userID, targetID, "follow"); err != nil {
		return err
	}

	var created, becameFriends bool
	err := m.store.InTx(ctx, func(ctx context.Context, tx GraphTx) error {
		// the store may rerun this closure, so start from a clean slate
		created, becameFriends = false, false

		var err error
		created, err = tx.AddEdge(ctx, userID, targetID)
		if err != nil {
			return err
		}

		reverse, err := tx.EdgeExists(ctx, targetID, userID)
		if err != nil {
			return err
		}
		if reverse {
			first, second := state.CanonicalPair(userID, targetID)
			becameFriends, err = tx.UpsertFriend(ctx, first, second)
			if err != nil {
				return err
			}
		}

		if !created {
			return nil
		}
		event, err := outbox.NewUserFollowed(userID, targetID, becameFriends)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		m.logger.Error("Follow failed",
			zap.String("user_id", userID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return transactionError("follow", err)
	}

	if created {
		m.logger.Info("User followed",
			zap.String("user_id", userID),
			zap.String("target_id", targetID),
			zap.Bool("became_friends", becameFriends),
		)
	}
	return nil
}

// Unfollow removes userID -> targetID and, if the edge existed, the
// friendship it was half of. Unfollowing a user not followed is a no-op.
func (m *Maintainer) Unfollow(ctx context.Context, userID, targetID string) error {
	if err := validatePair(userID, targetID, "unfollow"); err != nil {
		return err
	}

	var existed, friendshipEnded bool
	err := m.store.InTx(ctx, func(ctx context.Context, tx GraphTx) error {
		existed, friendshipEnded = false, false

		var err error
		existed, err = tx.RemoveEdge(ctx, userID, targetID)
		if err != nil {
			return err
		}
		if !existed {
			return nil
		}

		first, second := state.CanonicalPair(userID, targetID)
		friendshipEnded, err = tx.RemoveFriend(ctx, first, second)
		if err != nil {
			return err
		}

		event, err := outbox.NewUserUnfollowed(userID, targetID, friendshipEnded)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		m.logger.Error("Unfollow failed",
			zap.String("user_id", userID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return transactionError("unfollow", err)
	}

	if existed {
		m.logger.Info("User unfollowed",
			zap.String("user_id", userID),
			zap.String("target_id", targetID),
			zap.Bool("friendship_ended", friendshipEnded),
		)
	}
	return nil
}

func validatePair(userID, targetID, action string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.NewValidationFailed("user_id", "cannot be empty")
	}
	if strings.TrimSpace(targetID) == "" {
		return apperrors.NewValidationFailed("target_id", "cannot be empty")
	}
	if userID == targetID {
		return apperrors.NewValidationFailed("target_id", "cannot "+action+" yourself")
	}
	return nil
}

// transactionError hides store details behind an opaque failure, keeping
// errors that already carry a caller-facing kind.
func transactionError(operation string, err error) error {
	var base *apperrors.BaseError
	if stderrors.As(err, &base) {
		switch base.Type {
		case apperrors.ErrorTypeNotFound, apperrors.ErrorTypeForbidden, apperrors.ErrorTypeValidation:
			return err
		}
	}
	return apperrors.NewTransactionFailed(operation, err)
}
