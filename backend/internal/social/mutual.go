package social

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
	"studyhub/backend/pkg/logger"
)

// UserSuggestion is a user the requester is not yet connected to
type UserSuggestion struct {
	User              state.User `json:"user"`
	MutualFriends     int        `json:"mutual_friends"`
	MutualFollows     int        `json:"mutual_follows"`
	MutualConnections int        `json:"mutual_connections"`
}

// UserSuggestionPage is one page of user suggestions
type UserSuggestionPage struct {
	Items      []UserSuggestion `json:"items"`
	Pagination state.Pagination `json:"pagination"`
}

// MutualRanker suggests users by how many connections they share with the
// requester.
type MutualRanker struct {
	reader    ConnectionReader
	batchSize int
	logger    *zap.Logger
}

// NewMutualRanker creates a ranker over reader
func NewMutualRanker(reader ConnectionReader) *MutualRanker {
	return &MutualRanker{
		reader:    reader,
		batchSize: constants.NeighborhoodBatchSize,
		logger:    logger.Named("social"),
	}
}

// RecommendUsers ranks every user outside the requester's existing
// connections (self, friends, followees) by
//
//	mutual friends: friends of mine who are friends of the candidate
//	mutual follows: users I follow or am followed by who follow or are
//	                followed by the candidate
//
// keeps candidates with a positive total and pages them.
func (r *MutualRanker) RecommendUsers(ctx context.Context, userID string, page, pageSize int) (*UserSuggestionPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationFailed("user_id", "cannot be empty")
	}
	start := time.Now()
	page, pageSize = state.ClampPage(page, pageSize, constants.MaxRecommendationPageSize)

	mine, err := r.reader.Neighborhoods(ctx, []string{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	me := mine[userID]

	existing := toSet(me.Friends, me.Followees)
	existing[userID] = struct{}{}

	followNeighbors := toSet(me.Followers, me.Followees)
	hop := toSet(me.Friends)
	for id := range followNeighbors {
		hop[id] = struct{}{}
	}

	neighborhoods, err := r.loadNeighborhoods(ctx, sortedKeys(hop))
	if err != nil {
		return nil, fmt.Errorf("failed to load second-degree connections: %w", err)
	}

	counts := make(map[string]*UserSuggestion)
	bump := func(candidateID string) *UserSuggestion {
		s, ok := counts[candidateID]
		if !ok {
			s = &UserSuggestion{User: state.User{ID: candidateID}}
			counts[candidateID] = s
		}
		return s
	}

	// f is my friend and friend of c exactly when c is a friend of f
	for _, friendID := range me.Friends {
		for _, c := range neighborhoods[friendID].Friends {
			if _, skip := existing[c]; skip {
				continue
			}
			bump(c).MutualFriends++
		}
	}
	// likewise x is in c's follow neighborhood exactly when c is in x's
	for x := range followNeighbors {
		nb := neighborhoods[x]
		for c := range toSet(nb.Followers, nb.Followees) {
			if _, skip := existing[c]; skip {
				continue
			}
			bump(c).MutualFollows++
		}
	}

	ranked := make([]UserSuggestion, 0, len(counts))
	for _, s := range counts {
		s.MutualConnections = s.MutualFriends + s.MutualFollows
		if s.MutualConnections > 0 {
			ranked = append(ranked, *s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MutualConnections != ranked[j].MutualConnections {
			return ranked[i].MutualConnections > ranked[j].MutualConnections
		}
		return ranked[i].User.ID < ranked[j].User.ID
	})

	from, to := state.Window(len(ranked), page, pageSize)
	items := ranked[from:to]

	if len(items) > 0 {
		ids := make([]string, len(items))
		for i, s := range items {
			ids[i] = s.User.ID
		}
		profiles, err := r.reader.UsersByID(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load suggested profiles: %w", err)
		}
		for i := range items {
			if u, ok := profiles[items[i].User.ID]; ok {
				items[i].User = u
			}
		}
	}

	r.logger.Debug("User suggestions ranked",
		zap.String("user_id", userID),
		zap.Int("candidates", len(ranked)),
		zap.Int("page", page),
		zap.Duration("latency", time.Since(start)),
	)

	return &UserSuggestionPage{
		Items:      items,
		Pagination: state.NewPagination(page, pageSize, len(ranked)),
	}, nil
}

// loadNeighborhoods fetches ids in batches, a few batches at a time
func (r *MutualRanker) loadNeighborhoods(ctx context.Context, ids []string) (map[string]state.Neighborhood, error) {
	out := make(map[string]state.Neighborhood, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.NeighborhoodConcurrency)

	for start := 0; start < len(ids); start += r.batchSize {
		end := start + r.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		g.Go(func() error {
			nbs, err := r.reader.Neighborhoods(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for id, nb := range nbs {
				out[id] = nb
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func toSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, id := range list {
			set[id] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
