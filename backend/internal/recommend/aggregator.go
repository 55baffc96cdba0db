package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
	"studyhub/backend/pkg/logger"
)

// GroupRecommendation is one recommended group with live enrichment
type GroupRecommendation struct {
	Group        state.Group `json:"group"`
	Score        float64     `json:"score"`
	Sources      []string    `json:"sources"`
	MemberCount  int         `json:"member_count"`
	HasRequested bool        `json:"has_requested"`
}

// RecommendationPage is one page of group recommendations
type RecommendationPage struct {
	Items []GroupRecommendation `json:"items"`
	state.Pagination
}

// SourceResult is the ranked output of one source
type SourceResult struct {
	Name       string
	Weight     float64
	Candidates []Candidate
}

// Scored is a merged candidate
type Scored struct {
	GroupID string
	Group   *state.Group
	Score   float64
	Sources []string
}

// Merge adds weight - i*0.1 to a candidate for its rank i in each source and
// returns every candidate ordered by total score descending, then group id.
func Merge(results []SourceResult) []Scored {
	byID := make(map[string]*Scored)
	for _, res := range results {
		for i, c := range res.Candidates {
			s, ok := byID[c.GroupID]
			if !ok {
				s = &Scored{GroupID: c.GroupID}
				byID[c.GroupID] = s
			}
			if s.Group == nil {
				s.Group = c.Group
			}
			s.Score += res.Weight - float64(i)*constants.RankDecay
			s.Sources = appendUnique(s.Sources, res.Name)
		}
	}

	merged := make([]Scored, 0, len(byID))
	for _, s := range byID {
		merged = append(merged, *s)
	}
	sortScored(merged)
	return merged
}

func sortScored(items []Scored) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].GroupID < items[j].GroupID
	})
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Aggregator fans a request out to every signal source and merges the results
type Aggregator struct {
	reader      DataReader
	sources     []Source
	fallback    Source
	concurrency int
	logger      *zap.Logger
}

// NewAggregator wires the four standard sources over reader. concurrency
// bounds how many sources run at once; zero or less means no bound.
func NewAggregator(reader DataReader, concurrency int) *Aggregator {
	content := NewContentSimilarity(reader)
	return NewAggregatorWithSources(reader, concurrency, content,
		NewSocialProximity(reader),
		NewCollaborativeFilter(reader),
		NewActivityAffinity(reader),
		content,
	)
}

// NewAggregatorWithSources lets callers choose the sources. fallback serves
// users without memberships.
func NewAggregatorWithSources(reader DataReader, concurrency int, fallback Source, sources ...Source) *Aggregator {
	return &Aggregator{
		reader:      reader,
		sources:     sources,
		fallback:    fallback,
		concurrency: concurrency,
		logger:      logger.Named("recommend"),
	}
}

// Recommend returns one page of group recommendations for userID
func (a *Aggregator) Recommend(ctx context.Context, userID string, page, pageSize int) (*RecommendationPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationFailed("user_id", "cannot be empty")
	}
	start := time.Now()
	page, pageSize = state.ClampPage(page, pageSize, constants.MaxRecommendationPageSize)

	profile, err := a.reader.UserProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	memberships, err := a.reader.Memberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}
	joined := state.JoinedOnly(memberships)

	var merged []Scored
	if len(joined) == 0 {
		merged, err = a.fallbackCandidates(ctx, *profile)
	} else {
		merged, err = a.mergedCandidates(ctx, SourceRequest{
			User:       *profile,
			Joined:     joined,
			MaxResults: constants.SourceCandidateCap,
		})
	}
	if err != nil {
		return nil, err
	}

	from, to := state.Window(len(merged), page, pageSize)
	items, err := a.enrich(ctx, userID, memberships, merged[from:to])
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Group recommendations ranked",
		zap.String("user_id", userID),
		zap.Int("joined_groups", len(joined)),
		zap.Int("candidates", len(merged)),
		zap.Int("page", page),
		zap.Duration("latency", time.Since(start)),
	)

	return &RecommendationPage{
		Items:      items,
		Pagination: state.NewPagination(page, pageSize, len(merged)),
	}, nil
}

// fallbackCandidates keeps the content scores as they are; with a single
// source the rank weighting would only restate its order
func (a *Aggregator) fallbackCandidates(ctx context.Context, profile state.User) ([]Scored, error) {
	candidates, err := a.fallback.Candidates(ctx, SourceRequest{
		User:       profile,
		MaxResults: constants.FallbackCandidateCap,
	})
	if err != nil {
		return nil, fmt.Errorf("source %s failed: %w", a.fallback.Name(), err)
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{GroupID: c.GroupID, Group: c.Group, Score: c.Score, Sources: []string{a.fallback.Name()}}
	}
	sortScored(scored)
	return scored, nil
}

func (a *Aggregator) mergedCandidates(ctx context.Context, req SourceRequest) ([]Scored, error) {
	results := make([]SourceResult, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, src := range a.sources {
		g.Go(func() error {
			started := time.Now()
			candidates, err := src.Candidates(gctx, req)
			if err != nil {
				a.logger.Error("Signal source failed",
					zap.String("source", src.Name()),
					zap.String("user_id", req.User.ID),
					zap.Error(err),
				)
				return fmt.Errorf("source %s failed: %w", src.Name(), err)
			}
			if len(candidates) > req.MaxResults {
				candidates = candidates[:req.MaxResults]
			}
			a.logger.Debug("Signal source finished",
				zap.String("source", src.Name()),
				zap.Int("candidates", len(candidates)),
				zap.Duration("latency", time.Since(started)),
			)
			results[i] = SourceResult{Name: src.Name(), Weight: src.Weight(), Candidates: candidates}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(results), nil
}

func (a *Aggregator) enrich(ctx context.Context, userID string, memberships []state.Membership, page []Scored) ([]GroupRecommendation, error) {
	items := make([]GroupRecommendation, 0, len(page))
	if len(page) == 0 {
		return items, nil
	}

	ids := make([]string, len(page))
	var missing []string
	for i, s := range page {
		ids[i] = s.GroupID
		if s.Group == nil {
			missing = append(missing, s.GroupID)
		}
	}

	var groups map[string]state.Group
	if len(missing) > 0 {
		var err error
		groups, err = a.reader.Groups(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load groups: %w", err)
		}
	}

	counts, err := a.reader.MemberCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	roles := make(map[string]state.Role, len(memberships))
	for _, m := range memberships {
		roles[m.GroupID] = m.Role
	}
	var requestable []string
	for _, id := range ids {
		if role := roles[id]; role == "" || role == state.RoleGuest {
			requestable = append(requestable, id)
		}
	}
	requested := map[string]bool{}
	if len(requestable) > 0 {
		requested, err = a.reader.PendingJoinRequests(ctx, userID, requestable)
		if err != nil {
			return nil, fmt.Errorf("failed to load join requests: %w", err)
		}
	}

	for _, s := range page {
		group := state.Group{ID: s.GroupID}
		if s.Group != nil {
			group = *s.Group
		} else if g, ok := groups[s.GroupID]; ok {
			group = g
		}
		items = append(items, GroupRecommendation{
			Group:        group,
			Score:        s.Score,
			Sources:      s.Sources,
			MemberCount:  counts[s.GroupID],
			HasRequested: requested[s.GroupID],
		})
	}
	return items, nil
}
