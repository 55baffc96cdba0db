package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/state"
	"studyhub/backend/internal/textscore"
)

// ContentSimilarity matches group descriptions against the requester's
// profile plus the descriptions of groups they already joined.
type ContentSimilarity struct {
	reader DataReader
	scorer *textscore.Scorer
}

// NewContentSimilarity creates the content source over reader
func NewContentSimilarity(reader DataReader) *ContentSimilarity {
	return &ContentSimilarity{reader: reader, scorer: textscore.NewScorer()}
}

// Name identifies the source in recommendation output
func (s *ContentSimilarity) Name() string { return constants.SourceContentSimilarity }

// Weight is the rank-one contribution to a merged score
func (s *ContentSimilarity) Weight() float64 { return constants.WeightContentSimilarity }

// Candidates ranks unjoined groups by TF-IDF similarity to the profile and joined group descriptions
func (s *ContentSimilarity) Candidates(ctx context.Context, req SourceRequest) ([]Candidate, error) {
	joinedIDs := req.JoinedGroupIDs()

	parts := []string{req.User.ProfileText()}
	if len(joinedIDs) > 0 {
		joined, err := s.reader.Groups(ctx, joinedIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load joined groups: %w", err)
		}
		for _, id := range joinedIDs {
			if g, ok := joined[id]; ok {
				parts = append(parts, g.Description)
			}
		}
	}

	return rankByDescription(ctx, s.reader, s.scorer, strings.Join(parts, " "), joinedIDs, req.MaxResults)
}

// ActivityAffinity matches group descriptions against the groups the
// requester earned the most points in.
type ActivityAffinity struct {
	reader DataReader
	scorer *textscore.Scorer
}

// NewActivityAffinity creates the activity source over reader
func NewActivityAffinity(reader DataReader) *ActivityAffinity {
	return &ActivityAffinity{reader: reader, scorer: textscore.NewScorer()}
}

// Name identifies the source in recommendation output
func (s *ActivityAffinity) Name() string { return constants.SourceActivityAffinity }

// Weight is the rank-one contribution to a merged score
func (s *ActivityAffinity) Weight() float64 { return constants.WeightActivityAffinity }

// Candidates ranks unjoined groups against the descriptions of the top-points memberships
func (s *ActivityAffinity) Candidates(ctx context.Context, req SourceRequest) ([]Candidate, error) {
	if len(req.Joined) == 0 {
		return nil, nil
	}

	top := make([]state.Membership, len(req.Joined))
	copy(top, req.Joined)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Points != top[j].Points {
			return top[i].Points > top[j].Points
		}
		return top[i].GroupID < top[j].GroupID
	})
	if len(top) > constants.ActivityTopGroups {
		top = top[:constants.ActivityTopGroups]
	}

	topIDs := make([]string, len(top))
	for i, m := range top {
		topIDs[i] = m.GroupID
	}
	groups, err := s.reader.Groups(ctx, topIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load most active groups: %w", err)
	}
	parts := make([]string, 0, len(topIDs))
	for _, id := range topIDs {
		if g, ok := groups[id]; ok {
			parts = append(parts, g.Description)
		}
	}

	return rankByDescription(ctx, s.reader, s.scorer, strings.Join(parts, " "), req.JoinedGroupIDs(), req.MaxResults)
}

func rankByDescription(ctx context.Context, reader DataReader, scorer *textscore.Scorer, query string, joinedIDs []string, limit int) ([]Candidate, error) {
	eligible, err := reader.GroupsExcluding(ctx, joinedIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible groups: %w", err)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	byID := make(map[string]state.Group, len(eligible))
	corpus := make([]textscore.Document, len(eligible))
	for i, g := range eligible {
		byID[g.ID] = g
		corpus[i] = textscore.Document{ID: g.ID, Text: g.Description}
	}

	results := scorer.Rank(query, corpus, limit)
	candidates := make([]Candidate, len(results))
	for i, r := range results {
		g := byID[r.ID]
		candidates[i] = Candidate{GroupID: r.ID, Group: &g, Score: r.Score}
	}
	return candidates, nil
}

// CollaborativeFilter recommends groups joined by the users who share the
// most groups with the requester.
type CollaborativeFilter struct {
	reader DataReader
}

// NewCollaborativeFilter creates the co-membership source over reader
func NewCollaborativeFilter(reader DataReader) *CollaborativeFilter {
	return &CollaborativeFilter{reader: reader}
}

// Name identifies the source in recommendation output
func (s *CollaborativeFilter) Name() string { return constants.SourceCollaborativeFilter }

// Weight is the rank-one contribution to a merged score
func (s *CollaborativeFilter) Weight() float64 { return constants.WeightCollaborativeFilter }

// Candidates ranks groups joined by the users who share the most groups with the requester
func (s *CollaborativeFilter) Candidates(ctx context.Context, req SourceRequest) ([]Candidate, error) {
	if len(req.Joined) == 0 {
		return nil, nil
	}
	joinedIDs := req.JoinedGroupIDs()

	coMembers, err := s.reader.GroupMemberships(ctx, joinedIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load co-members: %w", err)
	}
	shared := make(map[string]float64)
	for _, m := range coMembers {
		if m.UserID == req.User.ID || !m.Joined() {
			continue
		}
		shared[m.UserID]++
	}
	similar := topKeys(shared, constants.SimilarUserLimit)
	if len(similar) == 0 {
		return nil, nil
	}

	memberships, err := s.reader.MembershipsOfUsers(ctx, similar)
	if err != nil {
		return nil, fmt.Errorf("failed to load similar users' groups: %w", err)
	}
	return countGroups(ctx, s.reader, memberships, joinedIDs, req.MaxResults)
}

// SocialProximity recommends groups the requester's friends joined
type SocialProximity struct {
	reader DataReader
}

// NewSocialProximity creates the friends source over reader
func NewSocialProximity(reader DataReader) *SocialProximity {
	return &SocialProximity{reader: reader}
}

// Name identifies the source in recommendation output
func (s *SocialProximity) Name() string { return constants.SourceSocialProximity }

// Weight is the rank-one contribution to a merged score
func (s *SocialProximity) Weight() float64 { return constants.WeightSocialProximity }

// Candidates ranks groups by how many of the requester's friends joined them
func (s *SocialProximity) Candidates(ctx context.Context, req SourceRequest) ([]Candidate, error) {
	if len(req.Joined) == 0 {
		return nil, nil
	}

	friends, err := s.reader.FriendIDs(ctx, req.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	if len(friends) == 0 {
		return nil, nil
	}

	memberships, err := s.reader.MembershipsOfUsers(ctx, friends)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends' groups: %w", err)
	}
	return countGroups(ctx, s.reader, memberships, req.JoinedGroupIDs(), req.MaxResults)
}

// countGroups ranks groups by how many distinct users in memberships joined
// them, skipping the requester's own groups
func countGroups(ctx context.Context, reader DataReader, memberships []state.Membership, joinedIDs []string, limit int) ([]Candidate, error) {
	mine := make(map[string]struct{}, len(joinedIDs))
	for _, id := range joinedIDs {
		mine[id] = struct{}{}
	}

	seen := make(map[[2]string]struct{})
	counts := make(map[string]float64)
	for _, m := range memberships {
		if !m.Joined() {
			continue
		}
		if _, skip := mine[m.GroupID]; skip {
			continue
		}
		key := [2]string{m.UserID, m.GroupID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		counts[m.GroupID]++
	}

	ranked := topKeys(counts, limit)
	if len(ranked) == 0 {
		return nil, nil
	}
	groups, err := reader.Groups(ctx, ranked)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate groups: %w", err)
	}

	candidates := make([]Candidate, 0, len(ranked))
	for _, id := range ranked {
		c := Candidate{GroupID: id, Score: counts[id]}
		if g, ok := groups[id]; ok {
			c.Group = &g
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// topKeys orders keys by value descending then key ascending and keeps at
// most limit of them; limit <= 0 keeps all
func topKeys(values map[string]float64, limit int) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if values[keys[i]] != values[keys[j]] {
			return values[keys[i]] > values[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
