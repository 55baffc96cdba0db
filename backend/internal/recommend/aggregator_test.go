package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/memgraph"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

// Mock implementations for testing

type stubSource struct {
	name       string
	weight     float64
	candidates []Candidate
	err        error
	lastReq    SourceRequest
}

func (s *stubSource) Name() string    { return s.name }
func (s *stubSource) Weight() float64 { return s.weight }

func (s *stubSource) Candidates(ctx context.Context, req SourceRequest) ([]Candidate, error) {
	s.lastReq = req
	return s.candidates, s.err
}

func ids(groupIDs ...string) []Candidate {
	out := make([]Candidate, len(groupIDs))
	for i, id := range groupIDs {
		out[i] = Candidate{GroupID: id, Score: 1}
	}
	return out
}

func itemIDs(items []GroupRecommendation) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Group.ID
	}
	return out
}

func TestMerge_Arithmetic(t *testing.T) {
	merged := Merge([]SourceResult{
		{Name: constants.SourceSocialProximity, Weight: 4.0, Candidates: ids("g1", "g2", "g3")},
		{Name: constants.SourceContentSimilarity, Weight: 1.0, Candidates: ids("g2")},
	})

	require.Len(t, merged, 3)
	assert.Equal(t, "g2", merged[0].GroupID)
	assert.InDelta(t, 4.9, merged[0].Score, 1e-9)
	assert.Equal(t, []string{constants.SourceSocialProximity, constants.SourceContentSimilarity}, merged[0].Sources)
	assert.Equal(t, "g1", merged[1].GroupID)
	assert.InDelta(t, 4.0, merged[1].Score, 1e-9)
	assert.Equal(t, "g3", merged[2].GroupID)
	assert.InDelta(t, 3.8, merged[2].Score, 1e-9)
}

func TestMerge_TieBreaksByGroupID(t *testing.T) {
	merged := Merge([]SourceResult{
		{Name: "a", Weight: 2.0, Candidates: ids("zeta")},
		{Name: "b", Weight: 2.0, Candidates: ids("alpha")},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "alpha", merged[0].GroupID)
	assert.Equal(t, "zeta", merged[1].GroupID)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil))
	assert.Empty(t, Merge([]SourceResult{{Name: "a", Weight: 4}}))
}

func TestAggregator_MergesSources(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "alice"})
	store.AddMembership(state.Membership{UserID: "alice", GroupID: "g0", Role: state.RoleMember})

	social := &stubSource{name: constants.SourceSocialProximity, weight: 4.0, candidates: ids("g1", "g2", "g3")}
	content := &stubSource{name: constants.SourceContentSimilarity, weight: 1.0, candidates: ids("g2")}
	agg := NewAggregatorWithSources(store, 2, content, social, content)

	page, err := agg.Recommend(context.Background(), "alice", 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"g2", "g1", "g3"}, itemIDs(page.Items))
	assert.InDelta(t, 4.9, page.Items[0].Score, 1e-9)
	assert.Equal(t, 3, page.TotalItems)
	assert.False(t, page.HasMore)
	assert.Equal(t, constants.SourceCandidateCap, social.lastReq.MaxResults)
	assert.Len(t, social.lastReq.Joined, 1)
}

func TestAggregator_CapsEachSource(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "alice"})
	store.AddMembership(state.Membership{UserID: "alice", GroupID: "g0", Role: state.RoleOwner})

	many := make([]string, 30)
	for i := range many {
		many[i] = fmt.Sprintf("g%02d", i+1)
	}
	noisy := &stubSource{name: "noisy", weight: 4.0, candidates: ids(many...)}
	agg := NewAggregatorWithSources(store, 0, noisy, noisy)

	page, err := agg.Recommend(context.Background(), "alice", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, constants.SourceCandidateCap, page.TotalItems)
}

func TestAggregator_FallbackPagination(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "newbie"})

	candidates := make([]Candidate, 25)
	for i := range candidates {
		candidates[i] = Candidate{GroupID: fmt.Sprintf("g%02d", i+1), Score: float64(100 - i)}
	}
	content := &stubSource{name: constants.SourceContentSimilarity, weight: 1.0, candidates: candidates}
	unused := &stubSource{name: constants.SourceSocialProximity, weight: 4.0, err: errors.New("must not run")}
	agg := NewAggregatorWithSources(store, 4, content, unused, content)

	page, err := agg.Recommend(context.Background(), "newbie", 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "g11", page.Items[0].Group.ID)
	assert.Equal(t, "g20", page.Items[9].Group.ID)
	assert.Equal(t, 25, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasMore)
	assert.Equal(t, constants.FallbackCandidateCap, content.lastReq.MaxResults)

	page, err = agg.Recommend(context.Background(), "newbie", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"g21", "g22", "g23", "g24", "g25"}, itemIDs(page.Items))
	assert.False(t, page.HasMore)

	page, err = agg.Recommend(context.Background(), "newbie", 9, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestAggregator_ClampsPageSize(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "newbie"})
	content := &stubSource{name: constants.SourceContentSimilarity, weight: 1.0}
	agg := NewAggregatorWithSources(store, 4, content, content)

	page, err := agg.Recommend(context.Background(), "newbie", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, constants.MaxRecommendationPageSize, page.PageSize)
}

func TestAggregator_UnknownUser(t *testing.T) {
	agg := NewAggregator(memgraph.New(), 4)

	_, err := agg.Recommend(context.Background(), "ghost", 1, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAggregator_SourceFailure(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "alice"})
	store.AddMembership(state.Membership{UserID: "alice", GroupID: "g0", Role: state.RoleMember})

	ok := &stubSource{name: "ok", weight: 1, candidates: ids("g1")}
	broken := &stubSource{name: "broken", weight: 4, err: errors.New("read timed out")}
	agg := NewAggregatorWithSources(store, 4, ok, ok, broken)

	_, err := agg.Recommend(context.Background(), "alice", 1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source broken failed")
}

func TestAggregator_HugePageIsEmpty(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "newbie"})

	candidates := make([]Candidate, 25)
	for i := range candidates {
		candidates[i] = Candidate{GroupID: fmt.Sprintf("g%02d", i+1), Score: float64(100 - i)}
	}
	content := &stubSource{name: constants.SourceContentSimilarity, weight: 1.0, candidates: candidates}
	agg := NewAggregatorWithSources(store, 4, content, content)

	for _, p := range []int{math.MaxInt, math.MaxInt/50 + 2} {
		page, err := agg.Recommend(context.Background(), "newbie", p, 50)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 25, page.TotalItems)
		assert.False(t, page.HasMore)
	}
}
