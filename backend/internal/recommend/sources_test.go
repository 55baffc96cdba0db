package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/memgraph"
	"studyhub/backend/internal/state"
)

// campusFixture: alice joined g-go and is a guest of g-db; bob and carol
// share g-go with her; dave is her friend.
func campusFixture() *memgraph.Store {
	store := memgraph.New()

	for _, g := range []state.Group{
		{ID: "g-go", Name: "Gophers", Description: "Go concurrency study group: goroutines channels and backend services"},
		{ID: "g-db", Name: "Graphs", Description: "Graph databases for backend services and Cypher query tuning"},
		{ID: "g-ml", Name: "ML Club", Description: "Machine learning reading group on neural networks"},
		{ID: "g-rust", Name: "Rustaceans", Description: "Rust systems programming and ownership"},
		{ID: "g-art", Name: "Atelier", Description: "Watercolor painting for beginners"},
	} {
		store.AddGroup(g)
	}

	store.AddUser(state.User{ID: "alice", Name: "Alice", Bio: "Backend engineer who loves goroutines and channels", Location: "Berlin"})
	store.AddUser(state.User{ID: "newbie", Name: "Newbie", Bio: "Interested in graph databases"})
	for _, id := range []string{"bob", "carol", "dave"} {
		store.AddUser(state.User{ID: id, Name: id})
	}

	for _, m := range []state.Membership{
		{UserID: "alice", GroupID: "g-go", Role: state.RoleMember, Points: 50},
		{UserID: "alice", GroupID: "g-db", Role: state.RoleGuest},
		{UserID: "bob", GroupID: "g-go", Role: state.RoleMember},
		{UserID: "bob", GroupID: "g-rust", Role: state.RoleMember},
		{UserID: "carol", GroupID: "g-go", Role: state.RoleAdmin},
		{UserID: "carol", GroupID: "g-rust", Role: state.RoleMember},
		{UserID: "carol", GroupID: "g-ml", Role: state.RoleMember},
		{UserID: "dave", GroupID: "g-ml", Role: state.RoleOwner},
		{UserID: "dave", GroupID: "g-art", Role: state.RoleMember},
		{UserID: "newbie", GroupID: "g-db", Role: state.RoleGuest},
	} {
		store.AddMembership(m)
	}

	store.AddFriendship("alice", "dave")
	store.AddFriendship("newbie", "dave")
	store.AddJoinRequest("alice", "g-db", constants.JoinRequestPending)
	store.AddJoinRequest("alice", "g-rust", "rejected")
	store.AddJoinRequest("newbie", "g-db", constants.JoinRequestPending)
	return store
}

func aliceRequest(t *testing.T, store *memgraph.Store) SourceRequest {
	t.Helper()
	ctx := context.Background()
	profile, err := store.UserProfile(ctx, "alice")
	require.NoError(t, err)
	memberships, err := store.Memberships(ctx, "alice")
	require.NoError(t, err)
	return SourceRequest{User: *profile, Joined: state.JoinedOnly(memberships), MaxResults: constants.SourceCandidateCap}
}

func candidateIDs(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.GroupID
	}
	return out
}

func TestCollaborativeFilter(t *testing.T) {
	store := campusFixture()
	got, err := NewCollaborativeFilter(store).Candidates(context.Background(), aliceRequest(t, store))
	require.NoError(t, err)

	// bob and carol both joined g-rust, only carol joined g-ml
	assert.Equal(t, []string{"g-rust", "g-ml"}, candidateIDs(got))
	assert.Equal(t, 2.0, got[0].Score)
	require.NotNil(t, got[0].Group)
	assert.Equal(t, "Rustaceans", got[0].Group.Name)
}

func TestSocialProximity(t *testing.T) {
	store := campusFixture()
	got, err := NewSocialProximity(store).Candidates(context.Background(), aliceRequest(t, store))
	require.NoError(t, err)

	// one friend in each, so id order decides
	assert.Equal(t, []string{"g-art", "g-ml"}, candidateIDs(got))
}

func TestActivityAffinity(t *testing.T) {
	store := campusFixture()
	got, err := NewActivityAffinity(store).Candidates(context.Background(), aliceRequest(t, store))
	require.NoError(t, err)

	assert.Equal(t, []string{"g-db", "g-ml"}, candidateIDs(got))
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestActivityAffinity_UsesTopPointGroups(t *testing.T) {
	store := memgraph.New()
	store.AddUser(state.User{ID: "u"})
	store.AddGroup(state.Group{ID: "low", Description: "knitting circle"})
	store.AddGroup(state.Group{ID: "t1", Description: "calculus"})
	store.AddGroup(state.Group{ID: "t2", Description: "algebra"})
	store.AddGroup(state.Group{ID: "t3", Description: "topology"})
	store.AddGroup(state.Group{ID: "c-knit", Description: "advanced knitting"})
	store.AddGroup(state.Group{ID: "c-math", Description: "calculus and topology problems"})
	for _, m := range []state.Membership{
		{UserID: "u", GroupID: "low", Role: state.RoleMember, Points: 1},
		{UserID: "u", GroupID: "t1", Role: state.RoleMember, Points: 30},
		{UserID: "u", GroupID: "t2", Role: state.RoleMember, Points: 20},
		{UserID: "u", GroupID: "t3", Role: state.RoleMember, Points: 10},
	} {
		store.AddMembership(m)
	}
	memberships, err := store.Memberships(context.Background(), "u")
	require.NoError(t, err)

	got, err := NewActivityAffinity(store).Candidates(context.Background(), SourceRequest{
		User: state.User{ID: "u"}, Joined: memberships, MaxResults: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-math"}, candidateIDs(got))
}

func TestContentSimilarity(t *testing.T) {
	store := campusFixture()
	got, err := NewContentSimilarity(store).Candidates(context.Background(), aliceRequest(t, store))
	require.NoError(t, err)

	assert.Equal(t, []string{"g-db", "g-ml"}, candidateIDs(got))
	for _, c := range got {
		assert.NotEqual(t, "g-go", c.GroupID, "joined groups are never candidates")
	}
}

func TestSources_EmptyWithoutMemberships(t *testing.T) {
	store := campusFixture()
	req := SourceRequest{User: state.User{ID: "newbie"}, MaxResults: 20}

	for _, src := range []Source{NewCollaborativeFilter(store), NewSocialProximity(store), NewActivityAffinity(store)} {
		got, err := src.Candidates(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, got, src.Name())
	}
}

func TestRecommend_EndToEnd(t *testing.T) {
	agg := NewAggregator(campusFixture(), 4)

	page, err := agg.Recommend(context.Background(), "alice", 1, 10)
	require.NoError(t, err)

	// g-ml 3.9+2.9+1.9+0.9, g-art 4.0, g-db and g-rust tie at 3.0
	assert.Equal(t, []string{"g-ml", "g-art", "g-db", "g-rust"}, itemIDs(page.Items))
	assert.InDelta(t, 9.6, page.Items[0].Score, 1e-9)
	assert.Equal(t, []string{
		constants.SourceSocialProximity,
		constants.SourceCollaborativeFilter,
		constants.SourceActivityAffinity,
		constants.SourceContentSimilarity,
	}, page.Items[0].Sources)

	byID := make(map[string]GroupRecommendation)
	for _, it := range page.Items {
		byID[it.Group.ID] = it
	}
	assert.Equal(t, 2, byID["g-ml"].MemberCount)
	assert.Equal(t, 0, byID["g-db"].MemberCount, "guests are not counted")
	assert.True(t, byID["g-db"].HasRequested)
	assert.False(t, byID["g-rust"].HasRequested, "only pending requests count")
	assert.False(t, byID["g-art"].HasRequested)
	assert.Equal(t, "ML Club", byID["g-ml"].Group.Name)
}

func TestRecommend_NoMembershipFallback(t *testing.T) {
	agg := NewAggregator(campusFixture(), 4)

	// newbie is only a guest, and dave's groups would show up through
	// social proximity if it ran
	page, err := agg.Recommend(context.Background(), "newbie", 1, 10)
	require.NoError(t, err)

	require.Equal(t, []string{"g-db"}, itemIDs(page.Items))
	item := page.Items[0]
	assert.Equal(t, []string{constants.SourceContentSimilarity}, item.Sources)
	assert.Greater(t, item.Score, 0.0)
	assert.Less(t, item.Score, 1.0+1e-9)
	assert.True(t, item.HasRequested)
	assert.Equal(t, 1, page.TotalItems)
}
