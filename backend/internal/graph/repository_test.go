package graph

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/outbox"
	"studyhub/backend/internal/recommend"
	"studyhub/backend/internal/social"
	"studyhub/backend/internal/state"
)

// These tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.
func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver(ctx)
	if err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}
	t.Cleanup(func() { driver.Close(context.Background()) })

	repo := NewRepository(driver, os.Getenv("NEO4J_DATABASE"))
	require.NoError(t, repo.EnsureSchema(ctx))

	prefix := "test-" + time.Now().Format("20060102150405.000000") + "-"
	t.Cleanup(func() {
		_ = repo.DeleteByPrefix(context.Background(), prefix)
	})
	return repo, prefix
}

func createTestDriver(ctx context.Context) (neo4j.DriverWithContext, error) {
	uri := envOr("NEO4J_URI", "bolt://localhost:7687")
	user := envOr("NEO4J_USER", "neo4j")
	password := envOr("NEO4J_PASSWORD", "password")

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	// Verify connection
	verifyCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return driver, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestRepository_FollowLifecycle(t *testing.T) {
	repo, p := newTestRepository(t)
	ctx := context.Background()
	m := social.NewMaintainer(repo)
	alice, bob := p+"alice", p+"bob"

	require.NoError(t, m.Follow(ctx, bob, alice))
	require.NoError(t, m.Follow(ctx, alice, bob))

	status, err := repo.RelationStatus(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, state.RelationStatus{IsFollowing: true, IsFollowedBy: true, IsFriend: true}, *status)

	friends, total, err := repo.ListConnections(ctx, bob, state.ConnectionFriends, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, friends, 1)
	assert.Equal(t, alice, friends[0].ID)

	require.NoError(t, m.Unfollow(ctx, alice, bob))

	status, err = repo.RelationStatus(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, state.RelationStatus{IsFollowedBy: true}, *status)

	exists, err := repo.EdgeExists(ctx, nil, bob, alice)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepository_ConcurrentOppositeFollows(t *testing.T) {
	repo, p := newTestRepository(t)
	ctx := context.Background()
	m := social.NewMaintainer(repo)
	a, b := p+"a", p+"b"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.Follow(ctx, a, b))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, m.Follow(ctx, b, a))
	}()
	wg.Wait()

	status, err := repo.RelationStatus(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, status.IsFriend)
}

func TestRepository_UpsertFriendIsIdempotent(t *testing.T) {
	repo, p := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.UpsertFriend(ctx, nil, p+"a", p+"b")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.UpsertFriend(ctx, nil, p+"a", p+"b")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.UpsertFriend(ctx, nil, p+"b", p+"a")
	assert.Error(t, err)

	removed, err := repo.RemoveFriend(ctx, nil, p+"a", p+"b")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRepository_Outbox(t *testing.T) {
	repo, p := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, social.NewMaintainer(repo).Follow(ctx, p+"alice", p+"bob"))

	pending, err := repo.PendingEvents(ctx, 1000)
	require.NoError(t, err)
	var mine []outbox.Event
	for _, ev := range pending {
		if ev.Type == outbox.EventUserFollowed && strings.Contains(string(ev.Payload), p) {
			mine = append(mine, ev)
		}
	}
	require.Len(t, mine, 1)

	require.NoError(t, repo.MarkDispatched(ctx, []string{mine[0].ID}, time.Now()))
	pending, err = repo.PendingEvents(ctx, 1000)
	require.NoError(t, err)
	for _, ev := range pending {
		assert.NotEqual(t, mine[0].ID, ev.ID)
	}
}

func TestRepository_Recommend(t *testing.T) {
	repo, p := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, state.User{ID: p + "alice", Name: "Alice", Bio: "graph databases"}))
	require.NoError(t, repo.UpsertUser(ctx, state.User{ID: p + "bob", Name: "Bob"}))
	require.NoError(t, repo.UpsertGroup(ctx, state.Group{ID: p + "g1", Name: "Cypher", Description: "graph databases and cypher"}))
	require.NoError(t, repo.UpsertGroup(ctx, state.Group{ID: p + "g2", Name: "Go", Description: "go services"}))
	require.NoError(t, repo.UpsertMembership(ctx, state.Membership{UserID: p + "alice", GroupID: p + "g2", Role: state.RoleMember, Points: 5}))
	require.NoError(t, repo.UpsertMembership(ctx, state.Membership{UserID: p + "bob", GroupID: p + "g2", Role: state.RoleMember}))
	require.NoError(t, repo.UpsertMembership(ctx, state.Membership{UserID: p + "bob", GroupID: p + "g1", Role: state.RoleOwner}))
	require.NoError(t, repo.UpsertJoinRequest(ctx, p+"alice", p+"g1", constants.JoinRequestPending))

	page, err := recommend.NewAggregator(repo, 4).Recommend(ctx, p+"alice", 1, 10)
	require.NoError(t, err)

	var found *recommend.GroupRecommendation
	for i := range page.Items {
		if page.Items[i].Group.ID == p+"g1" {
			found = &page.Items[i]
		}
		assert.NotEqual(t, p+"g2", page.Items[i].Group.ID)
	}
	require.NotNil(t, found)
	assert.Equal(t, 1, found.MemberCount)
	assert.True(t, found.HasRequested)
	assert.Contains(t, found.Sources, constants.SourceCollaborativeFilter)
}
