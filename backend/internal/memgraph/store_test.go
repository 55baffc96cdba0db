package memgraph_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/backend/internal/memgraph"
	"studyhub/backend/internal/social"
)

func follow(t *testing.T, m *social.Maintainer, from string, to ...string) {
	t.Helper()
	for _, id := range to {
		require.NoError(t, m.Follow(context.Background(), from, id))
	}
}

func TestStore_EventLimitDropsOldest(t *testing.T) {
	store := memgraph.New()
	store.SetEventLimit(3)
	m := social.NewMaintainer(store)

	follow(t, m, "alice", "u1", "u2", "u3", "u4", "u5")

	events := store.Events()
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Contains(t, string(ev.Payload), fmt.Sprintf(`"followed_id":"u%d"`, i+3))
	}
}

func TestStore_EventLimitDropsDispatchedFirst(t *testing.T) {
	store := memgraph.New()
	store.SetEventLimit(3)
	m := social.NewMaintainer(store)
	ctx := context.Background()

	follow(t, m, "alice", "u1", "u2", "u3")
	before := store.Events()
	require.NoError(t, store.MarkDispatched(ctx, []string{before[1].ID}, time.Now()))

	follow(t, m, "alice", "u4")

	after := store.Events()
	require.Len(t, after, 3)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[2].ID, after[1].ID)
	for _, ev := range after {
		assert.Nil(t, ev.DispatchedAt)
	}

	pending, err := store.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestStore_NoLimitKeepsEverything(t *testing.T) {
	store := memgraph.New()
	store.SetEventLimit(0)
	m := social.NewMaintainer(store)

	follow(t, m, "alice", "u1", "u2", "u3", "u4")

	assert.Len(t, store.Events(), 4)
}
