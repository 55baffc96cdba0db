package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

type mockStore struct {
	mu         sync.Mutex
	events     []Event
	dispatched map[string]time.Time
	loadErr    error
}

func (m *mockStore) PendingEvents(ctx context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var pending []Event
	for _, ev := range m.events {
		if _, done := m.dispatched[ev.ID]; done {
			continue
		}
		pending = append(pending, ev)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (m *mockStore) MarkDispatched(ctx context.Context, ids []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dispatched == nil {
		m.dispatched = make(map[string]time.Time)
	}
	for _, id := range ids {
		m.dispatched[id] = at
	}
	return nil
}

type published struct {
	subject string
	msgID   string
	data    []byte
}

type mockPublisher struct {
	mu      sync.Mutex
	sent    []published
	failOn  string
	failErr error
}

func (m *mockPublisher) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msgID == m.failOn {
		return m.failErr
	}
	m.sent = append(m.sent, published{subject: subject, msgID: msgID, data: data})
	return nil
}

func mustEvents(t *testing.T, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev, err := NewUserFollowed("alice", "bob", i%2 == 0)
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func TestNewUserFollowed_Payload(t *testing.T) {
	ev, err := NewUserFollowed("alice", "bob", true)
	require.NoError(t, err)

	assert.Equal(t, EventUserFollowed, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())

	var payload UserFollowed
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, UserFollowed{FollowerID: "alice", FollowedID: "bob", BecameFriends: true}, payload)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "social.user.unfollowed", Subject("social", EventUserUnfollowed))
	assert.Equal(t, "user.followed", Subject("", EventUserFollowed))
}

func TestRelay_RunOnce_DeliversAndMarks(t *testing.T) {
	store := &mockStore{events: mustEvents(t, 3)}
	pub := &mockPublisher{}
	relay := NewRelay(store, pub, RelayConfig{SubjectPrefix: "social", BatchSize: 10})

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.sent, 3)
	assert.Equal(t, "social.user.followed", pub.sent[0].subject)
	assert.Equal(t, store.events[0].ID, pub.sent[0].msgID)
	assert.Len(t, store.dispatched, 3)

	// nothing left on the second pass
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_RunOnce_StopsAtFirstFailure(t *testing.T) {
	events := mustEvents(t, 3)
	store := &mockStore{events: events}
	pub := &mockPublisher{failOn: events[1].ID, failErr: errors.New("broker down")}
	relay := NewRelay(store, pub, RelayConfig{BatchSize: 10})

	n, err := relay.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, store.dispatched, events[0].ID)
	assert.NotContains(t, store.dispatched, events[1].ID)
	assert.NotContains(t, store.dispatched, events[2].ID)

	// once the broker recovers the remaining events go out in order
	pub.failOn = ""
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, events[1].ID, pub.sent[1].msgID)
	assert.Equal(t, events[2].ID, pub.sent[2].msgID)
}

func TestRelay_RunOnce_LoadError(t *testing.T) {
	store := &mockStore{loadErr: errors.New("graph unavailable")}
	relay := NewRelay(store, &mockPublisher{}, RelayConfig{})

	_, err := relay.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRelay_Run_DrainsUntilCancelled(t *testing.T) {
	store := &mockStore{events: mustEvents(t, 5)}
	pub := &mockPublisher{}
	relay := NewRelay(store, pub, RelayConfig{BatchSize: 2, PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.sent) == 5
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
