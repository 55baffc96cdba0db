// Package memgraph is a single-process graph store used for tests and for
// running the server without Neo4j. All writes go through InTx, which holds
// the store lock for the whole transaction and undoes every change on abort.
package memgraph

import (
	"context"
	"sort"
	"sync"
	"time"

	"studyhub/backend/internal/constants"
	"studyhub/backend/internal/outbox"
	"studyhub/backend/internal/social"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

type pairKey struct {
	first  string
	second string
}

// Store keeps users, groups, memberships, follow edges, friend records and
// outbox events in memory.
type Store struct {
	mu sync.RWMutex

	users        map[string]state.User
	groups       map[string]state.Group
	memberships  map[pairKey]state.Membership // user, group
	joinRequests map[pairKey]string           // user, group -> status
	edges        map[pairKey]time.Time        // follower, followed
	friends      map[pairKey]time.Time        // canonical pair
	events       []outbox.Event
	eventLimit   int

	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:        make(map[string]state.User),
		groups:       make(map[string]state.Group),
		memberships:  make(map[pairKey]state.Membership),
		joinRequests: make(map[pairKey]string),
		edges:        make(map[pairKey]time.Time),
		friends:      make(map[pairKey]time.Time),
		eventLimit:   constants.MemoryOutboxLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetEventLimit bounds how many outbox events the store retains. Nothing
// drains the outbox when the server runs on this store, so past the limit
// dispatched events go first and then the oldest pending ones.
func (s *Store) SetEventLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventLimit = n
	s.trimEvents()
}

// Seeding

// AddUser inserts or replaces a user profile
func (s *Store) AddUser(u state.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddGroup inserts or replaces a study group
func (s *Store) AddGroup(g state.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
}

// AddMembership inserts or replaces a membership
func (s *Store) AddMembership(m state.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[pairKey{m.UserID, m.GroupID}] = m
}

// AddJoinRequest records a join request with the given status
func (s *Store) AddJoinRequest(userID, groupID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinRequests[pairKey{userID, groupID}] = status
}

// AddFriendship writes both follow edges and the friend record directly,
// without events
func (s *Store) AddFriendship(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.edges[pairKey{a, b}] = now
	s.edges[pairKey{b, a}] = now
	first, second := state.CanonicalPair(a, b)
	s.friends[pairKey{first, second}] = now
}

// Inspection

// HasEdge reports whether follower -> followed exists
func (s *Store) HasEdge(followerID, followedID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[pairKey{followerID, followedID}]
	return ok
}

// Friendships returns every stored friend record ordered by pair
func (s *Store) Friendships() []state.FriendRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]state.FriendRecord, 0, len(s.friends))
	for k, at := range s.friends {
		records = append(records, state.FriendRecord{UserID1: k.first, UserID2: k.second, CreatedAt: at})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].UserID1 != records[j].UserID1 {
			return records[i].UserID1 < records[j].UserID1
		}
		return records[i].UserID2 < records[j].UserID2
	})
	return records
}

// Events returns a copy of every outbox event in append order
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outbox.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Transactions

// InTx runs fn with exclusive access to the store. If fn fails, every write
// it made is undone before the error is returned.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx social.GraphTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s}
	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	s.trimEvents()
	return nil
}

// trimEvents enforces eventLimit; callers hold s.mu
func (s *Store) trimEvents() {
	if s.eventLimit < 1 || len(s.events) <= s.eventLimit {
		return
	}
	kept := make([]outbox.Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.DispatchedAt == nil {
			kept = append(kept, ev)
		}
	}
	if over := len(kept) - s.eventLimit; over > 0 {
		kept = kept[over:]
	}
	s.events = kept
}

type tx struct {
	store *Store
	undo  []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) AddEdge(ctx context.Context, followerID, followedID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := pairKey{followerID, followedID}
	if _, ok := t.store.edges[k]; ok {
		return false, nil
	}
	t.store.edges[k] = t.store.now()
	t.undo = append(t.undo, func() { delete(t.store.edges, k) })
	return true, nil
}

func (t *tx) RemoveEdge(ctx context.Context, followerID, followedID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := pairKey{followerID, followedID}
	at, ok := t.store.edges[k]
	if !ok {
		return false, nil
	}
	delete(t.store.edges, k)
	t.undo = append(t.undo, func() { t.store.edges[k] = at })
	return true, nil
}

func (t *tx) EdgeExists(ctx context.Context, followerID, followedID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := t.store.edges[pairKey{followerID, followedID}]
	return ok, nil
}

func (t *tx) UpsertFriend(ctx context.Context, userID1, userID2 string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if userID1 >= userID2 {
		return false, apperrors.NewValidationFailed("user_id1", "must sort before user_id2")
	}
	k := pairKey{userID1, userID2}
	if _, ok := t.store.friends[k]; ok {
		return false, nil
	}
	t.store.friends[k] = t.store.now()
	t.undo = append(t.undo, func() { delete(t.store.friends, k) })
	return true, nil
}

func (t *tx) RemoveFriend(ctx context.Context, userID1, userID2 string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := pairKey{userID1, userID2}
	at, ok := t.store.friends[k]
	if !ok {
		return false, nil
	}
	delete(t.store.friends, k)
	t.undo = append(t.undo, func() { t.store.friends[k] = at })
	return true, nil
}

func (t *tx) AppendEvent(ctx context.Context, event outbox.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := len(t.store.events)
	t.store.events = append(t.store.events, event)
	t.undo = append(t.undo, func() { t.store.events = t.store.events[:n] })
	return nil
}

// Connection reads

// ListConnections pages through one projection of userID's graph ordered by id
func (s *Store) ListConnections(ctx context.Context, userID string, kind state.ConnectionKind, skip, limit int) ([]state.User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	nb := s.neighborhood(userID)
	var ids []string
	switch kind {
	case state.ConnectionFriends:
		ids = nb.Friends
	case state.ConnectionFollowers:
		ids = nb.Followers
	case state.ConnectionFollowings:
		ids = nb.Followees
	default:
		return nil, 0, apperrors.NewValidationFailed("kind", "unknown connection kind "+string(kind))
	}

	total := len(ids)
	start, end := skip, total
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	if limit >= 0 && limit < total-start {
		end = start + limit
	}
	users := make([]state.User, 0, end-start)
	for _, id := range ids[start:end] {
		users = append(users, s.profile(id))
	}
	return users, total, nil
}

// RelationStatus reports the edges between actorID and targetID
func (s *Store) RelationStatus(ctx context.Context, actorID, targetID string) (*state.RelationStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	first, second := state.CanonicalPair(actorID, targetID)
	_, following := s.edges[pairKey{actorID, targetID}]
	_, followedBy := s.edges[pairKey{targetID, actorID}]
	_, friend := s.friends[pairKey{first, second}]
	return &state.RelationStatus{IsFollowing: following, IsFollowedBy: followedBy, IsFriend: friend}, nil
}

// Neighborhoods returns the direct connections of each requested user
func (s *Store) Neighborhoods(ctx context.Context, userIDs []string) (map[string]state.Neighborhood, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]state.Neighborhood, len(userIDs))
	for _, id := range userIDs {
		out[id] = s.neighborhood(id)
	}
	return out, nil
}

// UsersByID returns the profiles that exist among userIDs
func (s *Store) UsersByID(ctx context.Context, userIDs []string) (map[string]state.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]state.User, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// neighborhood must be called with the lock held
func (s *Store) neighborhood(userID string) state.Neighborhood {
	nb := state.Neighborhood{Friends: []string{}, Followers: []string{}, Followees: []string{}}
	for k := range s.friends {
		switch userID {
		case k.first:
			nb.Friends = append(nb.Friends, k.second)
		case k.second:
			nb.Friends = append(nb.Friends, k.first)
		}
	}
	for k := range s.edges {
		if k.second == userID {
			nb.Followers = append(nb.Followers, k.first)
		}
		if k.first == userID {
			nb.Followees = append(nb.Followees, k.second)
		}
	}
	sort.Strings(nb.Friends)
	sort.Strings(nb.Followers)
	sort.Strings(nb.Followees)
	return nb
}

func (s *Store) profile(id string) state.User {
	if u, ok := s.users[id]; ok {
		return u
	}
	return state.User{ID: id}
}

// Recommendation reads

// UserProfile returns the user's profile or a not-found error
func (s *Store) UserProfile(ctx context.Context, userID string) (*state.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, apperrors.NewNotFound("user", userID)
	}
	return &u, nil
}

// Memberships returns every membership of userID, guests included, ordered by group id
func (s *Store) Memberships(ctx context.Context, userID string) ([]state.Membership, error) {
	return s.MembershipsOfUsers(ctx, []string{userID})
}

// MembershipsOfUsers returns every membership held by any of userIDs
func (s *Store) MembershipsOfUsers(ctx context.Context, userIDs []string) ([]state.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	var out []state.Membership
	for _, m := range s.memberships {
		if _, ok := wanted[m.UserID]; ok {
			out = append(out, m)
		}
	}
	sortMemberships(out)
	return out, nil
}

// GroupMemberships returns every membership in any of groupIDs
func (s *Store) GroupMemberships(ctx context.Context, groupIDs []string) ([]state.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = struct{}{}
	}
	var out []state.Membership
	for _, m := range s.memberships {
		if _, ok := wanted[m.GroupID]; ok {
			out = append(out, m)
		}
	}
	sortMemberships(out)
	return out, nil
}

// Groups returns the groups that exist among groupIDs
func (s *Store) Groups(ctx context.Context, groupIDs []string) (map[string]state.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]state.Group, len(groupIDs))
	for _, id := range groupIDs {
		if g, ok := s.groups[id]; ok {
			out[id] = g
		}
	}
	return out, nil
}

// GroupsExcluding returns every group not in excludeIDs ordered by id
func (s *Store) GroupsExcluding(ctx context.Context, excludeIDs []string) ([]state.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	skip := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = struct{}{}
	}
	out := make([]state.Group, 0, len(s.groups))
	for id, g := range s.groups {
		if _, ok := skip[id]; !ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FriendIDs returns userID's friends ordered by id
func (s *Store) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighborhood(userID).Friends, nil
}

// MemberCounts counts joined (non-guest) members per group
func (s *Store) MemberCounts(ctx context.Context, groupIDs []string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(groupIDs))
	for _, id := range groupIDs {
		out[id] = 0
	}
	for _, m := range s.memberships {
		if _, ok := out[m.GroupID]; ok && m.Joined() {
			out[m.GroupID]++
		}
	}
	return out, nil
}

// PendingJoinRequests reports which of groupIDs userID has a pending request for
func (s *Store) PendingJoinRequests(ctx context.Context, userID string, groupIDs []string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		if s.joinRequests[pairKey{userID, id}] == constants.JoinRequestPending {
			out[id] = true
		}
	}
	return out, nil
}

// Outbox

// PendingEvents returns up to limit undispatched events, oldest first
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []outbox.Event
	for _, ev := range s.events {
		if ev.DispatchedAt != nil {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkDispatched stamps the given events as delivered
func (s *Store) MarkDispatched(ctx context.Context, ids []string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := marked[s.events[i].ID]; ok && s.events[i].DispatchedAt == nil {
			stamp := at
			s.events[i].DispatchedAt = &stamp
		}
	}
	return nil
}

func sortMemberships(ms []state.Membership) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].UserID != ms[j].UserID {
			return ms[i].UserID < ms[j].UserID
		}
		return ms[i].GroupID < ms[j].GroupID
	})
}
