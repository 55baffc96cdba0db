package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("user-b", "user-a")
	assert.Equal(t, "user-a", a)
	assert.Equal(t, "user-b", b)

	a, b = CanonicalPair("user-a", "user-b")
	assert.Equal(t, "user-a", a)
	assert.Equal(t, "user-b", b)
}

func TestMembershipJoined(t *testing.T) {
	memberships := []Membership{
		{GroupID: "g1", Role: RoleOwner},
		{GroupID: "g2", Role: RoleGuest},
		{GroupID: "g3", Role: RoleMember},
		{GroupID: "g4"},
	}

	joined := JoinedOnly(memberships)
	require.Len(t, joined, 2)
	assert.Equal(t, "g1", joined[0].GroupID)
	assert.Equal(t, "g3", joined[1].GroupID)
}

func TestNewRequester(t *testing.T) {
	r, err := NewRequester("  u1 ")
	require.NoError(t, err)
	assert.Equal(t, "u1", r.UserID)

	_, err = NewRequester("   ")
	assert.Error(t, err)
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		max          int
		wantPage     int
		wantPageSize int
	}{
		{"in range", 2, 10, 50, 2, 10},
		{"page below one", 0, 10, 50, 1, 10},
		{"size unset", 1, 0, 50, 1, 10},
		{"size over cap", 1, 500, 50, 1, 50},
		{"list cap", 3, 500, 100, 3, 100},
		{"huge page", math.MaxInt, 50, 50, math.MaxInt / 50, 50},
		{"huge page unset size", math.MaxInt, 0, 100, math.MaxInt / 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := ClampPage(tt.page, tt.size, tt.max)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, size)
		})
	}
}

func TestPaginationWindow(t *testing.T) {
	start, end := Window(25, 2, 10)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)
	p := NewPagination(2, 10, 25)
	assert.True(t, p.HasMore)
	assert.Equal(t, 3, p.TotalPages)

	start, end = Window(25, 3, 10)
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)
	assert.False(t, NewPagination(3, 10, 25).HasMore)

	start, end = Window(25, 9, 10)
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)

	empty := NewPagination(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasMore)
}

func TestPaginationWindow_HugePage(t *testing.T) {
	page, size := ClampPage(math.MaxInt, 100, 100)
	start, end := Window(25, page, size)
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)
	assert.False(t, NewPagination(page, size, 25).HasMore)

	// unclamped input still stays in bounds
	start, end = Window(25, math.MaxInt, 50)
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)
	assert.Equal(t, math.MaxInt, Skip(math.MaxInt, 50))
	assert.Equal(t, 0, Skip(0, 50))
	assert.Equal(t, 20, Skip(3, 10))
}
