package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMember_EnrolledUser(t *testing.T) {
	m := newTestManager(t)
	seedUser(t, m, 1, "Alice", "")
	seedSection(t, m, 3, 1)
	seedEnrollment(t, m, 1, 3)
	room, err := m.GetOrCreateRoom(context.Background(), 3)
	require.NoError(t, err)

	ok, err := m.IsMember(context.Background(), 1, 3, room.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsMember_NotEnrolled(t *testing.T) {
	m := newTestManager(t)
	seedUser(t, m, 2, "Bob", "")
	seedSection(t, m, 3, 1)
	room, err := m.GetOrCreateRoom(context.Background(), 3)
	require.NoError(t, err)

	ok, err := m.IsMember(context.Background(), 2, 3, room.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsMember_RoomOutsideSection(t *testing.T) {
	m := newTestManager(t)
	seedUser(t, m, 1, "Alice", "")
	seedSection(t, m, 3, 1)
	seedSection(t, m, 4, 1)
	seedEnrollment(t, m, 1, 3)

	// Room belongs to section 4; enrollment in section 3 must not grant it.
	otherRoom, err := m.GetOrCreateRoom(context.Background(), 4)
	require.NoError(t, err)

	ok, err := m.IsMember(context.Background(), 1, 3, otherRoom.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
