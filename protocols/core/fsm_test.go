package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/identity"
)

func newTestSwitch(t *testing.T, now time.Time) *Switch {
	t.Helper()
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	sw, err := New(SwitchParams{
		ID:                id,
		OwnerID:           "owner-1",
		N:                 5,
		M:                 3,
		HeartbeatInterval: time.Hour,
		GraceSeconds:      0,
		Watchers:          make([]ShareEnvelopeRef, 5),
		Now:               now,
	})
	require.NoError(t, err)
	return sw
}

func TestNewRejectsBadThreshold(t *testing.T) {
	_, err := New(SwitchParams{N: 2, M: 5, HeartbeatInterval: time.Hour, Watchers: make([]ShareEnvelopeRef, 2), Now: time.Now()})
	require.Error(t, err)
}

func TestRefreshExtendsDeadlineAndRevertsWarning(t *testing.T) {
	now := time.Now()
	sw := newTestSwitch(t, now)

	sw.MarkWarning(now.Add(50 * time.Minute))
	require.Equal(t, StateWarning, sw.Snapshot().State)

	require.NoError(t, sw.Refresh(1, now.Add(55*time.Minute)))
	snap := sw.Snapshot()
	require.Equal(t, StateArmed, snap.State)
	require.True(t, snap.Deadline.After(now.Add(time.Hour)))
}

func TestRefreshRejectsStaleCounter(t *testing.T) {
	now := time.Now()
	sw := newTestSwitch(t, now)
	require.NoError(t, sw.Refresh(5, now.Add(time.Minute)))
	require.Error(t, sw.Refresh(5, now.Add(2*time.Minute)))
	require.Error(t, sw.Refresh(4, now.Add(2*time.Minute)))
}

func TestExpireReleaseLifecycle(t *testing.T) {
	now := time.Now()
	sw := newTestSwitch(t, now)

	require.False(t, sw.MarkExpired(now.Add(30*time.Minute)))
	require.True(t, sw.MarkExpired(now.Add(61*time.Minute)))
	require.Equal(t, StateExpired, sw.Snapshot().State)

	require.NoError(t, sw.BeginReleasing())
	require.Error(t, sw.BeginReleasing(), "a second BeginReleasing must be refused")

	require.NoError(t, sw.MarkReleased())
	require.Equal(t, StateReleased, sw.Snapshot().State)
}

func TestCancelRefusedAfterReleasing(t *testing.T) {
	now := time.Now()
	sw := newTestSwitch(t, now)
	require.True(t, sw.MarkExpired(now.Add(61*time.Minute)))
	require.NoError(t, sw.BeginReleasing())
	require.Error(t, sw.Cancel(), "cancellation after release has begun must be refused")
}

func TestCancelBeforeExpiry(t *testing.T) {
	now := time.Now()
	sw := newTestSwitch(t, now)
	require.NoError(t, sw.Cancel())
	require.Equal(t, StateCancelled, sw.Snapshot().State)
	require.Error(t, sw.Refresh(1, now.Add(time.Minute)), "a cancelled switch must reject refresh")
}
