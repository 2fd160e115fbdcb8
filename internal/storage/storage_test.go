package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/protocols/core"
)

func newSwitch(t *testing.T) *core.Switch {
	t.Helper()
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	sw, err := core.New(core.SwitchParams{
		ID: id, OwnerID: "o", N: 3, M: 2,
		HeartbeatInterval: time.Hour,
		Watchers:          make([]core.ShareEnvelopeRef, 3),
		Now:               time.Now(),
	})
	require.NoError(t, err)
	return sw
}

func TestPutGetDelete(t *testing.T) {
	s := New()
	sw := newSwitch(t)

	require.NoError(t, s.Put(sw))
	require.Error(t, s.Put(sw), "re-inserting the same switch id must conflict")

	got, err := s.Get(sw.ID)
	require.NoError(t, err)
	require.Equal(t, sw.ID, got.ID)

	s.Delete(sw.ID)
	_, err = s.Get(sw.ID)
	require.Error(t, err)
}

func TestAllReturnsSnapshotSlice(t *testing.T) {
	s := New()
	a, b := newSwitch(t), newSwitch(t)
	require.NoError(t, s.Put(a))
	require.NoError(t, s.Put(b))
	require.Len(t, s.All(), 2)
}
