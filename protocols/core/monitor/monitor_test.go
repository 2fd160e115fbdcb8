package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/internal/storage"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/xlog"
	"github.com/luxfi/deadswitch/protocols/core"
)

func TestSweepFiresReminderOnceAndExpires(t *testing.T) {
	store := storage.New()
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	now := time.Now()
	sw, err := core.New(core.SwitchParams{
		ID: id, OwnerID: "o", N: 2, M: 2,
		HeartbeatInterval: time.Hour,
		Watchers:          make([]core.ShareEnvelopeRef, 2),
		Now:               now,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(sw))

	m := New(store, time.Hour, []int{1}, xlog.Default())

	m.sweep(now.Add(30 * time.Minute))
	require.Len(t, m.Reminders, 1)
	m.sweep(now.Add(31 * time.Minute))
	require.Len(t, m.Reminders, 1, "reminder must fire at most once per threshold")

	m.sweep(now.Add(2 * time.Hour))
	require.Equal(t, core.StateExpired, sw.Snapshot().State)
	require.Len(t, m.ReleaseTriggers, 1)
}
