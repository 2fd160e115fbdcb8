package memsubstrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/substrate"
	"github.com/luxfi/deadswitch/pkg/wire"
)

func TestPublishRequiresMinFanout(t *testing.T) {
	sub := New(5, 3)
	ctx := context.Background()

	rec, err := wire.Encode(wire.KindCancellation, wire.Cancellation{SwitchID: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, sub.Publish(ctx, "topic", rec))

	sub.SetNodeHealthy(0, false)
	sub.SetNodeHealthy(1, false)
	sub.SetNodeHealthy(2, false)
	err = sub.Publish(ctx, "topic", rec)
	require.Error(t, err)
}

func TestSubscribeReplaysExistingAndStreamsNew(t *testing.T) {
	sub := New(3, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := wire.Encode(wire.KindCancellation, wire.Cancellation{SwitchID: []byte("y")})
	require.NoError(t, err)
	require.NoError(t, sub.Publish(ctx, "t", rec))

	ch, err := sub.Subscribe(ctx, substrate.Filter{Topic: "t"})
	require.NoError(t, err)

	select {
	case got := <-ch:
		require.Equal(t, wire.KindCancellation, got.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected replayed record")
	}

	require.NoError(t, sub.Publish(ctx, "t", rec))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected streamed record")
	}
}

func TestSubscribeFiltersByKind(t *testing.T) {
	sub := New(2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wantKind := wire.KindRelease
	ch, err := sub.Subscribe(ctx, substrate.Filter{Topic: "t", Kind: &wantKind})
	require.NoError(t, err)

	hb, err := wire.Encode(wire.KindHeartbeat, wire.Heartbeat{SwitchID: []byte("z")})
	require.NoError(t, err)
	require.NoError(t, sub.Publish(ctx, "t", hb))

	select {
	case <-ch:
		t.Fatal("heartbeat should have been filtered out")
	case <-time.After(100 * time.Millisecond):
	}
}
