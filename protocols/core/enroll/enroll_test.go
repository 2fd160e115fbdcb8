package enroll

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/shamir"
	"github.com/luxfi/deadswitch/pkg/substrate/memsubstrate"
)

func genSealKeyPair(t *testing.T) ([sealedbox.PrivateKeySize]byte, [sealedbox.PublicKeySize]byte) {
	t.Helper()
	kp, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	return kp.Private, kp.Public
}

func TestEnrollPublishesOneEnvelopePerWatcher(t *testing.T) {
	ctx := context.Background()
	sub := memsubstrate.New(3, 2)

	const n = 5
	watchers := make([]identity.Watcher, n)
	privs := make([][sealedbox.PrivateKeySize]byte, n)
	for i := 0; i < n; i++ {
		priv, pub := genSealKeyPair(t)
		privs[i] = priv
		watchers[i] = identity.Watcher{ID: identity.WatcherID("w"), SealPublicKey: pub}
	}

	id, err := identity.NewSwitchID()
	require.NoError(t, err)

	result, err := Enroll(ctx, sub, id, []byte("supersecretkey!!"), watchers, 3)
	require.NoError(t, err)
	require.Len(t, result.Envelopes, n)

	for i, env := range result.Envelopes {
		share, err := sealedbox.Open(privs[i], env.SealedShare)
		require.NoError(t, err)
		require.True(t, shamir.Verify(shamir.Share{Index: env.ShareIndex, Y: share, MAC: env.MAC}, result.AuthKey.Bytes()))
	}
}

func TestEnrollPublishesCommitmentsForEveryKeyByte(t *testing.T) {
	ctx := context.Background()
	sub := memsubstrate.New(3, 2)

	const n = 5
	payloadKey := []byte("supersecretkey32bytesxxxxxxxxxx")
	watchers := make([]identity.Watcher, n)
	for i := 0; i < n; i++ {
		_, pub := genSealKeyPair(t)
		watchers[i] = identity.Watcher{ID: identity.WatcherID("w"), SealPublicKey: pub}
	}

	id, err := identity.NewSwitchID()
	require.NoError(t, err)

	result, err := Enroll(ctx, sub, id, payloadKey, watchers, 3)
	require.NoError(t, err)

	for _, env := range result.Envelopes {
		require.True(t, env.HasCommitments)
		require.Len(t, env.Commitments, len(payloadKey), "one commitment row per payload-key byte, not just byte 0")
	}
}

func TestEnrollRejectsTooFewWatchers(t *testing.T) {
	ctx := context.Background()
	sub := memsubstrate.New(1, 1)
	id, err := identity.NewSwitchID()
	require.NoError(t, err)

	_, pub := genSealKeyPair(t)
	_, err = Enroll(ctx, sub, id, []byte("x"), []identity.Watcher{{ID: "only", SealPublicKey: pub}}, 1)
	require.Error(t, err)
}
