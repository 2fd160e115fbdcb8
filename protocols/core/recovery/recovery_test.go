package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/shamir"
	"github.com/luxfi/deadswitch/pkg/substrate/memsubstrate"
	"github.com/luxfi/deadswitch/pkg/wire"
)

func buildReleases(t *testing.T, split *shamir.SplitResult, recipientID identity.RecipientID, recipientPub [sealedbox.PublicKeySize]byte, subset []int) []wire.Release {
	t.Helper()
	releases := make([]wire.Release, len(subset))
	for i, idx := range subset {
		share := split.Shares[idx]
		sealed, err := sealedbox.Seal(recipientPub, share.Y)
		require.NoError(t, err)
		releases[i] = wire.Release{
			ShareIndex: share.Index,
			ShareMAC:   share.MAC,
			PerRecipient: []wire.RecipientShare{
				{RecipientID: string(recipientID), SealedShare: sealed},
			},
		}
	}
	return releases
}

func TestAssembleRecoversPayload(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")[:32]
	plaintext := []byte("hello")

	sealed, err := aead.Encrypt(key, plaintext, nil)
	require.NoError(t, err)

	split, err := shamir.Split(key, 5, 3, false)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")

	releases := buildReleases(t, split, recipientID, recipientKP.Public, []int{0, 2, 4})

	ctx := context.Background()
	sub := memsubstrate.New(2, 1)
	got, err := Assemble(ctx, sub, "topic", recipientKP.Private, recipientID, releases, split.AuthKey.Bytes(), 3, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestAssembleFailsBelowThreshold(t *testing.T) {
	key := make([]byte, 32)
	copy(key, []byte("short-secret"))
	sealed, err := aead.Encrypt(key, []byte("x"), nil)
	require.NoError(t, err)

	split, err := shamir.Split(key, 5, 3, false)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")

	releases := buildReleases(t, split, recipientID, recipientKP.Public, []int{0, 1})

	ctx := context.Background()
	sub := memsubstrate.New(2, 1)
	_, err = Assemble(ctx, sub, "topic", recipientKP.Private, recipientID, releases, split.AuthKey.Bytes(), 3, sealed)
	require.Error(t, err)
}

func TestAssembleHonorsCancellation(t *testing.T) {
	key := make([]byte, 32)
	copy(key, []byte("another-secret"))
	sealed, err := aead.Encrypt(key, []byte("x"), nil)
	require.NoError(t, err)

	split, err := shamir.Split(key, 5, 3, false)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")
	releases := buildReleases(t, split, recipientID, recipientKP.Public, []int{0, 1, 2})

	ctx := context.Background()
	sub := memsubstrate.New(2, 2)

	cancelRec, err := wire.Encode(wire.KindCancellation, wire.Cancellation{SwitchID: []byte("s")})
	require.NoError(t, err)
	require.NoError(t, sub.Publish(ctx, "topic", cancelRec))

	_, err = Assemble(ctx, sub, "topic", recipientKP.Private, recipientID, releases, split.AuthKey.Bytes(), 3, sealed)
	require.Error(t, err)
}
