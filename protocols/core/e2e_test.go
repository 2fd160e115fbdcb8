package core_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/substrate"
	"github.com/luxfi/deadswitch/pkg/substrate/memsubstrate"
	"github.com/luxfi/deadswitch/pkg/wire"
	"github.com/luxfi/deadswitch/protocols/core/enroll"
	"github.com/luxfi/deadswitch/protocols/core/recovery"
)

// fixedPayloadKey stands in for a key freshly derived via pkg/kdf in a real
// deposit; these end-to-end tests exercise the release pipeline (enroll ->
// watcher release -> recovery) rather than key derivation, which pkg/kdf's
// own tests already cover.
func fixedPayloadKey() []byte {
	key := make([]byte, aead.KeySize)
	copy(key, []byte("e2e-fixed-32-byte-payload-key!!"))
	return key
}

func deposit(t *testing.T, plaintext []byte, n int) (*aead.Sealed, [][sealedbox.PrivateKeySize]byte, []identity.Watcher) {
	t.Helper()
	key := fixedPayloadKey()
	sealed, err := aead.Encrypt(key, plaintext, nil)
	require.NoError(t, err)

	privs := make([][sealedbox.PrivateKeySize]byte, n)
	watchers := make([]identity.Watcher, n)
	for i := 0; i < n; i++ {
		kp, err := sealedbox.GenerateKeyPair()
		require.NoError(t, err)
		privs[i] = kp.Private
		watchers[i] = identity.Watcher{ID: identity.WatcherID(fmt.Sprintf("watcher-%d", i)), SealPublicKey: kp.Public}
	}
	return sealed, privs, watchers
}

// publishRelease simulates a single watcher observing Expired and
// publishing its Release Record addressed to one recipient, without going
// through the timer-driven monitor.Watcher (exercised separately in
// protocols/core/monitor).
func publishRelease(t *testing.T, sub substrate.Substrate, topic substrate.Topic, watcherPriv [sealedbox.PrivateKeySize]byte, env wire.ShareEnvelope, recipientID identity.RecipientID, recipientPub [sealedbox.PublicKeySize]byte, corruptMAC bool) {
	t.Helper()
	share, err := sealedbox.Open(watcherPriv, env.SealedShare)
	require.NoError(t, err)

	sealedShare, err := sealedbox.Seal(recipientPub, share)
	require.NoError(t, err)

	mac := env.MAC
	if corruptMAC {
		mac = append([]byte(nil), mac...)
		mac[0] ^= 0xFF
	}

	rel := wire.Release{
		SwitchID:     env.SwitchID,
		WatcherID:    env.WatcherID,
		ShareIndex:   env.ShareIndex,
		ShareMAC:     mac,
		PerRecipient: []wire.RecipientShare{{RecipientID: string(recipientID), SealedShare: sealedShare}},
		Timestamp:    time.Now().Unix(),
	}
	rec, err := wire.Encode(wire.KindRelease, rel)
	require.NoError(t, err)
	require.NoError(t, sub.Publish(context.Background(), topic, rec))
}

func TestS1BasicRelease(t *testing.T) {
	ctx := context.Background()
	sealed, watcherPrivs, watchers := deposit(t, []byte("hello"), 5)

	sub := memsubstrate.New(3, 2)
	id, err := identity.NewSwitchID()
	require.NoError(t, err)

	result, err := enroll.Enroll(ctx, sub, id, fixedPayloadKey(), watchers, 3)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")
	topic := enroll.Topic(id)

	for i := 0; i < 3; i++ {
		publishRelease(t, sub, topic, watcherPrivs[i], result.Envelopes[i], recipientID, recipientKP.Public, false)
	}

	releases, err := recovery.Collect(ctx, sub, topic, recipientID, 3)
	require.NoError(t, err)
	got, err := recovery.Assemble(ctx, sub, topic, recipientKP.Private, recipientID, releases, result.AuthKey.Bytes(), 3, sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestS2ThresholdNotMet(t *testing.T) {
	ctx := context.Background()
	sealed, watcherPrivs, watchers := deposit(t, []byte("hello"), 5)

	sub := memsubstrate.New(3, 2)
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	result, err := enroll.Enroll(ctx, sub, id, fixedPayloadKey(), watchers, 3)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")
	topic := enroll.Topic(id)

	for i := 0; i < 2; i++ {
		publishRelease(t, sub, topic, watcherPrivs[i], result.Envelopes[i], recipientID, recipientKP.Public, false)
	}

	releases, err := recovery.Collect(ctx, sub, topic, recipientID, 2)
	require.NoError(t, err)
	_, err = recovery.Assemble(ctx, sub, topic, recipientKP.Private, recipientID, releases, result.AuthKey.Bytes(), 3, sealed)
	require.Error(t, err)
}

func TestS3CorruptShareDiscarded(t *testing.T) {
	ctx := context.Background()
	sealed, watcherPrivs, watchers := deposit(t, []byte("hello"), 5)

	sub := memsubstrate.New(3, 2)
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	result, err := enroll.Enroll(ctx, sub, id, fixedPayloadKey(), watchers, 3)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")
	topic := enroll.Topic(id)

	publishRelease(t, sub, topic, watcherPrivs[0], result.Envelopes[0], recipientID, recipientKP.Public, true) // corrupted
	for i := 1; i < 4; i++ {
		publishRelease(t, sub, topic, watcherPrivs[i], result.Envelopes[i], recipientID, recipientKP.Public, false)
	}

	releases, err := recovery.Collect(ctx, sub, topic, recipientID, 4)
	require.NoError(t, err)
	got, err := recovery.Assemble(ctx, sub, topic, recipientKP.Private, recipientID, releases, result.AuthKey.Bytes(), 3, sealed)
	require.NoError(t, err, "3 of 4 genuine shares must still satisfy the threshold")
	require.Equal(t, []byte("hello"), got)
}

func TestS6TamperedCiphertextFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	sealed, watcherPrivs, watchers := deposit(t, []byte("hello"), 5)
	sealed.Ciphertext[0] ^= 0xFF // tamper the stored ciphertext after a successful quorum would have used it

	sub := memsubstrate.New(3, 2)
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	result, err := enroll.Enroll(ctx, sub, id, fixedPayloadKey(), watchers, 3)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")
	topic := enroll.Topic(id)

	for i := 0; i < 3; i++ {
		publishRelease(t, sub, topic, watcherPrivs[i], result.Envelopes[i], recipientID, recipientKP.Public, false)
	}

	releases, err := recovery.Collect(ctx, sub, topic, recipientID, 3)
	require.NoError(t, err)
	_, err = recovery.Assemble(ctx, sub, topic, recipientKP.Private, recipientID, releases, result.AuthKey.Bytes(), 3, sealed)
	require.Error(t, err, "a tampered ciphertext must fail authentication even with a correctly reconstructed key")
}

func TestS5CancellationSuppressesRecovery(t *testing.T) {
	ctx := context.Background()
	sealed, watcherPrivs, watchers := deposit(t, []byte("hello"), 5)

	sub := memsubstrate.New(3, 2)
	id, err := identity.NewSwitchID()
	require.NoError(t, err)
	result, err := enroll.Enroll(ctx, sub, id, fixedPayloadKey(), watchers, 3)
	require.NoError(t, err)

	recipientKP, err := sealedbox.GenerateKeyPair()
	require.NoError(t, err)
	recipientID := identity.RecipientID("r1")
	topic := enroll.Topic(id)

	for i := 0; i < 3; i++ {
		publishRelease(t, sub, topic, watcherPrivs[i], result.Envelopes[i], recipientID, recipientKP.Public, false)
	}

	cancelRec, err := wire.Encode(wire.KindCancellation, wire.Cancellation{SwitchID: id.Bytes()})
	require.NoError(t, err)
	require.NoError(t, sub.Publish(ctx, topic, cancelRec))

	releases, err := recovery.Collect(ctx, sub, topic, recipientID, 3)
	require.NoError(t, err)
	_, err = recovery.Assemble(ctx, sub, topic, recipientKP.Private, recipientID, releases, result.AuthKey.Bytes(), 3, sealed)
	require.Error(t, err, "a cancelled switch must never yield the payload regardless of shares in hand")
}
