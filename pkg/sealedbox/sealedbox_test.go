package sealedbox_test

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/sealedbox"
)

func genKeyPair(t *testing.T) (priv [sealedbox.PrivateKeySize]byte, pub [sealedbox.PublicKeySize]byte) {
	t.Helper()
	sk, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	copy(priv[:], sk.Serialize())
	copy(pub[:], sk.PubKey().SerializeCompressed())
	return priv, pub
}

func TestSealOpenRoundTrip(t *testing.T) {
	priv, pub := genKeyPair(t)
	msg := []byte("a GF(256) share, sealed to one watcher")

	box, err := sealedbox.Seal(pub, msg)
	require.NoError(t, err)

	got, err := sealedbox.Open(priv, box)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	_, pub := genKeyPair(t)
	otherPriv, _ := genKeyPair(t)

	box, err := sealedbox.Seal(pub, []byte("secret"))
	require.NoError(t, err)

	_, err = sealedbox.Open(otherPriv, box)
	require.Error(t, err)
}

func TestOpenFailsOnTamperedBox(t *testing.T) {
	priv, pub := genKeyPair(t)
	box, err := sealedbox.Seal(pub, []byte("secret"))
	require.NoError(t, err)

	box[len(box)-1] ^= 0x01
	_, err = sealedbox.Open(priv, box)
	require.Error(t, err)
}

func TestEachSealIsUnique(t *testing.T) {
	_, pub := genKeyPair(t)
	a, err := sealedbox.Seal(pub, []byte("same message"))
	require.NoError(t, err)
	b, err := sealedbox.Seal(pub, []byte("same message"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b) // fresh ephemeral key each time
}
