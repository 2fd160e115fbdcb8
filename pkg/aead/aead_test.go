package aead_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/dserr"
)

func randKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, aead.KeySize)
	_, err := rand.Read(k)
	require.NoError(t, err)
	return k
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := randKey(t)
	msg := []byte("hello")
	ad := []byte("switch-id-1234")

	sealed, err := aead.Encrypt(key, msg, ad)
	require.NoError(t, err)

	got, err := aead.Decrypt(key, sealed, ad)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestTamperedCiphertextFails(t *testing.T) {
	key := randKey(t)
	sealed, err := aead.Encrypt(key, []byte("hello"), nil)
	require.NoError(t, err)

	sealed.Ciphertext[0] ^= 0x01
	_, err = aead.Decrypt(key, sealed, nil)
	require.Error(t, err)
	assert.True(t, dserr.Is(err, dserr.KindAuthenticationFailed))
}

func TestTamperedNonceFails(t *testing.T) {
	key := randKey(t)
	sealed, err := aead.Encrypt(key, []byte("hello"), nil)
	require.NoError(t, err)

	sealed.Nonce[0] ^= 0x01
	_, err = aead.Decrypt(key, sealed, nil)
	require.Error(t, err)
}

func TestTamperedAssociatedDataFails(t *testing.T) {
	key := randKey(t)
	sealed, err := aead.Encrypt(key, []byte("hello"), []byte("ad"))
	require.NoError(t, err)

	_, err = aead.Decrypt(key, sealed, []byte("ad-changed"))
	require.Error(t, err)
}

func TestConcatRoundTrip(t *testing.T) {
	key := randKey(t)
	sealed, err := aead.Encrypt(key, []byte("payload"), nil)
	require.NoError(t, err)

	wire := sealed.Concat()
	parsed, err := aead.FromConcat(wire)
	require.NoError(t, err)

	got, err := aead.Decrypt(key, parsed, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}
