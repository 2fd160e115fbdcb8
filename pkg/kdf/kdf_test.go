package kdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/deadswitch/pkg/kdf"
)

func TestDeriveMasterDeterministic(t *testing.T) {
	params := kdf.DefaultSlowParams([]byte("fixed-salt-0123456789ab"))
	k1, err := kdf.DeriveMaster([]byte("correct horse battery staple"), params)
	require.NoError(t, err)
	defer k1.Destroy()

	k2, err := kdf.DeriveMaster([]byte("correct horse battery staple"), params)
	require.NoError(t, err)
	defer k2.Destroy()

	assert.Equal(t, k1.Bytes(), k2.Bytes())
}

func TestDomainSeparationProducesDistinctKeys(t *testing.T) {
	master := make([]byte, 32)
	for i := range master {
		master[i] = byte(i)
	}
	switchID := []byte{1, 2, 3, 4}

	sk, err := kdf.DeriveSwitchKey(master, switchID)
	require.NoError(t, err)
	defer sk.Destroy()

	enc, err := kdf.DerivePurposeKey(sk.Bytes(), kdf.PurposeEncryption)
	require.NoError(t, err)
	defer enc.Destroy()

	mac, err := kdf.DerivePurposeKey(sk.Bytes(), kdf.PurposeMAC)
	require.NoError(t, err)
	defer mac.Destroy()

	assert.NotEqual(t, enc.Bytes(), mac.Bytes())
	assert.NotEqual(t, sk.Bytes(), enc.Bytes())

	// Same inputs, same outputs.
	enc2, err := kdf.DerivePurposeKey(sk.Bytes(), kdf.PurposeEncryption)
	require.NoError(t, err)
	defer enc2.Destroy()
	assert.Equal(t, enc.Bytes(), enc2.Bytes())
}

func TestFragmentKeysDiffer(t *testing.T) {
	enc := make([]byte, 32)
	k0, err := kdf.DeriveFragmentKey(enc, 0)
	require.NoError(t, err)
	defer k0.Destroy()
	k1, err := kdf.DeriveFragmentKey(enc, 1)
	require.NoError(t, err)
	defer k1.Destroy()
	assert.NotEqual(t, k0.Bytes(), k1.Bytes())
}

func TestDestroyZeroesKey(t *testing.T) {
	k, err := kdf.DeriveSwitchKey(make([]byte, 32), []byte{9})
	require.NoError(t, err)
	k.Destroy()
	assert.Nil(t, k.Bytes())
}
