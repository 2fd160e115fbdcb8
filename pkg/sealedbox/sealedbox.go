// Package sealedbox implements the curve-based sealed-box scheme used to
// address a share (or a recipient-bound release) to a single public key:
// an ephemeral-key ECDH over secp256k1 feeding an HKDF-SHA256 extract step
// into the AEAD layer, in the shape of the ECIES/HPKE constructions used
// elsewhere in this codebase's lineage for single-recipient sealing.
package sealedbox

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/zeroize"
)

const sealDomainTag = "DEADSWITCH-SEALEDBOX-v1"

// PublicKeySize and PrivateKeySize are the secp256k1 compressed-point and
// raw-scalar sizes this package works with.
const (
	PublicKeySize  = 33
	PrivateKeySize = 32
)

// KeyPair is a recipient's sealing keypair: the public half goes into an
// identity.Watcher/identity.Recipient record, the private half stays with
// whoever must later unseal a share addressed to it.
type KeyPair struct {
	Private [PrivateKeySize]byte
	Public  [PublicKeySize]byte
}

// GenerateKeyPair creates a fresh sealed-box keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, dserr.Wrap("sealedbox.GenerateKeyPair", dserr.KindEntropyFailure, err)
	}
	defer priv.Zero()

	kp := &KeyPair{}
	copy(kp.Private[:], priv.Serialize())
	copy(kp.Public[:], priv.PubKey().SerializeCompressed())
	return kp, nil
}

// Seal encrypts message so that only the holder of recipientPrivateKey
// (matching recipientPublicKey) can recover it. The output embeds a fresh
// ephemeral public key, so no sender key material is required.
func Seal(recipientPublicKey [PublicKeySize]byte, message []byte) ([]byte, error) {
	recipPub, err := secp256k1.ParsePubKey(recipientPublicKey[:])
	if err != nil {
		return nil, dserr.Wrap("sealedbox.Seal", dserr.KindInvalidParameters, err)
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, dserr.Wrap("sealedbox.Seal", dserr.KindEntropyFailure, err)
	}
	defer ephemeral.Zero()

	sharedKey := deriveSharedKey(ephemeral, recipPub)
	defer sharedKey.Destroy()

	sealed, err := aead.Encrypt(sharedKey.Bytes(), message, ephemeral.PubKey().SerializeCompressed())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, PublicKeySize+len(sealed.Concat()))
	out = append(out, ephemeral.PubKey().SerializeCompressed()...)
	out = append(out, sealed.Concat()...)
	return out, nil
}

// Open recovers the message sealed with the public key matching
// recipientPrivateKey. Fails with KindAuthenticationFailed on any tamper
// or mismatched key; the plaintext is never returned in that case.
func Open(recipientPrivateKey [PrivateKeySize]byte, sealedBox []byte) ([]byte, error) {
	if len(sealedBox) < PublicKeySize {
		return nil, dserr.New("sealedbox.Open", dserr.KindAuthenticationFailed)
	}
	ephemeralPubBytes := sealedBox[:PublicKeySize]
	rest := sealedBox[PublicKeySize:]

	ephemeralPub, err := secp256k1.ParsePubKey(ephemeralPubBytes)
	if err != nil {
		return nil, dserr.Wrap("sealedbox.Open", dserr.KindAuthenticationFailed, err)
	}

	priv := secp256k1.PrivKeyFromBytes(recipientPrivateKey[:])
	defer priv.Zero()

	sharedKey := deriveSharedKey(priv, ephemeralPub)
	defer sharedKey.Destroy()

	sealed, err := aead.FromConcat(rest)
	if err != nil {
		return nil, err
	}
	return aead.Decrypt(sharedKey.Bytes(), sealed, ephemeralPubBytes)
}

func deriveSharedKey(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) *zeroize.Key {
	var pubJacobian, result secp256k1.JacobianPoint
	pub.AsJacobian(&pubJacobian)
	secp256k1.ScalarMultNonConst(&priv.Key, &pubJacobian, &result)
	result.ToAffine()

	xBytes := result.X.Bytes()

	extractor := hkdf.Extract(sha256.New, xBytes[:], []byte(sealDomainTag))
	out := make([]byte, aead.KeySize)
	copy(out, extractor)
	return zeroize.New(out)
}
