// Package schnorr implements deterministic Schnorr signatures over
// secp256k1, used to sign heartbeats, release records, and cancellations.
// Verification never panics on malformed input; it returns false.
package schnorr

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dschnorr "github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/zeebo/blake3"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/zeroize"
)

// PrivateKeySize and PublicKeySize are the serialized sizes this package
// works with: a raw 32-byte scalar, and a 33-byte compressed point (the
// EC-Schnorr-DCRv0 scheme this package is built on verifies against a
// standard secp256k1 public key, not a BIP340 x-only point).
const (
	PrivateKeySize = 32
	PublicKeySize  = 33
)

// KeyPair holds a signing keypair. PrivateKey is scoped secret material.
type KeyPair struct {
	PrivateKey *zeroize.Key
	PublicKey  [PublicKeySize]byte
}

// Generate creates a fresh keypair.
func Generate() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, dserr.Wrap("schnorr.Generate", dserr.KindEntropyFailure, err)
	}
	defer priv.Zero()

	raw := priv.Serialize()
	kp := &KeyPair{PrivateKey: zeroize.New(append([]byte(nil), raw...))}
	copy(kp.PublicKey[:], priv.PubKey().SerializeCompressed())
	return kp, nil
}

// Hash digests an arbitrary-length message into the 32-byte value this
// package signs, using BLAKE3 — the same hash already used by pkg/kdf and
// pkg/shamir, so the signature layer needs no second hash dependency.
func Hash(message []byte) [32]byte {
	return blake3.Sum256(message)
}

// Sign produces a deterministic signature over a 32-byte message digest.
// Fails with KindInvalidParameters if privateKey is not a valid non-zero
// scalar less than the curve order.
func Sign(privateKey []byte, messageDigest [32]byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, dserr.New("schnorr.Sign", dserr.KindInvalidParameters)
	}
	var scalar secp256k1.ModNScalar
	defer scalar.Zero()
	if overflow := scalar.SetByteSlice(privateKey); overflow || scalar.IsZero() {
		return nil, dserr.New("schnorr.Sign", dserr.KindInvalidParameters)
	}
	priv := secp256k1.NewPrivateKey(&scalar)
	defer priv.Zero()

	// dschnorr.Sign derives its nonce deterministically from (privateKey,
	// message) internally (the EC-Schnorr-DCRv0 construction) — random
	// nonce reuse across signatures is the vulnerability spec.md §4.5/§9
	// calls out, and this library never takes an external nonce source.
	sig, err := dschnorr.Sign(priv, messageDigest[:])
	if err != nil {
		return nil, dserr.Wrap("schnorr.Sign", dserr.KindInvalidParameters, err)
	}
	return sig.Serialize(), nil
}

// Verify checks a signature against a compressed public key. It returns
// false (never errors or panics) on any malformed input.
func Verify(publicKey [PublicKeySize]byte, messageDigest [32]byte, signature []byte) bool {
	pub, err := secp256k1.ParsePubKey(publicKey[:])
	if err != nil {
		return false
	}
	sig, err := dschnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(messageDigest[:], pub)
}
