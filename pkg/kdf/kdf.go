// Package kdf implements the three-level key derivation hierarchy:
// password -> master (slow) -> per-switch -> per-purpose/per-fragment
// (fast), with frozen domain-separation tags. Every derived key is
// returned as a *zeroize.Key; callers must defer Destroy immediately.
package kdf

import (
	"crypto/sha256"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/zeroize"
)

// Product is the frozen product tag prefixing every domain-separation
// string in this hierarchy. Changing it is a breaking protocol change.
const Product = "DEADSWITCH"

// MinIterations is the PBKDF2-style iteration floor, kept as a reference
// value (spec.md requires "≥ 600,000 iterations" for a PBKDF2-family
// slow-KDF; see DESIGN.md). Nothing in this package checks SlowParams
// against it: argon2id quantifies hardness by time x memory, and its Time
// parameter (3 in DefaultSlowParams) is not a PBKDF2 round count.
const MinIterations = 600_000

// Purpose names the four per-switch purpose keys of level 2.
type Purpose string

const (
	PurposeEncryption   Purpose = "ENCRYPTION"
	PurposeMAC          Purpose = "MAC"
	PurposeNotarization Purpose = "NOTARIZATION"
	PurposeSigning      Purpose = "SIGNING"
)

// SlowParams are the argon2id parameters persisted alongside a switch so
// the master key can be reconstructed from the password later.
type SlowParams struct {
	Salt    []byte
	Time    uint32 // argon2id time cost (passes over memory)
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultSlowParams returns the argon2id profile used for new switches
// (time 3, 64 MiB, 4 threads) with the given salt; callers persist the
// returned Salt/Time/Memory/Threads.
func DefaultSlowParams(salt []byte) SlowParams {
	return SlowParams{Salt: salt, Time: 3, Memory: 64 * 1024, Threads: 4}
}

// DeriveMaster is level 0: the slow KDF. Deterministic given (password,
// params); the password must never be logged.
func DeriveMaster(password []byte, params SlowParams) (*zeroize.Key, error) {
	if len(params.Salt) == 0 || params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return nil, dserr.New("kdf.DeriveMaster", dserr.KindInvalidParameters)
	}
	out := argon2.IDKey(password, params.Salt, params.Time, params.Memory, params.Threads, 32)
	return zeroize.New(out), nil
}

// DeriveSwitchKey is level 1: master -> per-switch key, domain-separated
// by the switch's 128-bit identifier.
func DeriveSwitchKey(master []byte, switchID []byte) (*zeroize.Key, error) {
	info := append([]byte(Product+"-SWITCH-v1-"), switchID...)
	return expand(master, info)
}

// DerivePurposeKey is level 2: switch-key -> per-purpose key.
func DerivePurposeKey(switchKey []byte, purpose Purpose) (*zeroize.Key, error) {
	info := []byte(Product + "-" + string(purpose) + "-v1")
	return expand(switchKey, info)
}

// DeriveFragmentKey is level 3: encryption-key -> per-fragment key, used
// when a payload is sealed as independently-encrypted fragments instead of
// a single AEAD call.
func DeriveFragmentKey(encryptionKey []byte, fragmentIndex uint32) (*zeroize.Key, error) {
	info := append([]byte(Product+"-FRAGMENT-v1-"), encodeUint32(fragmentIndex)...)
	return expand(encryptionKey, info)
}

// expand is the fast-KDF: HKDF-extract over SHA-256 into a 32-byte pseudo-
// random key, then a single BLAKE3 hash over (that key || info) — an
// extract-then-expand construction over a 256-bit hash, per spec.md §4.3.
func expand(keyMaterial, info []byte) (*zeroize.Key, error) {
	if len(keyMaterial) == 0 {
		return nil, dserr.New("kdf.expand", dserr.KindInvalidParameters)
	}
	extractor := hkdf.Extract(sha256.New, keyMaterial, nil)

	h := blake3.New()
	h.Write(extractor)
	h.Write(info)
	sum := h.Sum(nil)
	out := make([]byte, 32)
	copy(out, sum)
	return zeroize.New(out), nil
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
