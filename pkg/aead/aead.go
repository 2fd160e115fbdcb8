// Package aead implements the sealed-payload layer: ChaCha20-Poly1305
// (IETF variant, 96-bit nonce, 128-bit tag) with a strict single-use nonce
// contract enforced by deriving a fresh key per message upstream (see
// pkg/kdf).
package aead

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/luxfi/deadswitch/pkg/dserr"
)

// NonceSize and KeySize mirror chacha20poly1305's IETF parameters.
const (
	NonceSize = chacha20poly1305.NonceSize // 12 bytes = 96 bits
	KeySize   = chacha20poly1305.KeySize   // 32 bytes = 256 bits
	TagSize   = 16                         // 128 bits
)

// Sealed is the wire-visible ciphertext envelope: nonce and ciphertext
// (with appended tag). Associated data is not stored inside Sealed; the
// caller passes the same value again to Decrypt, which re-verifies it.
type Sealed struct {
	Nonce      []byte
	Ciphertext []byte // includes the 16-byte Poly1305 tag
}

// Encrypt seals plaintext under key with a fresh random nonce. associated
// data, if any, is authenticated but not encrypted.
func Encrypt(key, plaintext, associatedData []byte) (*Sealed, error) {
	if len(key) != KeySize {
		return nil, dserr.New("aead.Encrypt", dserr.KindInvalidParameters)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, dserr.Wrap("aead.Encrypt", dserr.KindInvalidParameters, err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, dserr.Wrap("aead.Encrypt", dserr.KindEntropyFailure, err)
	}
	ct := aead.Seal(nil, nonce, plaintext, associatedData)
	return &Sealed{Nonce: nonce, Ciphertext: ct}, nil
}

// Decrypt opens a Sealed envelope. On any authentication failure it
// returns KindAuthenticationFailed and never returns partial plaintext.
func Decrypt(key []byte, s *Sealed, associatedData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, dserr.New("aead.Decrypt", dserr.KindInvalidParameters)
	}
	if s == nil || len(s.Nonce) != NonceSize {
		return nil, dserr.New("aead.Decrypt", dserr.KindAuthenticationFailed)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, dserr.Wrap("aead.Decrypt", dserr.KindInvalidParameters, err)
	}
	pt, err := aead.Open(nil, s.Nonce, s.Ciphertext, associatedData)
	if err != nil {
		return nil, dserr.Wrap("aead.Decrypt", dserr.KindAuthenticationFailed, err)
	}
	return pt, nil
}

// Concat returns the wire form (nonce || ciphertext||tag), one of the two
// equally-acceptable on-wire layouts spec.md §4.4 allows.
func (s *Sealed) Concat() []byte {
	out := make([]byte, 0, len(s.Nonce)+len(s.Ciphertext))
	out = append(out, s.Nonce...)
	out = append(out, s.Ciphertext...)
	return out
}

// FromConcat parses the (nonce || ciphertext||tag) wire form back into a
// Sealed envelope.
func FromConcat(b []byte) (*Sealed, error) {
	if len(b) < NonceSize+TagSize {
		return nil, dserr.New("aead.FromConcat", dserr.KindAuthenticationFailed)
	}
	return &Sealed{Nonce: append([]byte(nil), b[:NonceSize]...), Ciphertext: append([]byte(nil), b[NonceSize:]...)}, nil
}
