// Package identity names the parties of a switch: the owner, each watcher,
// and each recipient, plus the random 128-bit switch identifier itself.
// It mirrors the teacher's pkg/party role (stable, comparable IDs used as
// map keys throughout the protocol layer) without depending on a curve
// group, since this module's identities are UUIDs and public keys rather
// than curve-scalar party indices.
package identity

import (
	"crypto/rand"

	"github.com/google/uuid"

	"github.com/luxfi/deadswitch/pkg/dserr"
)

// SwitchID is the Switch aggregate's stable 128-bit random identifier.
type SwitchID uuid.UUID

// NewSwitchID generates a fresh random switch identifier.
func NewSwitchID() (SwitchID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return SwitchID{}, dserr.Wrap("identity.NewSwitchID", dserr.KindEntropyFailure, err)
	}
	return SwitchID(id), nil
}

func (s SwitchID) String() string { return uuid.UUID(s).String() }

// Bytes returns the raw 16 identifier bytes, used as KDF
// domain-separation input and as the SwitchID field of wire records.
func (s SwitchID) Bytes() []byte {
	u := uuid.UUID(s)
	return u[:]
}

// WatcherID and RecipientID are opaque, service-assigned string handles —
// account management itself is out of scope (spec.md §1), but every
// record in this module is keyed by one of these.
type WatcherID string
type RecipientID string

// Watcher is everything the core needs to know about one watcher: its
// sealing public key (for Share Envelopes) and its signing public key (for
// verifying its Release Records).
type Watcher struct {
	ID            WatcherID
	SealPublicKey [33]byte // secp256k1 compressed point, see pkg/sealedbox
	SignPublicKey [33]byte // secp256k1 compressed point, see pkg/schnorr
}

// Recipient is a payload recipient: only a sealing public key is needed,
// since recipients never sign anything in this protocol.
type Recipient struct {
	ID            RecipientID
	SealPublicKey [33]byte
}

// Random reports raw entropy, exposed for tests that want deterministic
// doubles without reaching into crypto/rand directly.
func Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, dserr.Wrap("identity.Random", dserr.KindEntropyFailure, err)
	}
	return b, nil
}
