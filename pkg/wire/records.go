// Package wire defines the substrate-visible record formats of spec.md §6
// as a tagged sum type, per the redesign note in spec.md §9: the source
// material's dynamically-composed "encrypted share" objects with optional
// fields are replaced here with one Record struct per kind plus a closed
// Kind enum, CBOR-encoded (github.com/fxamacker/cbor/v2, the teacher's own
// wire-format dependency) for compactness on an untrusted substrate.
package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/deadswitch/pkg/dserr"
)

// Kind tags which of the four record shapes a SignedRecord carries.
type Kind uint8

const (
	KindHeartbeat Kind = iota
	KindShareEnvelope
	KindRelease
	KindCancellation
)

// Heartbeat is the proof-of-life record of spec.md §4.6.
type Heartbeat struct {
	SwitchID  []byte
	Signer    [33]byte // secp256k1 compressed point
	Counter   uint64
	Timestamp int64 // unix seconds
	Nonce     []byte
	Signature []byte
}

// ShareEnvelope is one watcher's enrolled share, sealed to that watcher.
type ShareEnvelope struct {
	SwitchID        []byte
	WatcherID       string
	ShareIndex      uint8
	SealedShare     []byte // output of pkg/sealedbox.Seal
	MAC             []byte
	Commitments     [][][32]byte `cbor:",omitempty"`
	HasCommitments  bool
}

// RecipientShare addresses one recipient inside a Release record.
type RecipientShare struct {
	RecipientID string
	SealedShare []byte
}

// Release is a watcher's publication of its share, addressed to every
// configured recipient individually, per spec.md §4.8/§6.
type Release struct {
	SwitchID      []byte
	WatcherID     string
	ShareIndex    uint8
	ShareMAC      []byte
	PerRecipient  []RecipientShare
	Timestamp     int64
	Signer        [33]byte
	Signature     []byte
}

// Cancellation is the owner-signed suppression record of spec.md §4.8.
type Cancellation struct {
	SwitchID  []byte
	Timestamp int64
	Signer    [33]byte
	Signature []byte
}

// SignedRecord is the envelope every subscriber sees on the substrate: a
// Kind tag plus the CBOR-encoded payload of the matching struct above.
type SignedRecord struct {
	Kind    Kind
	Payload []byte
}

// Encode wraps a concrete record into a SignedRecord ready for publish.
func Encode(kind Kind, v interface{}) (SignedRecord, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return SignedRecord{}, dserr.Wrap("wire.Encode", dserr.KindInvalidParameters, err)
	}
	return SignedRecord{Kind: kind, Payload: b}, nil
}

// DecodeHeartbeat, DecodeShareEnvelope, DecodeRelease and DecodeCancellation
// parse a SignedRecord's payload into its concrete type, failing if Kind
// doesn't match.
func DecodeHeartbeat(r SignedRecord) (Heartbeat, error) {
	var h Heartbeat
	if r.Kind != KindHeartbeat {
		return h, dserr.New("wire.DecodeHeartbeat", dserr.KindInvalidParameters)
	}
	if err := cbor.Unmarshal(r.Payload, &h); err != nil {
		return h, dserr.Wrap("wire.DecodeHeartbeat", dserr.KindInvalidParameters, err)
	}
	return h, nil
}

func DecodeShareEnvelope(r SignedRecord) (ShareEnvelope, error) {
	var e ShareEnvelope
	if r.Kind != KindShareEnvelope {
		return e, dserr.New("wire.DecodeShareEnvelope", dserr.KindInvalidParameters)
	}
	if err := cbor.Unmarshal(r.Payload, &e); err != nil {
		return e, dserr.Wrap("wire.DecodeShareEnvelope", dserr.KindInvalidParameters, err)
	}
	return e, nil
}

func DecodeRelease(r SignedRecord) (Release, error) {
	var rel Release
	if r.Kind != KindRelease {
		return rel, dserr.New("wire.DecodeRelease", dserr.KindInvalidParameters)
	}
	if err := cbor.Unmarshal(r.Payload, &rel); err != nil {
		return rel, dserr.Wrap("wire.DecodeRelease", dserr.KindInvalidParameters, err)
	}
	return rel, nil
}

func DecodeCancellation(r SignedRecord) (Cancellation, error) {
	var c Cancellation
	if r.Kind != KindCancellation {
		return c, dserr.New("wire.DecodeCancellation", dserr.KindInvalidParameters)
	}
	if err := cbor.Unmarshal(r.Payload, &c); err != nil {
		return c, dserr.Wrap("wire.DecodeCancellation", dserr.KindInvalidParameters, err)
	}
	return c, nil
}
