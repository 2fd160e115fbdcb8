// Package heartbeat implements the Heartbeat Log component of spec.md
// §4.6: a latest-wins authoritative log of proof-of-life records, each
// signed by the switch owner and bound to a monotonic counter so replayed
// or reordered heartbeats can never regress a switch's deadline.
package heartbeat

import (
	"bytes"
	"time"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/schnorr"
	"github.com/luxfi/deadswitch/pkg/wire"
)

// MaxClockSkew bounds how far into the future, relative to the receiver's
// clock, a heartbeat's claimed timestamp may lie before it is rejected
// outright (spec.md §4.6's clock-skew-bounded verification). Timestamps in
// the past are not bounded.
const MaxClockSkew = 5 * time.Minute

// Verify checks a Heartbeat record's signature and timestamp plausibility.
// The message digest covers every field except the signature itself, so
// a verifier recomputes it rather than trusting an attacker-supplied hash.
func Verify(h wire.Heartbeat, now time.Time) error {
	if time.Unix(h.Timestamp, 0).Sub(now) > MaxClockSkew {
		return dserr.New("heartbeat.Verify", dserr.KindAuthenticationFailed)
	}

	digest := schnorr.Hash(signingBytes(h))
	if !schnorr.Verify(h.Signer, digest, h.Signature) {
		return dserr.New("heartbeat.Verify", dserr.KindAuthenticationFailed)
	}
	return nil
}

// Sign produces a Heartbeat record's signature over its signing bytes.
func Sign(privateKey []byte, h wire.Heartbeat) ([]byte, error) {
	digest := schnorr.Hash(signingBytes(h))
	return schnorr.Sign(privateKey, digest)
}

// signingBytes concatenates every field but Signature, in a fixed order,
// so both Sign and Verify hash exactly the same thing.
func signingBytes(h wire.Heartbeat) []byte {
	buf := make([]byte, 0, len(h.SwitchID)+33+8+8+len(h.Nonce))
	buf = append(buf, h.SwitchID...)
	buf = append(buf, h.Signer[:]...)
	buf = appendUint64(buf, h.Counter)
	buf = appendUint64(buf, uint64(h.Timestamp))
	buf = append(buf, h.Nonce...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 7; i >= 0; i-- {
		buf = append(buf, byte(v>>(8*uint(i))))
	}
	return buf
}

// Log is an authoritative per-switch heartbeat log: it remembers only the
// record with the greatest timestamp seen, ties broken by the greater
// signature bytes (spec.md §4.6 "latest-wins").
type Log struct {
	latest *wire.Heartbeat
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Accept verifies h and, unless its counter regresses the log's highest
// counter seen so far (replay/reorder guard), compares it against the
// current latest by timestamp — greater signature bytes break a tie — and
// records it as the new latest if it wins. It returns whether the record
// became the new latest (false means it was verified but did not win,
// which is not itself an error).
func (l *Log) Accept(h wire.Heartbeat, now time.Time) (bool, error) {
	if err := Verify(h, now); err != nil {
		return false, err
	}
	if l.latest != nil && h.Counter <= l.latest.Counter {
		return false, nil
	}
	if l.latest != nil && !authoritative(h, *l.latest) {
		return false, nil
	}
	cp := h
	l.latest = &cp
	return true, nil
}

// authoritative reports whether candidate is at least as authoritative as
// current under spec.md §4.6: the greater timestamp wins, and equal
// timestamps are broken by the greater signature bytes.
func authoritative(candidate, current wire.Heartbeat) bool {
	if candidate.Timestamp != current.Timestamp {
		return candidate.Timestamp > current.Timestamp
	}
	return bytes.Compare(candidate.Signature, current.Signature) > 0
}

// Latest returns the highest-counter heartbeat accepted so far, or false
// if none has been accepted yet.
func (l *Log) Latest() (wire.Heartbeat, bool) {
	if l.latest == nil {
		return wire.Heartbeat{}, false
	}
	return *l.latest, true
}
