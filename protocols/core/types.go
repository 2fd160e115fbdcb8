// Package core implements the Switch aggregate and its release state
// machine (spec.md §3, §4.8): the root object tying together a sealed
// payload, its threshold release policy, and per-watcher share envelopes.
// The struct shape and per-row locking follow the teacher's
// protocols/lss/config.Config (a long-term party-storage struct) and
// protocols/lss/dealer.BootstrapDealer (sync.RWMutex-guarded mutable
// state), generalized from ECDSA key shares to GF(256) payload-key shares.
package core

import (
	"sync"
	"time"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/kdf"
)

// State enumerates the Release State Machine's states (spec.md §4.8).
type State int

const (
	StateArmed State = iota
	StateWarning
	StateExpired
	StateReleasing
	StateReleased
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "Armed"
	case StateWarning:
		return "Warning"
	case StateExpired:
		return "Expired"
	case StateReleasing:
		return "Releasing"
	case StateReleased:
		return "Released"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ShareEnvelopeRef is the locally-persisted half of a Share Envelope: the
// watcher it belongs to and the share index the switch expects from it.
// The sealed/MAC'd bytes themselves live on the substrate (spec.md §3
// invariant: "the enveloped share index equals the index recorded in the
// switch").
type ShareEnvelopeRef struct {
	WatcherID  identity.WatcherID
	ShareIndex uint8
}

// Switch is the root aggregate of spec.md §3.
type Switch struct {
	mu sync.RWMutex

	ID      identity.SwitchID
	OwnerID string

	Payload *aead.Sealed

	N int
	M int

	HeartbeatInterval time.Duration
	GraceSeconds      int

	CreatedAt    time.Time
	LastRefresh  time.Time
	Deadline     time.Time
	LastCounter  uint64

	State State

	Watchers []ShareEnvelopeRef

	OwnerSignPublicKey [33]byte
	SlowParams         kdf.SlowParams

	// NotarizationAnchor is an optional opaque reference to an external
	// timelock notarization (spec.md §1: Bitcoin timelock anchoring is an
	// external collaborator; the core only stores whatever reference it is
	// handed, uninterpreted).
	NotarizationAnchor []byte
}

// Snapshot is an immutable, lock-free copy of a Switch's visible fields,
// returned by read paths so callers never hold the per-row lock longer
// than the copy.
type Snapshot struct {
	ID                identity.SwitchID
	OwnerID           string
	N, M              int
	HeartbeatInterval time.Duration
	GraceSeconds      int
	CreatedAt         time.Time
	LastRefresh       time.Time
	Deadline          time.Time
	LastCounter       uint64
	State             State
	Watchers          []ShareEnvelopeRef
}

// Snapshot takes the per-row read lock and copies out the visible fields.
func (s *Switch) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	watchers := append([]ShareEnvelopeRef(nil), s.Watchers...)
	return Snapshot{
		ID: s.ID, OwnerID: s.OwnerID, N: s.N, M: s.M,
		HeartbeatInterval: s.HeartbeatInterval, GraceSeconds: s.GraceSeconds,
		CreatedAt: s.CreatedAt, LastRefresh: s.LastRefresh, Deadline: s.Deadline,
		LastCounter: s.LastCounter, State: s.State, Watchers: watchers,
	}
}

// validateThreshold enforces the invariant from spec.md §3: 2<=M<=N<=15,
// 2M>=N.
func validateThreshold(n, m int) bool {
	return m >= 2 && n >= m && n <= 15 && 2*m >= n
}
