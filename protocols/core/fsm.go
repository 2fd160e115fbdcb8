package core

import (
	"time"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/kdf"
)

// SwitchParams is the constructor argument bundle for New.
type SwitchParams struct {
	ID                 identity.SwitchID
	OwnerID            string
	Payload            *aead.Sealed
	N, M               int
	HeartbeatInterval  time.Duration
	GraceSeconds       int
	Watchers           []ShareEnvelopeRef
	OwnerSignPublicKey [33]byte
	SlowParams         kdf.SlowParams
	NotarizationAnchor []byte
	Now                time.Time
}

// New constructs an Armed switch. The deadline is Now+HeartbeatInterval;
// Refresh recomputes it on every accepted heartbeat (spec.md §4.8).
func New(p SwitchParams) (*Switch, error) {
	if !validateThreshold(p.N, p.M) {
		return nil, dserr.New("core.New", dserr.KindInvalidParameters)
	}
	if p.HeartbeatInterval <= 0 {
		return nil, dserr.New("core.New", dserr.KindInvalidParameters)
	}
	if len(p.Watchers) != p.N {
		return nil, dserr.New("core.New", dserr.KindInvalidParameters)
	}
	now := p.Now
	return &Switch{
		ID:                 p.ID,
		OwnerID:            p.OwnerID,
		Payload:            p.Payload,
		N:                  p.N,
		M:                  p.M,
		HeartbeatInterval:  p.HeartbeatInterval,
		GraceSeconds:       p.GraceSeconds,
		CreatedAt:          now,
		LastRefresh:        now,
		Deadline:           now.Add(p.HeartbeatInterval),
		State:              StateArmed,
		Watchers:           p.Watchers,
		OwnerSignPublicKey: p.OwnerSignPublicKey,
		SlowParams:         p.SlowParams,
		NotarizationAnchor: p.NotarizationAnchor,
	}, nil
}

// Refresh accepts a heartbeat with the given counter and timestamp,
// extending the deadline and reverting Warning back to Armed. Heartbeats
// with a counter not strictly greater than the last accepted one are
// rejected as replays/stale (spec.md §4.6 "latest-wins" rule applied at
// the switch boundary).
func (s *Switch) Refresh(counter uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State {
	case StateReleasing, StateReleased, StateCancelled:
		return dserr.New("core.Refresh", dserr.KindStateConflict)
	}
	if counter <= s.LastCounter {
		return dserr.New("core.Refresh", dserr.KindStateConflict)
	}

	s.LastCounter = counter
	s.LastRefresh = now
	s.Deadline = now.Add(s.HeartbeatInterval)
	s.State = StateArmed
	return nil
}

// MarkWarning transitions Armed->Warning once 75% of the heartbeat
// interval has elapsed since the last refresh without an intervening
// refresh, while the deadline is still ahead (spec.md §4.10). It is a
// no-op if the switch has moved on to a later state.
func (s *Switch) MarkWarning(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := now.Sub(s.LastRefresh)
	if s.State == StateArmed && now.Before(s.Deadline) && elapsed*4 >= s.HeartbeatInterval*3 {
		s.State = StateWarning
	}
}

// MarkExpired transitions Armed/Warning->Expired once now has passed the
// deadline plus the configured grace period (spec.md §4.8).
func (s *Switch) MarkExpired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateArmed && s.State != StateWarning {
		return false
	}
	graceDeadline := s.Deadline.Add(time.Duration(s.GraceSeconds) * time.Second)
	if now.Before(graceDeadline) {
		return false
	}
	s.State = StateExpired
	return true
}

// BeginReleasing transitions Expired->Releasing exactly once; it fails
// with StateConflict if called twice (e.g. a racing monitor tick and a
// racing Cancel), which is the mutual-exclusion invariant behind spec.md
// §8 scenario S5 (cancellation races release).
func (s *Switch) BeginReleasing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateExpired {
		return dserr.New("core.BeginReleasing", dserr.KindStateConflict)
	}
	s.State = StateReleasing
	return nil
}

// MarkReleased transitions Releasing->Released after the watchers have
// published their Release Records.
func (s *Switch) MarkReleased() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateReleasing {
		return dserr.New("core.MarkReleased", dserr.KindStateConflict)
	}
	s.State = StateReleased
	return nil
}

// Cancel transitions any pre-Releasing state to Cancelled. Once release
// has begun (Releasing/Released) cancellation is refused: the shares may
// already be in flight to watchers and recipients, so "cancelling" would
// be a lie (spec.md §4.8, §8 scenario S5).
func (s *Switch) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.State {
	case StateReleasing, StateReleased, StateCancelled:
		return dserr.New("core.Cancel", dserr.KindStateConflict)
	}
	s.State = StateCancelled
	return nil
}
