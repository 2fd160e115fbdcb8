// Package storage is the minimal per-switch persistence layer of
// spec.md §6: no plaintext key material is ever persisted, only sealed
// payloads, share envelope references, and state-machine bookkeeping.
// The table-level + per-row locking mirrors the teacher's
// protocols/lss/dealer.BootstrapDealer (a single mutex-guarded map of
// party state), generalized to a table of independent switches so one
// switch's writers never block another's.
package storage

import (
	"sync"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/protocols/core"
)

// Store is an in-memory table of Switch aggregates keyed by SwitchID.
// A real deployment would back this with a durable KV store; the
// interface is intentionally narrow (spec.md §6 non-goal: no specific
// database is mandated) so a durable implementation is a drop-in.
type Store struct {
	mu      sync.RWMutex
	byID    map[identity.SwitchID]*core.Switch
}

// New creates an empty Store.
func New() *Store {
	return &Store{byID: make(map[identity.SwitchID]*core.Switch)}
}

// Put inserts a new switch, failing with StateConflict if the ID is
// already in use (switch IDs are never reassigned).
func (s *Store) Put(sw *core.Switch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[sw.ID]; exists {
		return dserr.New("storage.Put", dserr.KindStateConflict)
	}
	s.byID[sw.ID] = sw
	return nil
}

// Get fetches a switch by ID. The returned *core.Switch carries its own
// lock; callers must use its exported methods rather than reaching into
// its fields directly.
func (s *Store) Get(id identity.SwitchID) (*core.Switch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sw, ok := s.byID[id]
	if !ok {
		return nil, dserr.New("storage.Get", dserr.KindInvalidParameters)
	}
	return sw, nil
}

// Delete removes a switch from the table entirely (used only once a
// switch has reached a terminal state and its operator no longer needs
// it tracked).
func (s *Store) Delete(id identity.SwitchID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// All returns a snapshot slice of every tracked switch, for the monitor
// to sweep on each tick.
func (s *Store) All() []*core.Switch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Switch, 0, len(s.byID))
	for _, sw := range s.byID {
		out = append(out, sw)
	}
	return out
}
