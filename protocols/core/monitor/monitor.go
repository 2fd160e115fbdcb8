// Package monitor implements the Timer & Monitor component of spec.md
// §4.10: a ticker-driven scheduler that evaluates every tracked switch for
// warning/expiration transitions, dispatches at-most-once-per-threshold
// reminders, and — on the watcher side — triggers the actual Release
// Record publication once a switch is observed Expired with no
// intervening refresh.
package monitor

import (
	"context"
	"time"

	"github.com/luxfi/deadswitch/internal/storage"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/xlog"
	"github.com/luxfi/deadswitch/protocols/core"
)

// Reminder is emitted when a switch crosses a configured threshold
// without an intervening refresh.
type Reminder struct {
	SwitchID identity.SwitchID
	Hours    int
}

// ReleaseTrigger is emitted when a switch has been marked Expired and is
// ready for a watcher to publish its Release Record.
type ReleaseTrigger struct {
	SwitchID identity.SwitchID
}

// Monitor periodically sweeps a Store, advancing each switch's state and
// emitting Reminder/ReleaseTrigger events on its channels. The monitor
// itself is not a release authority (spec.md §4.10): it only notifies;
// watchers decide independently whether to publish.
type Monitor struct {
	store             *storage.Store
	interval          time.Duration
	thresholds        []int // hours-before-deadline reminder points, descending
	log               *xlog.Logger
	remindersFired    map[identity.SwitchID]map[int]bool
	Reminders         chan Reminder
	ReleaseTriggers   chan ReleaseTrigger
}

// New builds a Monitor polling store every interval, firing a Reminder at
// most once per (switch, threshold) pair.
func New(store *storage.Store, interval time.Duration, thresholdsHours []int, log *xlog.Logger) *Monitor {
	return &Monitor{
		store:           store,
		interval:        interval,
		thresholds:      thresholdsHours,
		log:             log.Module("monitor"),
		remindersFired:  make(map[identity.SwitchID]map[int]bool),
		Reminders:       make(chan Reminder, 64),
		ReleaseTriggers: make(chan ReleaseTrigger, 64),
	}
}

// Run blocks, ticking every m.interval, until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(m.Reminders)
			close(m.ReleaseTriggers)
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Monitor) sweep(now time.Time) {
	for _, sw := range m.store.All() {
		snap := sw.Snapshot()
		if snap.State != core.StateArmed && snap.State != core.StateWarning {
			continue
		}

		remaining := snap.Deadline.Sub(now)
		for _, h := range m.thresholds {
			if remaining <= time.Duration(h)*time.Hour && remaining > 0 {
				if m.fireOnce(snap.ID, h) {
					select {
					case m.Reminders <- Reminder{SwitchID: snap.ID, Hours: h}:
					default:
						m.log.Warn("reminder channel full, dropping", "switch", snap.ID.String())
					}
				}
			}
		}

		sw.MarkWarning(now)
		if sw.MarkExpired(now) {
			select {
			case m.ReleaseTriggers <- ReleaseTrigger{SwitchID: snap.ID}:
			default:
				m.log.Warn("release-trigger channel full, dropping", "switch", snap.ID.String())
			}
		}
	}
}

func (m *Monitor) fireOnce(id identity.SwitchID, hours int) bool {
	fired, ok := m.remindersFired[id]
	if !ok {
		fired = make(map[int]bool)
		m.remindersFired[id] = fired
	}
	if fired[hours] {
		return false
	}
	fired[hours] = true
	return true
}
