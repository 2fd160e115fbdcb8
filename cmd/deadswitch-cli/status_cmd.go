package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/deadswitch/protocols/core"
)

var (
	statusSwitchID string

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show a switch's current release-state",
		Long: `status reconstructs the switch's release state machine from its
descriptor (created-at, last heartbeat counter/timestamp, heartbeat
interval and grace period) and evaluates it as of now, the same
transitions a running monitor would apply on its next sweep.`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().StringVarP(&statusSwitchID, "switch-id", "s", "", "Switch ID (required)")
	statusCmd.MarkFlagRequired("switch-id")
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := loadDescriptor(configDir, statusSwitchID)
	if err != nil {
		return fmt.Errorf("loading descriptor: %w", err)
	}

	sw, err := reconstructSwitch(d)
	if err != nil {
		return fmt.Errorf("reconstructing switch: %w", err)
	}

	now := time.Now()
	if d.Cancelled {
		sw.Cancel()
	} else {
		sw.MarkWarning(now)
		sw.MarkExpired(now)
	}
	snap := sw.Snapshot()

	fmt.Printf("Switch:     %s\n", d.SwitchID)
	fmt.Printf("Owner:      %s\n", d.OwnerID)
	fmt.Printf("Threshold:  %d of %d watchers\n", d.M, d.N)
	fmt.Printf("State:      %s\n", snap.State)
	fmt.Printf("Counter:    %d\n", snap.LastCounter)
	fmt.Printf("Deadline:   %s\n", snap.Deadline.Format(time.RFC3339))
	if now.After(snap.Deadline) {
		fmt.Printf("Overdue by: %s\n", now.Sub(snap.Deadline))
	}
	return nil
}

// reconstructSwitch rebuilds the in-memory Switch aggregate a descriptor
// describes, so status/simulate can drive the same state machine the
// monitor uses without a persistent process holding it between CLI
// invocations.
func reconstructSwitch(d *descriptor) (*core.Switch, error) {
	id, err := parseSwitchID(d.SwitchID)
	if err != nil {
		return nil, err
	}

	watchers := make([]core.ShareEnvelopeRef, len(d.Watchers))
	for i, w := range d.Watchers {
		watchers[i] = core.ShareEnvelopeRef{WatcherID: watcherIDOf(w.ID), ShareIndex: w.ShareIndex}
	}

	createdAt := time.Unix(d.CreatedAtUnix, 0)
	sw, err := core.New(core.SwitchParams{
		ID:                 id,
		OwnerID:            d.OwnerID,
		Payload:            &d.Payload,
		N:                  d.N,
		M:                  d.M,
		HeartbeatInterval:  time.Duration(d.HeartbeatIntervalHours) * time.Hour,
		GraceSeconds:       d.GraceSeconds,
		Watchers:           watchers,
		OwnerSignPublicKey: d.OwnerSignPublic,
		Now:                createdAt,
	})
	if err != nil {
		return nil, err
	}

	if d.Counter > 0 {
		if err := sw.Refresh(d.Counter, time.Unix(d.LastHeartbeatAtUnix, 0)); err != nil {
			return nil, err
		}
	}
	return sw, nil
}
