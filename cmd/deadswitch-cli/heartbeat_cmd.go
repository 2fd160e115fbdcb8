package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/deadswitch/pkg/wire"
	"github.com/luxfi/deadswitch/protocols/core/heartbeat"
)

var (
	heartbeatSwitchID string

	heartbeatCmd = &cobra.Command{
		Use:   "heartbeat",
		Short: "Sign and record a proof-of-life heartbeat for a switch",
		Long: `heartbeat increments the switch's counter, builds a Heartbeat record
signed with the owner's key, verifies it the same way a watcher would, and
updates the descriptor's last-heartbeat timestamp so the next "status" call
sees a fresh deadline.`,
		RunE: runHeartbeat,
	}
)

func init() {
	heartbeatCmd.Flags().StringVarP(&heartbeatSwitchID, "switch-id", "s", "", "Switch ID (required)")
	heartbeatCmd.MarkFlagRequired("switch-id")
}

func runHeartbeat(cmd *cobra.Command, args []string) error {
	d, err := loadDescriptor(configDir, heartbeatSwitchID)
	if err != nil {
		return fmt.Errorf("loading descriptor: %w", err)
	}
	if d.Cancelled {
		return fmt.Errorf("switch %s is cancelled, no further heartbeats accepted", d.SwitchID)
	}

	switchIDBytes, err := switchIDBytes(d.SwitchID)
	if err != nil {
		return err
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	counter := d.Counter + 1
	now := time.Now()
	h := wire.Heartbeat{
		SwitchID:  switchIDBytes,
		Signer:    d.OwnerSignPublic,
		Counter:   counter,
		Timestamp: now.Unix(),
		Nonce:     nonce,
	}
	sig, err := heartbeat.Sign(d.OwnerSignPrivate, h)
	if err != nil {
		return fmt.Errorf("signing heartbeat: %w", err)
	}
	h.Signature = sig

	if err := heartbeat.Verify(h, now); err != nil {
		return fmt.Errorf("self-verification of freshly signed heartbeat failed: %w", err)
	}

	d.Counter = counter
	d.LastHeartbeatAtUnix = now.Unix()
	if _, err := saveDescriptor(configDir, d); err != nil {
		return fmt.Errorf("saving descriptor: %w", err)
	}

	fmt.Printf("Heartbeat #%d recorded for switch %s at %s\n", counter, d.SwitchID, now.Format(time.RFC3339))
	return nil
}
