package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/deadswitch/pkg/schnorr"
	"github.com/luxfi/deadswitch/pkg/wire"
)

var (
	cancelSwitchID string

	cancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Sign and record a cancellation for a switch",
		Long: `cancel builds an owner-signed Cancellation record and marks the
descriptor cancelled. A cancelled switch's recovery assembler refuses to
release the payload even if it already holds a quorum of Release Records
(spec scenario: cancellation races release).`,
		RunE: runCancel,
	}
)

func init() {
	cancelCmd.Flags().StringVarP(&cancelSwitchID, "switch-id", "s", "", "Switch ID (required)")
	cancelCmd.MarkFlagRequired("switch-id")
}

func runCancel(cmd *cobra.Command, args []string) error {
	d, err := loadDescriptor(configDir, cancelSwitchID)
	if err != nil {
		return fmt.Errorf("loading descriptor: %w", err)
	}
	if d.Cancelled {
		fmt.Printf("Switch %s is already cancelled\n", d.SwitchID)
		return nil
	}

	switchIDBytes, err := switchIDBytes(d.SwitchID)
	if err != nil {
		return err
	}

	c := wire.Cancellation{
		SwitchID:  switchIDBytes,
		Timestamp: time.Now().Unix(),
		Signer:    d.OwnerSignPublic,
	}
	digest := schnorr.Hash(cancellationSigningBytes(c))
	sig, err := schnorr.Sign(d.OwnerSignPrivate, digest)
	if err != nil {
		return fmt.Errorf("signing cancellation: %w", err)
	}
	c.Signature = sig

	if !schnorr.Verify(d.OwnerSignPublic, digest, c.Signature) {
		return fmt.Errorf("self-verification of freshly signed cancellation failed")
	}

	d.Cancelled = true
	if _, err := saveDescriptor(configDir, d); err != nil {
		return fmt.Errorf("saving descriptor: %w", err)
	}

	fmt.Printf("Switch %s cancelled\n", d.SwitchID)
	return nil
}

// cancellationSigningBytes mirrors protocols/core/heartbeat's fixed-order
// signing-bytes convention: every Cancellation field but Signature, in a
// fixed order, so Sign and Verify hash exactly the same thing.
func cancellationSigningBytes(c wire.Cancellation) []byte {
	buf := make([]byte, 0, len(c.SwitchID)+33+8)
	buf = append(buf, c.SwitchID...)
	buf = append(buf, c.Signer[:]...)
	ts := uint64(c.Timestamp)
	for i := 7; i >= 0; i-- {
		buf = append(buf, byte(ts>>(8*uint(i))))
	}
	return buf
}
