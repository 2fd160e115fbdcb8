package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/substrate/memsubstrate"
	"github.com/luxfi/deadswitch/pkg/wire"
	"github.com/luxfi/deadswitch/protocols/core/enroll"
	"github.com/luxfi/deadswitch/protocols/core/monitor"
	"github.com/luxfi/deadswitch/protocols/core/recovery"
)

var (
	simulateSwitchID   string
	simulateRecipient  string

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run the release pipeline end to end against an enrolled switch",
		Long: `simulate exercises the full release pipeline in one process: it
fast-forwards the switch's state machine past expiry, runs every enrolled
watcher's Observe loop against an in-memory substrate (the same
memsubstrate used by this module's tests), collects the resulting
Release Records, and assembles the original payload — printing it to
stdout. This mirrors the teacher CLI's own local simulation mode
(test.NewNetwork), substituting the release pipeline for threshold
signing.`,
		RunE: runSimulate,
	}
)

func init() {
	simulateCmd.Flags().StringVarP(&simulateSwitchID, "switch-id", "s", "", "Switch ID (required)")
	simulateCmd.Flags().StringVar(&simulateRecipient, "recipient", "recipient-0", "Recipient ID to recover for")
	simulateCmd.MarkFlagRequired("switch-id")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	d, err := loadDescriptor(configDir, simulateSwitchID)
	if err != nil {
		return fmt.Errorf("loading descriptor: %w", err)
	}
	if d.Cancelled {
		return fmt.Errorf("switch %s is cancelled", d.SwitchID)
	}

	var recip *recipientDescriptor
	for i := range d.Recipients {
		if d.Recipients[i].ID == simulateRecipient {
			recip = &d.Recipients[i]
			break
		}
	}
	if recip == nil {
		return fmt.Errorf("unknown recipient %q", simulateRecipient)
	}

	sw, err := reconstructSwitch(d)
	if err != nil {
		return fmt.Errorf("reconstructing switch: %w", err)
	}
	sw.MarkWarning(time.Now())
	now := sw.Snapshot().Deadline.Add(time.Duration(d.GraceSeconds+1) * time.Second)
	if !sw.MarkExpired(now) {
		return fmt.Errorf("switch %s has not reached its grace deadline yet", d.SwitchID)
	}
	if err := sw.BeginReleasing(); err != nil {
		return fmt.Errorf("beginning release: %w", err)
	}

	id, err := parseSwitchID(d.SwitchID)
	if err != nil {
		return err
	}
	topic := enroll.Topic(id)
	sub := memsubstrate.New(3, 2)
	log := logger()

	recipients := []identity.Recipient{{ID: identity.RecipientID(recip.ID), SealPublicKey: recip.PublicKey}}
	graceDeadline := time.Now().Add(-time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range d.Watchers {
		w := w
		env := wire.ShareEnvelope{
			SwitchID:    id.Bytes(),
			WatcherID:   w.ID,
			ShareIndex:  w.ShareIndex,
			SealedShare: w.SealedShare,
			MAC:         w.ShareMAC,
		}
		g.Go(func() error {
			watcher := monitor.NewWatcher(watcherIDOf(w.ID), w.SealPrivateKey, w.SignPrivateKey, w.SignPublicKey, log)
			return watcher.Observe(gctx, sub, topic, id, env, recipients, 5*time.Millisecond, graceDeadline)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("watcher release phase: %w", err)
	}
	if err := sw.MarkReleased(); err != nil {
		return fmt.Errorf("marking released: %w", err)
	}

	collectCtx, collectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer collectCancel()
	releases, err := recovery.Collect(collectCtx, sub, topic, identity.RecipientID(recip.ID), d.M)
	if err != nil {
		return fmt.Errorf("collecting releases: %w", err)
	}

	plaintext, err := recovery.Assemble(context.Background(), sub, topic, recip.PrivateKey, identity.RecipientID(recip.ID), releases, d.AuthKey, d.M, &d.Payload)
	if err != nil {
		return fmt.Errorf("assembling payload: %w", err)
	}

	fmt.Printf("Recovered payload for switch %s (%d bytes):\n%s\n", d.SwitchID, len(plaintext), plaintext)
	return nil
}
