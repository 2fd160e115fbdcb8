package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/kdf"
	"github.com/luxfi/deadswitch/pkg/schnorr"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/substrate/memsubstrate"
	"github.com/luxfi/deadswitch/protocols/core/enroll"
)

var (
	enrollOwnerID         string
	enrollPassword        string
	enrollPayloadFile     string
	enrollWatcherCount    int
	enrollThreshold       int
	enrollRecipientCount  int
	enrollHeartbeatHours  int
	enrollGraceSeconds    int

	enrollCmd = &cobra.Command{
		Use:   "enroll",
		Short: "Seal a payload and enroll it with a set of watchers",
		Long: `enroll derives a master key from --password, seals the file at
--payload under a fresh per-switch encryption key, splits that key into
--watchers shares at threshold --threshold, and publishes a sealed Share
Envelope for each watcher. Watcher and recipient keypairs are generated
locally, since this CLI has no distributed identity service to enroll
against (local simulation mode, mirroring the teacher CLI's own
no-network fallback).`,
		RunE: runEnroll,
	}
)

func init() {
	enrollCmd.Flags().StringVarP(&enrollOwnerID, "owner", "o", "", "Owner identifier (required)")
	enrollCmd.Flags().StringVar(&enrollPassword, "password", "", "Password the master key is derived from (required)")
	enrollCmd.Flags().StringVarP(&enrollPayloadFile, "payload", "f", "", "File containing the payload to seal (required)")
	enrollCmd.Flags().IntVarP(&enrollWatcherCount, "watchers", "w", 5, "Number of watchers")
	enrollCmd.Flags().IntVarP(&enrollThreshold, "threshold", "t", 3, "Release threshold M")
	enrollCmd.Flags().IntVar(&enrollRecipientCount, "recipients", 1, "Number of recovery recipients")
	enrollCmd.Flags().IntVar(&enrollHeartbeatHours, "heartbeat-hours", 24, "Heartbeat interval in hours")
	enrollCmd.Flags().IntVar(&enrollGraceSeconds, "grace-seconds", 3600, "Grace period after deadline before expiry")
	enrollCmd.MarkFlagRequired("owner")
	enrollCmd.MarkFlagRequired("password")
	enrollCmd.MarkFlagRequired("payload")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	plaintext, err := os.ReadFile(enrollPayloadFile)
	if err != nil {
		return fmt.Errorf("reading payload file: %w", err)
	}

	id, err := identity.NewSwitchID()
	if err != nil {
		return fmt.Errorf("generating switch id: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	slowParams := kdf.DefaultSlowParams(salt)

	master, err := kdf.DeriveMaster([]byte(enrollPassword), slowParams)
	if err != nil {
		return fmt.Errorf("deriving master key: %w", err)
	}
	defer master.Destroy()

	switchKey, err := kdf.DeriveSwitchKey(master.Bytes(), id.Bytes())
	if err != nil {
		return fmt.Errorf("deriving switch key: %w", err)
	}
	defer switchKey.Destroy()

	encKey, err := kdf.DerivePurposeKey(switchKey.Bytes(), kdf.PurposeEncryption)
	if err != nil {
		return fmt.Errorf("deriving encryption key: %w", err)
	}
	defer encKey.Destroy()

	// recovery.Assemble always decrypts with nil associated data (it has no
	// side channel for whatever AD the sealer used), so encryption here
	// must match.
	sealed, err := aead.Encrypt(encKey.Bytes(), plaintext, nil)
	if err != nil {
		return fmt.Errorf("sealing payload: %w", err)
	}

	watchers := make([]identity.Watcher, enrollWatcherCount)
	watcherDescs := make([]watcherDescriptor, enrollWatcherCount)
	for i := 0; i < enrollWatcherCount; i++ {
		sealKP, err := sealedbox.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generating watcher seal keypair: %w", err)
		}
		signKP, err := schnorr.Generate()
		if err != nil {
			return fmt.Errorf("generating watcher sign keypair: %w", err)
		}
		wid := identity.WatcherID(fmt.Sprintf("watcher-%d", i))
		watchers[i] = identity.Watcher{ID: wid, SealPublicKey: sealKP.Public, SignPublicKey: signKP.PublicKey}
		watcherDescs[i] = watcherDescriptor{
			ID:             string(wid),
			SealPrivateKey: sealKP.Private,
			SealPublicKey:  sealKP.Public,
			SignPrivateKey: append([]byte(nil), signKP.PrivateKey.Bytes()...),
			SignPublicKey:  signKP.PublicKey,
		}
	}

	recipientDescs := make([]recipientDescriptor, enrollRecipientCount)
	for i := 0; i < enrollRecipientCount; i++ {
		kp, err := sealedbox.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generating recipient keypair: %w", err)
		}
		recipientDescs[i] = recipientDescriptor{
			ID:         fmt.Sprintf("recipient-%d", i),
			PrivateKey: kp.Private,
			PublicKey:  kp.Public,
		}
	}

	ownerSignKP, err := schnorr.Generate()
	if err != nil {
		return fmt.Errorf("generating owner signing keypair: %w", err)
	}

	sub := memsubstrate.New(3, 2)
	result, err := enroll.Enroll(context.Background(), sub, id, encKey.Bytes(), watchers, enrollThreshold)
	if err != nil {
		return fmt.Errorf("enrolling watchers: %w", err)
	}
	for i, env := range result.Envelopes {
		watcherDescs[i].ShareIndex = env.ShareIndex
		watcherDescs[i].SealedShare = env.SealedShare
		watcherDescs[i].ShareMAC = env.MAC
	}

	d := &descriptor{
		SwitchID:               id.String(),
		OwnerID:                enrollOwnerID,
		N:                      enrollWatcherCount,
		M:                      enrollThreshold,
		HeartbeatIntervalHours: enrollHeartbeatHours,
		GraceSeconds:           enrollGraceSeconds,
		Payload:                *sealed,
		OwnerSignPrivate:       append([]byte(nil), ownerSignKP.PrivateKey.Bytes()...),
		OwnerSignPublic:        ownerSignKP.PublicKey,
		AuthKey:                append([]byte(nil), result.AuthKey.Bytes()...),
		Watchers:               watcherDescs,
		Recipients:             recipientDescs,
		Counter:                0,
		CreatedAtUnix:          time.Now().Unix(),
		LastHeartbeatAtUnix:    time.Now().Unix(),
	}
	result.AuthKey.Destroy()

	path, err := saveDescriptor(configDir, d)
	if err != nil {
		return fmt.Errorf("saving descriptor: %w", err)
	}

	fmt.Printf("Switch enrolled: %s\n", d.SwitchID)
	fmt.Printf("Descriptor saved to: %s\n", path)
	fmt.Printf("Watchers: %d, threshold: %d, recipients: %d\n", d.N, d.M, len(d.Recipients))
	return nil
}
