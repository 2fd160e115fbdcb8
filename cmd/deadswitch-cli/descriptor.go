package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
)

// descriptor is the on-disk artifact a CLI invocation of enroll produces
// and every later subcommand reads back: everything a local operator
// needs to drive the pipeline by hand, serialized as JSON (the teacher
// CLI's own persistence format for its *.json config files). This CLI has
// no standing distributed substrate to persist state on, so the
// descriptor doubles as the single source of truth between invocations.
type descriptor struct {
	SwitchID               string              `json:"switch_id"`
	OwnerID                string              `json:"owner_id"`
	N                      int                 `json:"n"`
	M                      int                 `json:"m"`
	HeartbeatIntervalHours int                 `json:"heartbeat_interval_hours"`
	GraceSeconds           int                 `json:"grace_seconds"`
	Payload                aead.Sealed         `json:"payload"`
	OwnerSignPrivate       []byte              `json:"owner_sign_private"`
	OwnerSignPublic        [33]byte            `json:"owner_sign_public"`
	AuthKey                []byte              `json:"auth_key"`
	Watchers               []watcherDescriptor `json:"watchers"`
	Recipients             []recipientDescriptor `json:"recipients"`
	Counter                uint64              `json:"counter"`
	CreatedAtUnix          int64               `json:"created_at_unix"`
	LastHeartbeatAtUnix    int64               `json:"last_heartbeat_at_unix"`
	Cancelled              bool                `json:"cancelled"`
}

// recipientDescriptor is a recovery recipient the owner provisioned at
// enroll time, keypair generated locally since this CLI has no real
// distributed-identity service to fetch one from.
type recipientDescriptor struct {
	ID         string                         `json:"id"`
	PrivateKey [sealedbox.PrivateKeySize]byte `json:"private_key"`
	PublicKey  [sealedbox.PublicKeySize]byte  `json:"public_key"`
}

type watcherDescriptor struct {
	ID             string                         `json:"id"`
	ShareIndex     uint8                          `json:"share_index"`
	SealedShare    []byte                         `json:"sealed_share"`
	ShareMAC       []byte                         `json:"share_mac"`
	SealPrivateKey [sealedbox.PrivateKeySize]byte `json:"seal_private_key"`
	SealPublicKey  [sealedbox.PublicKeySize]byte  `json:"seal_public_key"`
	SignPrivateKey []byte                         `json:"sign_private_key"`
	SignPublicKey  [33]byte                       `json:"sign_public_key"`
}

func descriptorPath(dir, switchID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.json", switchID))
}

func saveDescriptor(dir string, d *descriptor) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	path := descriptorPath(dir, d.SwitchID)
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing descriptor: %w", err)
	}
	return path, nil
}

func loadDescriptor(dir, switchID string) (*descriptor, error) {
	data, err := os.ReadFile(descriptorPath(dir, switchID))
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshaling descriptor: %w", err)
	}
	return &d, nil
}
