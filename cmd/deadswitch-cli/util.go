package main

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/luxfi/deadswitch/pkg/identity"
)

// switchIDBytes parses a descriptor's string switch ID back into the raw
// 16-byte form every wire record addresses itself with.
func switchIDBytes(s string) ([]byte, error) {
	id, err := parseSwitchID(s)
	if err != nil {
		return nil, err
	}
	return id.Bytes(), nil
}

// parseSwitchID parses a descriptor's string switch ID back into an
// identity.SwitchID.
func parseSwitchID(s string) (identity.SwitchID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return identity.SwitchID{}, fmt.Errorf("parsing switch id %q: %w", s, err)
	}
	return identity.SwitchID(u), nil
}

// watcherIDOf wraps a descriptor's plain-string watcher ID as the typed
// identity.WatcherID the core package expects.
func watcherIDOf(s string) identity.WatcherID {
	return identity.WatcherID(s)
}
