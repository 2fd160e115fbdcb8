// Package config loads the environment options enumerated in spec.md §6.
// It follows the teacher CLI's shape (cmd/threshold-cli/main.go): a struct
// populated from a JSON file. cmd/deadswitch-cli does not read it; its
// subcommands take their options from their own flags.
package config

import (
	"encoding/json"
	"os"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/identity"
)

// Config holds every enumerated option from spec.md §6.
type Config struct {
	HeartbeatIntervalHours int      `json:"heartbeat_interval_hours"`
	GraceSeconds           int      `json:"grace_seconds"`
	SubstrateEndpoints     []string `json:"substrate_endpoints"`
	MinSubstrateFanout     int      `json:"min_substrate_fanout"`
	KDFIterations          uint32   `json:"kdf_iterations"`
	ReminderThresholdsHrs  []int    `json:"reminder_thresholds_hours"`
	WatcherMonitorInterval int      `json:"watcher_monitor_interval_seconds"`

	// ProductionMode gates the deployment-time watcher-key check of
	// spec.md §9: true in any environment expected to actually release
	// payloads, false only for local simulation/test runs.
	ProductionMode bool `json:"production_mode"`

	// WatcherKeys lists the configured watchers; in ProductionMode every
	// entry's SignPublicKey/SealPublicKey must be non-placeholder.
	WatcherKeys []identity.Watcher `json:"-"`
}

// Default returns sane non-production defaults.
func Default() *Config {
	return &Config{
		HeartbeatIntervalHours: 24,
		GraceSeconds:           0,
		MinSubstrateFanout:     7,
		KDFIterations:          600_000,
		ReminderThresholdsHrs:  []int{24, 6, 1},
		WatcherMonitorInterval: 300,
		ProductionMode:         false,
	}
}

// Load reads a JSON config file and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, dserr.Wrap("config.Load", dserr.KindInvalidParameters, err)
	}
	c := Default()
	if err := json.Unmarshal(b, c); err != nil {
		return nil, dserr.Wrap("config.Load", dserr.KindInvalidParameters, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces spec.md §6's numeric floors and, in production mode,
// the watcher-key deployment check called out in spec.md §9: an
// implementation must refuse to run in production mode with unconfigured
// (placeholder/all-zero) watcher keys. This is a startup-time check, not a
// runtime decision by any protocol component.
func (c *Config) Validate() error {
	if c.HeartbeatIntervalHours < 1 {
		return dserr.New("config.Validate", dserr.KindInvalidParameters)
	}
	if c.GraceSeconds < 0 {
		return dserr.New("config.Validate", dserr.KindInvalidParameters)
	}
	if c.MinSubstrateFanout < 1 {
		return dserr.New("config.Validate", dserr.KindInvalidParameters)
	}
	if c.KDFIterations < 600_000 {
		return dserr.New("config.Validate", dserr.KindInvalidParameters)
	}

	if c.ProductionMode {
		if len(c.WatcherKeys) == 0 {
			return dserr.New("config.Validate", dserr.KindInvalidParameters)
		}
		for _, w := range c.WatcherKeys {
			if isZeroKey(w.SealPublicKey[:]) || isZeroKey(w.SignPublicKey[:]) {
				return dserr.New("config.Validate", dserr.KindInvalidParameters)
			}
		}
	}
	return nil
}

func isZeroKey(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
