// Package substrate defines the abstract publish/subscribe transport the
// core depends on, per spec.md §6: eventual delivery to subscribers,
// durability floor K_min, rejection of malformed envelopes. The core never
// assumes a specific broadcast network; concrete transports (the real
// substrate's peer-discovery and storage) are explicitly out of scope
// (spec.md §1) and live outside this module.
package substrate

import (
	"context"

	"github.com/luxfi/deadswitch/pkg/wire"
)

// Topic scopes a publish/subscribe stream; one topic per switch
// ("deadswitch/<switch-id>", see enroll.Topic) carries every record kind,
// and subscribers select kinds through Filter.Kind.
type Topic string

// Filter selects which records a Subscribe call is interested in.
type Filter struct {
	Topic Topic
	Kind  *wire.Kind // nil means "any kind on this topic"
}

// Substrate is the minimal publish/subscribe contract every participant
// (owner, watcher, recipient, monitor) programs against.
type Substrate interface {
	// Publish delivers rec under topic. Implementations are expected to
	// retry with backoff internally and surface SubstrateUnavailable
	// (pkg/dserr) only once persistent.
	Publish(ctx context.Context, topic Topic, rec wire.SignedRecord) error

	// Subscribe returns a channel of records matching filter. The channel
	// is closed when ctx is cancelled. Delivery order across distinct
	// publishers is not guaranteed.
	Subscribe(ctx context.Context, filter Filter) (<-chan wire.SignedRecord, error)
}
