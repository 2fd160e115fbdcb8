// Package enroll implements the Enrollment component of spec.md §4.7:
// splitting the owner's payload key into per-watcher shares, sealing each
// to its watcher's public key, and publishing the resulting envelopes to
// the substrate.
package enroll

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/shamir"
	"github.com/luxfi/deadswitch/pkg/substrate"
	"github.com/luxfi/deadswitch/pkg/wire"
	"github.com/luxfi/deadswitch/pkg/zeroize"
	"github.com/luxfi/deadswitch/protocols/core"
)

// Topic returns the substrate topic an individual switch's records are
// published under and subscribed to on.
func Topic(id identity.SwitchID) substrate.Topic {
	return substrate.Topic("deadswitch/" + id.String())
}

// Result is what a successful enrollment produces: the shares' MAC
// authentication key (needed later by the recovery assembler to verify
// released shares) and the envelopes actually published.
type Result struct {
	AuthKey   *zeroize.Key
	Envelopes []wire.ShareEnvelope
}

// Enroll splits payloadKey into len(watchers) shares at threshold m,
// seals each to its watcher, and publishes the resulting ShareEnvelope
// records, returning once every envelope has been accepted by the
// substrate (or failing on the first publish error). The envelopes
// themselves carry no owner signature: a watcher's authority to release
// comes from possessing a verified share, not from an owner attestation,
// so there is nothing here for schnorr.Sign to usefully cover.
func Enroll(ctx context.Context, sub substrate.Substrate, id identity.SwitchID, payloadKey []byte, watchers []identity.Watcher, m int) (*Result, error) {
	if len(watchers) < 2 {
		return nil, dserr.New("enroll.Enroll", dserr.KindInvalidParameters)
	}

	split, err := shamir.Split(payloadKey, len(watchers), m, true)
	if err != nil {
		return nil, err
	}

	envelopes := make([]wire.ShareEnvelope, len(watchers))
	g, gctx := errgroup.WithContext(ctx)
	topic := Topic(id)

	for i, w := range watchers {
		i, w := i, w
		share := split.Shares[i]
		g.Go(func() error {
			sealed, err := sealedbox.Seal(w.SealPublicKey, share.Y)
			if err != nil {
				return err
			}

			env := wire.ShareEnvelope{
				SwitchID:       id.Bytes(),
				WatcherID:      string(w.ID),
				ShareIndex:     share.Index,
				SealedShare:    sealed,
				MAC:            share.MAC,
				HasCommitments: split.Commitments != nil,
			}
			if split.Commitments != nil {
				env.Commitments = split.Commitments.Commitments
			}

			rec, err := wire.Encode(wire.KindShareEnvelope, env)
			if err != nil {
				return err
			}
			if err := sub.Publish(gctx, topic, rec); err != nil {
				return err
			}

			envelopes[i] = env
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		split.AuthKey.Destroy()
		return nil, err
	}

	return &Result{AuthKey: split.AuthKey, Envelopes: envelopes}, nil
}

// WatchersToRefs converts enrolled watchers and their assigned shares
// into the Switch aggregate's locally-persisted references.
func WatchersToRefs(watchers []identity.Watcher, envelopes []wire.ShareEnvelope) []core.ShareEnvelopeRef {
	refs := make([]core.ShareEnvelopeRef, len(watchers))
	for i, w := range watchers {
		refs[i] = core.ShareEnvelopeRef{WatcherID: w.ID, ShareIndex: envelopes[i].ShareIndex}
	}
	return refs
}

// AwaitEnvelopeAcks blocks until every watcher's envelope has appeared on
// the substrate (observed via Subscribe), or ctx is done. This models
// spec.md §4.7's optional ACK-wait step for deployments that want enroll
// to fail fast rather than silently leave a watcher un-provisioned.
func AwaitEnvelopeAcks(ctx context.Context, sub substrate.Substrate, id identity.SwitchID, want int) error {
	kind := wire.KindShareEnvelope
	ch, err := sub.Subscribe(ctx, substrate.Filter{Topic: Topic(id), Kind: &kind})
	if err != nil {
		return err
	}

	seen := make(map[uint8]bool)
	deadline := time.NewTimer(30 * time.Second)
	defer deadline.Stop()

	for len(seen) < want {
		select {
		case rec, ok := <-ch:
			if !ok {
				return dserr.New("enroll.AwaitEnvelopeAcks", dserr.KindSubstrateUnavailable)
			}
			env, err := wire.DecodeShareEnvelope(rec)
			if err != nil {
				continue
			}
			seen[env.ShareIndex] = true
		case <-deadline.C:
			return dserr.New("enroll.AwaitEnvelopeAcks", dserr.KindTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
