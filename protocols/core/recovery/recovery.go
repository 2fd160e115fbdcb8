// Package recovery implements the Recovery Assembler of spec.md §4.9:
// once a switch has expired, watchers publish Release records carrying
// their share sealed individually to each configured recipient. A
// recipient collects at least M distinct Release records, unseals and
// authenticates each share concurrently, interpolates the payload key,
// decrypts the sealed payload, and zeroizes every intermediate key the
// moment it is no longer needed.
package recovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deadswitch/pkg/aead"
	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/shamir"
	"github.com/luxfi/deadswitch/pkg/substrate"
	"github.com/luxfi/deadswitch/pkg/wire"
	"github.com/luxfi/deadswitch/pkg/zeroize"
)

// Collect watches the switch's topic for Release records addressed to
// recipientID, up to a bounded count, returning once it has want distinct
// share indices or ctx is done.
func Collect(ctx context.Context, sub substrate.Substrate, topic substrate.Topic, recipientID identity.RecipientID, want int) ([]wire.Release, error) {
	kind := wire.KindRelease
	ch, err := sub.Subscribe(ctx, substrate.Filter{Topic: topic, Kind: &kind})
	if err != nil {
		return nil, err
	}

	byIndex := make(map[uint8]wire.Release)
	for len(byIndex) < want {
		select {
		case rec, ok := <-ch:
			if !ok {
				break
			}
			rel, err := wire.DecodeRelease(rec)
			if err != nil {
				continue
			}
			if !addressedTo(rel, recipientID) {
				continue
			}
			byIndex[rel.ShareIndex] = rel
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]wire.Release, 0, len(byIndex))
	for _, r := range byIndex {
		out = append(out, r)
	}
	return out, nil
}

// Cancelled does a bounded check for a Cancellation record on the switch's
// topic, waiting at most cancelCheckWait for one to be delivered. A
// recipient must honor a Cancellation even if it already collected M+
// Release Records published before the cancellation (spec.md §8 scenario
// S5): recovery never completes for a cancelled switch, regardless of how
// many shares are in hand.
func Cancelled(ctx context.Context, sub substrate.Substrate, topic substrate.Topic) (bool, error) {
	kind := wire.KindCancellation
	ch, err := sub.Subscribe(ctx, substrate.Filter{Topic: topic, Kind: &kind})
	if err != nil {
		return false, err
	}
	timer := time.NewTimer(cancelCheckWait)
	defer timer.Stop()
	select {
	case rec, ok := <-ch:
		if !ok {
			return false, nil
		}
		_, err := wire.DecodeCancellation(rec)
		return err == nil, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// cancelCheckWait bounds how long Cancelled waits for the subscription to
// deliver an already-published Cancellation record.
const cancelCheckWait = 100 * time.Millisecond

func addressedTo(rel wire.Release, recipientID identity.RecipientID) bool {
	for _, pr := range rel.PerRecipient {
		if pr.RecipientID == string(recipientID) {
			return true
		}
	}
	return false
}

// unsealedShare pairs a verified share with any error encountered while
// processing its record, so Assemble can report per-share failures
// without aborting siblings still in flight.
type unsealedShare struct {
	share shamir.Share
	err   error
}

// Assemble unseals, authenticates and interpolates a payload key from at
// least m Release records, then decrypts the sealed payload with it.
// Unsealing and authentication happen concurrently across all releases;
// interpolation only proceeds once enough verified shares are in hand.
func Assemble(ctx context.Context, sub substrate.Substrate, topic substrate.Topic, recipientPrivateKey [sealedbox.PrivateKeySize]byte, recipientID identity.RecipientID, releases []wire.Release, authKey []byte, m int, payload *aead.Sealed) ([]byte, error) {
	if cancelled, err := Cancelled(ctx, sub, topic); err != nil {
		return nil, err
	} else if cancelled {
		return nil, dserr.New("recovery.Assemble", dserr.KindInsufficientShares)
	}

	if len(releases) < m {
		return nil, dserr.New("recovery.Assemble", dserr.KindInsufficientShares)
	}

	results := make([]unsealedShare, len(releases))
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, rel := range releases {
		i, rel := i, rel
		g.Go(func() error {
			y, sealErr := unsealFor(recipientPrivateKey, recipientID, rel)
			mu.Lock()
			defer mu.Unlock()
			if sealErr != nil {
				results[i] = unsealedShare{err: sealErr}
				return nil
			}
			results[i] = unsealedShare{share: shamir.Share{Index: rel.ShareIndex, Y: y, MAC: rel.ShareMAC}}
			return nil
		})
	}
	_ = g.Wait()

	shares := make([]shamir.Share, 0, len(results))
	for _, r := range results {
		if r.err == nil && r.share.Y != nil {
			shares = append(shares, r.share)
		}
	}

	secret, verifyErrs := shamir.Combine(shares, authKey, m)
	if secret == nil {
		if len(verifyErrs) > 0 {
			return nil, verifyErrs[len(verifyErrs)-1]
		}
		return nil, dserr.New("recovery.Assemble", dserr.KindInsufficientShares)
	}
	key := zeroize.New(secret)
	defer key.Destroy()

	return aead.Decrypt(key.Bytes(), payload, nil)
}

func unsealFor(recipientPrivateKey [sealedbox.PrivateKeySize]byte, recipientID identity.RecipientID, rel wire.Release) ([]byte, error) {
	for _, pr := range rel.PerRecipient {
		if pr.RecipientID != string(recipientID) {
			continue
		}
		return sealedbox.Open(recipientPrivateKey, pr.SealedShare)
	}
	return nil, dserr.New("recovery.unsealFor", dserr.KindInvalidParameters)
}
