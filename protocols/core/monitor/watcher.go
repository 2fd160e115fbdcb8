package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/identity"
	"github.com/luxfi/deadswitch/pkg/schnorr"
	"github.com/luxfi/deadswitch/pkg/sealedbox"
	"github.com/luxfi/deadswitch/pkg/substrate"
	"github.com/luxfi/deadswitch/pkg/wire"
	"github.com/luxfi/deadswitch/pkg/xlog"
	"github.com/luxfi/deadswitch/protocols/core/heartbeat"
)

// Watcher is one watcher daemon's view of a single switch: it holds the
// private key matching the sealed share it was enrolled with, watches
// the substrate for heartbeats, and — once its own clock has observed
// expiry with no newer heartbeat — publishes exactly one Release Record
// (spec.md §4.8's per-(switch,watcher) idempotency).
type Watcher struct {
	ID             identity.WatcherID
	PrivateKey     [sealedbox.PrivateKeySize]byte
	SignPrivateKey []byte
	SignPublicKey  [33]byte

	mu        sync.Mutex
	published map[identity.SwitchID]bool

	log *xlog.Logger
}

// NewWatcher constructs a Watcher daemon for a single watcher identity.
func NewWatcher(id identity.WatcherID, sealPrivateKey [sealedbox.PrivateKeySize]byte, signPrivateKey []byte, signPublicKey [33]byte, log *xlog.Logger) *Watcher {
	return &Watcher{
		ID:             id,
		PrivateKey:     sealPrivateKey,
		SignPrivateKey: signPrivateKey,
		SignPublicKey:  signPublicKey,
		published:      make(map[identity.SwitchID]bool),
		log:            log.Module("watcher").With("watcher_id", string(id)),
	}
}

// Observe runs the per-switch watch loop: it tracks the authoritative
// heartbeat for id via a heartbeat.Log, and when graceDeadline passes
// with no heartbeat timestamped after graceDeadline, unseals its own envelope,
// reseals the share per recipient, and publishes one Release Record.
// It stops trying once it observes a Cancellation (spec.md §4.8 S5): the
// watcher itself need not retract anything on the wire, since the
// recovery assembler always checks for a Cancellation before trusting
// any Release Records it has collected.
func (w *Watcher) Observe(ctx context.Context, sub substrate.Substrate, topic substrate.Topic, id identity.SwitchID, env wire.ShareEnvelope, recipients []identity.Recipient, pollInterval time.Duration, graceDeadline time.Time) error {
	hlog := heartbeat.NewLog()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	hbKind := wire.KindHeartbeat
	hbCh, err := sub.Subscribe(ctx, substrate.Filter{Topic: topic, Kind: &hbKind})
	if err != nil {
		return err
	}
	cancelKind := wire.KindCancellation
	cancelCh, err := sub.Subscribe(ctx, substrate.Filter{Topic: topic, Kind: &cancelKind})
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-hbCh:
			h, err := wire.DecodeHeartbeat(rec)
			if err != nil {
				continue
			}
			if _, err := hlog.Accept(h, time.Now()); err != nil {
				w.log.Warn("rejected heartbeat", "error", err.Error())
			}
		case <-cancelCh:
			return nil
		case now := <-ticker.C:
			if now.Before(graceDeadline) {
				continue
			}
			if latest, ok := hlog.Latest(); ok && time.Unix(latest.Timestamp, 0).After(graceDeadline) {
				continue // a heartbeat newer than the grace deadline defeats release
			}
			if err := w.publishRelease(ctx, sub, topic, id, env, recipients); err != nil {
				return err
			}
			return nil
		}
	}
}

func (w *Watcher) publishRelease(ctx context.Context, sub substrate.Substrate, topic substrate.Topic, id identity.SwitchID, env wire.ShareEnvelope, recipients []identity.Recipient) error {
	w.mu.Lock()
	if w.published[id] {
		w.mu.Unlock()
		return nil
	}
	w.published[id] = true
	w.mu.Unlock()

	ownShare, err := sealedbox.Open(w.PrivateKey, env.SealedShare)
	if err != nil {
		return dserr.Wrap("watcher.publishRelease", dserr.KindAuthenticationFailed, err)
	}

	perRecipient := make([]wire.RecipientShare, len(recipients))
	for i, r := range recipients {
		sealed, err := sealedbox.Seal(r.SealPublicKey, ownShare)
		if err != nil {
			return err
		}
		perRecipient[i] = wire.RecipientShare{RecipientID: string(r.ID), SealedShare: sealed}
	}

	rel := wire.Release{
		SwitchID:     id.Bytes(),
		WatcherID:    string(w.ID),
		ShareIndex:   env.ShareIndex,
		ShareMAC:     env.MAC,
		PerRecipient: perRecipient,
		Timestamp:    time.Now().Unix(),
		Signer:       w.SignPublicKey,
	}
	digest := schnorr.Hash(releaseSigningBytes(rel))
	sig, err := schnorr.Sign(w.SignPrivateKey, digest)
	if err != nil {
		return err
	}
	rel.Signature = sig

	rec, err := wire.Encode(wire.KindRelease, rel)
	if err != nil {
		return err
	}
	return sub.Publish(ctx, topic, rec)
}

func releaseSigningBytes(r wire.Release) []byte {
	buf := make([]byte, 0, len(r.SwitchID)+len(r.WatcherID)+1+len(r.ShareMAC))
	buf = append(buf, r.SwitchID...)
	buf = append(buf, []byte(r.WatcherID)...)
	buf = append(buf, r.ShareIndex)
	buf = append(buf, r.ShareMAC...)
	for _, pr := range r.PerRecipient {
		buf = append(buf, []byte(pr.RecipientID)...)
		buf = append(buf, pr.SealedShare...)
	}
	return buf
}
