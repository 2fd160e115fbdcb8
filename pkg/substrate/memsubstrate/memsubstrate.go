// Package memsubstrate is an in-memory, in-process Substrate used by tests
// and by the CLI's simulate subcommand (mirroring the teacher's
// cmd/threshold-cli/simulations.go in-process simulation harness). It
// models a fixed number of independent nodes, publishes to all of them,
// and requires at least minFanout acknowledging nodes before a Publish
// call succeeds — exercising the same "durability floor" contract a real
// substrate would need to satisfy.
package memsubstrate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/substrate"
	"github.com/luxfi/deadswitch/pkg/wire"
)

type node struct {
	mu      sync.Mutex
	records map[substrate.Topic][]wire.SignedRecord
	subs    map[chan wire.SignedRecord]substrate.Filter
	healthy bool
}

func newNode() *node {
	return &node{
		records: make(map[substrate.Topic][]wire.SignedRecord),
		subs:    make(map[chan wire.SignedRecord]substrate.Filter),
		healthy: true,
	}
}

func (n *node) publish(topic substrate.Topic, rec wire.SignedRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.healthy {
		return dserr.New("memsubstrate.publish", dserr.KindSubstrateUnavailable)
	}
	n.records[topic] = append(n.records[topic], rec)
	for ch, f := range n.subs {
		if f.Topic == topic && (f.Kind == nil || *f.Kind == rec.Kind) {
			select {
			case ch <- rec:
			default:
			}
		}
	}
	return nil
}

// Substrate fans a publish out to every node and requires minFanout
// successful acknowledgements, retrying individual node failures with
// bounded exponential backoff before giving up on that node.
type Substrate struct {
	nodes       []*node
	minFanout   int
	maxAttempts int
	baseBackoff time.Duration
}

// New creates a Substrate backed by nodeCount independent in-memory nodes,
// requiring minFanout of them to accept each publish.
func New(nodeCount, minFanout int) *Substrate {
	nodes := make([]*node, nodeCount)
	for i := range nodes {
		nodes[i] = newNode()
	}
	return &Substrate{nodes: nodes, minFanout: minFanout, maxAttempts: 3, baseBackoff: 10 * time.Millisecond}
}

// SetNodeHealthy flips a node's availability, for tests exercising
// SubstrateUnavailable and partial-fanout scenarios.
func (s *Substrate) SetNodeHealthy(i int, healthy bool) {
	s.nodes[i].mu.Lock()
	s.nodes[i].healthy = healthy
	s.nodes[i].mu.Unlock()
}

// Publish implements substrate.Substrate.
func (s *Substrate) Publish(ctx context.Context, topic substrate.Topic, rec wire.SignedRecord) error {
	var successCount int32
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, n := range s.nodes {
		n := n
		g.Go(func() error {
			err := s.publishWithRetry(ctx, n, topic, rec)
			if err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
			return nil // individual node failure does not abort siblings
		})
	}
	_ = g.Wait()

	if int(successCount) < s.minFanout {
		return dserr.New("memsubstrate.Publish", dserr.KindSubstrateUnavailable)
	}
	return nil
}

func (s *Substrate) publishWithRetry(ctx context.Context, n *node, topic substrate.Topic, rec wire.SignedRecord) error {
	backoff := s.baseBackoff
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.publish(topic, rec); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return lastErr
}

// Subscribe implements substrate.Substrate, aggregating across every node
// (a subscriber does not know or care which node a record landed on).
func (s *Substrate) Subscribe(ctx context.Context, filter substrate.Filter) (<-chan wire.SignedRecord, error) {
	out := make(chan wire.SignedRecord, 64)
	perNode := make([]chan wire.SignedRecord, len(s.nodes))

	for i, n := range s.nodes {
		ch := make(chan wire.SignedRecord, 64)
		perNode[i] = ch
		n.mu.Lock()
		n.subs[ch] = filter
		for _, existing := range n.records[filter.Topic] {
			if filter.Kind == nil || *filter.Kind == existing.Kind {
				select {
				case ch <- existing:
				default:
				}
			}
		}
		n.mu.Unlock()
	}

	go func() {
		defer close(out)
		var wg sync.WaitGroup
		for i, ch := range perNode {
			i, ch := i, ch
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-ctx.Done():
						s.nodes[i].mu.Lock()
						delete(s.nodes[i].subs, ch)
						s.nodes[i].mu.Unlock()
						return
					case rec, ok := <-ch:
						if !ok {
							return
						}
						select {
						case out <- rec:
						case <-ctx.Done():
							return
						}
					}
				}
			}()
		}
		wg.Wait()
	}()

	return out, nil
}
