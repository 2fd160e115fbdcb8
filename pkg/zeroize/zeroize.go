// Package zeroize provides scoped key material that is unconditionally
// overwritten with zeros when released. Every derived key, password, and
// intermediate share in this module is held in a Key and destroyed with
// defer immediately after its last use.
package zeroize

import "sync"

// Key wraps a byte slice of secret material. Bytes returns the live slice
// for immediate use; Destroy overwrites it with zeros and makes further
// reads return nil. Key is safe to Destroy more than once.
type Key struct {
	mu   sync.Mutex
	b    []byte
	dead bool
}

// New wraps b in a Key. The caller must not retain b after this call; all
// access should go through the returned Key.
func New(b []byte) *Key {
	return &Key{b: b}
}

// Bytes returns the underlying secret bytes, or nil if Destroy has run.
func (k *Key) Bytes() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.dead {
		return nil
	}
	return k.b
}

// Len reports the length of the wrapped material, 0 once destroyed.
func (k *Key) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.dead {
		return 0
	}
	return len(k.b)
}

// Destroy overwrites the wrapped bytes with zeros. Safe to call from a
// defer on every path, including error returns.
func (k *Key) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.dead {
		return
	}
	for i := range k.b {
		k.b[i] = 0
	}
	k.dead = true
}

// Wipe zeroes an arbitrary slice in place, for intermediate buffers that
// never get wrapped in a Key (e.g. a polynomial's coefficient table).
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
