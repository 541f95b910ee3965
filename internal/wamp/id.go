package wamp

import "sync/atomic"

// ID is a WAMP identifier: an integer in [1, 2^53] so it round-trips
// through JSON numbers losslessly (spec.md §3 "WAMP identifiers").
type ID uint64

// MaxID is the largest JSON-safe WAMP ID (2^53).
const MaxID ID = 1 << 53

// IDGenerator allocates sequential IDs starting at 1, wrapping back to
// 1 if MaxID is ever reached. Each session owns its own generator,
// reset at session establishment (spec.md §3).
type IDGenerator struct {
	next uint64
}

// NewIDGenerator returns a generator that will hand out 1 first.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{next: 0}
}

// Next returns the next sequential ID.
func (g *IDGenerator) Next() ID {
	for {
		v := atomic.AddUint64(&g.next, 1)
		if ID(v) > MaxID {
			// Wrap back into range; extremely unlikely in practice.
			if atomic.CompareAndSwapUint64(&g.next, v, 1) {
				return ID(1)
			}
			continue
		}
		return ID(v)
	}
}

// Reset returns the generator to its initial state, as happens when a
// session is re-established.
func (g *IDGenerator) Reset() {
	atomic.StoreUint64(&g.next, 0)
}
