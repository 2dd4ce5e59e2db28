package obs

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// TraceGenerator creates trace IDs that follow an event from the feed
// through apply, republish and the journal. IDs carry a per-process tag
// in the high 16 bits so streams recorded by different engine runs stay
// distinguishable when journals are replayed together.
type TraceGenerator struct {
	tag  uint64
	next uint64
}

// NewTraceGenerator returns a generator seeded with the given value. A
// zero seed picks a random process tag and a wall-clock counter base.
func NewTraceGenerator(seed uint64) *TraceGenerator {
	if seed == 0 {
		return &TraceGenerator{
			tag:  uint64(rand.Uint32()&0xFFFF) << 48,
			next: uint64(time.Now().UTC().UnixNano()) & traceCounterMask,
		}
	}
	return &TraceGenerator{
		tag:  (seed & 0xFFFF) << 48,
		next: seed & traceCounterMask,
	}
}

const traceCounterMask = (uint64(1) << 48) - 1

// Next returns the next trace ID.
func (g *TraceGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return g.tag | (atomic.AddUint64(&g.next, 1) & traceCounterMask)
}
