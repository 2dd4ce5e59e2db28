package obs

import (
	"sync/atomic"
	"time"

	"main/internal/schema"
)

const maxEventType = int(schema.EventBookSnapshot)

// Metrics collects lightweight counters and latency stats for the data
// engine. All methods are safe on a nil receiver so call sites do not
// guard.
type Metrics struct {
	eventCounts [maxEventType + 1]uint64

	deltasApplied      uint64
	depthApplied       uint64
	snapshotsPublished uint64
	integrityFailures  uint64
	queueDrops         uint64
	queueClosed        uint64

	eventLatency    LatencyStats
	applyLatency    LatencyStats
	snapshotLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts        map[schema.EventType]uint64
	DeltasApplied      uint64
	DepthApplied       uint64
	SnapshotsPublished uint64
	IntegrityFailures  uint64
	QueueDrops         uint64
	QueueClosed        uint64
	EventLatency       LatencySnapshot
	ApplyLatency       LatencySnapshot
	SnapshotLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent increments counters and tracks feed-to-engine latency
// when both timestamps are present.
func (m *Metrics) ObserveEvent(header schema.EventHeader) {
	if m == nil {
		return
	}
	idx := int(header.Type)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if header.TsEvent > 0 && header.TsRecv > 0 {
		delta := header.TsRecv - header.TsEvent
		if delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta))
		}
	}
}

// IncDeltasApplied records n deltas applied to a book.
func (m *Metrics) IncDeltasApplied(n int) {
	if m == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&m.deltasApplied, uint64(n))
}

// IncDepthApplied records one depth snapshot applied to a book.
func (m *Metrics) IncDepthApplied() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.depthApplied, 1)
}

// IncSnapshotPublished records one book snapshot published to the bus.
func (m *Metrics) IncSnapshotPublished() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.snapshotsPublished, 1)
}

// IncIntegrityFailure records one failed book integrity check.
func (m *Metrics) IncIntegrityFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.integrityFailures, 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveApply measures book apply latency.
func (m *Metrics) ObserveApply(d time.Duration) {
	if m == nil {
		return
	}
	m.applyLatency.Observe(d)
}

// ObserveSnapshot measures snapshot build + publish latency.
func (m *Metrics) ObserveSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventType]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventType(i)] = v
		}
	}
	return Snapshot{
		EventCounts:        eventCounts,
		DeltasApplied:      atomic.LoadUint64(&m.deltasApplied),
		DepthApplied:       atomic.LoadUint64(&m.depthApplied),
		SnapshotsPublished: atomic.LoadUint64(&m.snapshotsPublished),
		IntegrityFailures:  atomic.LoadUint64(&m.integrityFailures),
		QueueDrops:         atomic.LoadUint64(&m.queueDrops),
		QueueClosed:        atomic.LoadUint64(&m.queueClosed),
		EventLatency:       m.eventLatency.Snapshot(),
		ApplyLatency:       m.applyLatency.Snapshot(),
		SnapshotLatency:    m.snapshotLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
