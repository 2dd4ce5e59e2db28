package data

import (
	"fmt"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/cache"
	"main/internal/obs"
	"main/internal/schema"
)

// BookUpdater applies incoming book events to the cached books. It runs
// on the data engine's goroutine only.
type BookUpdater struct {
	cache          *cache.Cache
	metrics        *obs.Metrics
	checkIntegrity bool
}

// NewBookUpdater creates an updater over the cache. When checkIntegrity
// is set every applied event is followed by a structural check; failures
// are logged and counted but never block the feed.
func NewBookUpdater(c *cache.Cache, metrics *obs.Metrics, checkIntegrity bool) *BookUpdater {
	return &BookUpdater{cache: c, metrics: metrics, checkIntegrity: checkIntegrity}
}

// Apply routes one event to its book and returns the updated book. The
// payload set is closed: anything outside it is a wiring defect.
func (u *BookUpdater) Apply(e bus.Event) (*book.OrderBook, error) {
	started := time.Now()

	var (
		b   *book.OrderBook
		err error
	)
	switch payload := e.Payload.(type) {
	case schema.OrderBookDelta:
		b, err = u.applyDelta(payload)
	case schema.OrderBookDeltas:
		b, err = u.applyDeltas(payload)
	case schema.OrderBookDepth10:
		b, err = u.applyDepth(payload)
	default:
		return nil, fmt.Errorf("data: unhandled payload type %T", e.Payload)
	}
	if err != nil {
		return nil, err
	}

	u.metrics.ObserveApply(time.Since(started))

	if u.checkIntegrity {
		if integrityErr := book.CheckIntegrity(b); integrityErr != nil {
			u.metrics.IncIntegrityFailure()
			logs.Errorf("book integrity check failed (instrument_id=%d): %v",
				b.InstrumentID, integrityErr)
		}
	}
	return b, nil
}

func (u *BookUpdater) applyDelta(delta schema.OrderBookDelta) (*book.OrderBook, error) {
	b, err := u.cache.OrderBook(delta.InstrumentID)
	if err != nil {
		return nil, fmt.Errorf("data: delta for unknown book %d: %w", delta.InstrumentID, err)
	}
	if err := b.ApplyDelta(delta); err != nil {
		return nil, err
	}
	u.metrics.IncDeltasApplied(1)
	return b, nil
}

func (u *BookUpdater) applyDeltas(deltas schema.OrderBookDeltas) (*book.OrderBook, error) {
	b, err := u.cache.OrderBook(deltas.InstrumentID)
	if err != nil {
		return nil, fmt.Errorf("data: deltas for unknown book %d: %w", deltas.InstrumentID, err)
	}
	if err := b.ApplyDeltas(deltas); err != nil {
		return nil, err
	}
	u.metrics.IncDeltasApplied(len(deltas.Deltas))
	return b, nil
}

func (u *BookUpdater) applyDepth(depth schema.OrderBookDepth10) (*book.OrderBook, error) {
	b, err := u.cache.OrderBook(depth.InstrumentID)
	if err != nil {
		return nil, fmt.Errorf("data: depth for unknown book %d: %w", depth.InstrumentID, err)
	}
	b.ApplyDepth(depth)
	u.metrics.IncDepthApplied()
	return b, nil
}
