package data

import (
	"fmt"
	"time"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/cache"
	"main/internal/obs"
	"main/internal/schema"
)

// BookSnapshotInfo describes one timer-driven snapshot publication.
type BookSnapshotInfo struct {
	InstrumentID schema.InstrumentID
	VenueID      schema.VenueID
	IsComposite  bool
	Root         string
	Topic        string
	IntervalMs   int64
}

// TimerName returns the clock timer key for this snapshot schedule.
func (info BookSnapshotInfo) TimerName() string {
	return fmt.Sprintf("ORDER_BOOK|%d|%d", info.InstrumentID, info.IntervalMs)
}

// Snapshotter publishes periodic order book snapshots to the bus.
type Snapshotter struct {
	cache   *cache.Cache
	bus     *bus.Bus
	metrics *obs.Metrics
	source  uint16
	depth   int
}

// NewSnapshotter creates a snapshotter publishing up to depth levels per
// side; depth <= 0 publishes the full book.
func NewSnapshotter(c *cache.Cache, b *bus.Bus, metrics *obs.Metrics, source uint16, depth int) *Snapshotter {
	return &Snapshotter{cache: c, bus: b, metrics: metrics, source: source, depth: depth}
}

// Fire publishes snapshots for the schedule. A composite schedule
// resolves every instrument sharing the venue and root and publishes one
// snapshot per component book on the schedule's topic. Books that have
// never been updated are skipped so subscribers do not see empty
// placeholder snapshots at startup.
func (s *Snapshotter) Fire(info BookSnapshotInfo, tsEvent int64) error {
	started := time.Now()

	var books []*book.OrderBook
	if info.IsComposite {
		books = s.cache.OrderBooksForRoot(info.VenueID, info.Root)
		if len(books) == 0 {
			return fmt.Errorf("data: no books for composite root %q", info.Root)
		}
	} else {
		b, err := s.cache.OrderBook(info.InstrumentID)
		if err != nil {
			return fmt.Errorf("data: snapshot for unknown book %d: %w", info.InstrumentID, err)
		}
		books = []*book.OrderBook{b}
	}

	published := 0
	for _, b := range books {
		if b.UpdateCount == 0 {
			continue
		}
		snapshot := s.buildSnapshot(b)
		snapshot.TsEvent = tsEvent
		snapshot.TsInit = time.Now().UnixNano()

		header := schema.NewHeader(schema.EventBookSnapshot, s.source, snapshot.Sequence, tsEvent, snapshot.TsInit)
		s.bus.Publish(info.Topic, bus.Event{Header: header, Payload: snapshot})
		s.metrics.IncSnapshotPublished()
		published++
	}

	if published > 0 {
		s.metrics.ObserveSnapshot(time.Since(started))
	}
	return nil
}

func (s *Snapshotter) buildSnapshot(b *book.OrderBook) schema.OrderBookSnapshot {
	return schema.OrderBookSnapshot{
		InstrumentID: b.InstrumentID,
		Bids:         levelAggregates(b.Bids(s.depth)),
		Asks:         levelAggregates(b.Asks(s.depth)),
		Sequence:     b.Sequence,
		UpdateCount:  b.UpdateCount,
	}
}

// levelAggregates condenses each level to one synthetic order carrying
// the level's total size.
func levelAggregates(levels []*book.Level) []schema.BookOrder {
	orders := make([]schema.BookOrder, 0, len(levels))
	for _, level := range levels {
		orders = append(orders, schema.BookOrder{
			Side:    level.Side(),
			Price:   level.Price().Value,
			Size:    level.SizeRaw(),
			OrderID: uint64(level.Price().Value),
		})
	}
	return orders
}
