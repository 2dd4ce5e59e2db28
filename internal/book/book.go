package book

import (
	"errors"
	"fmt"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// ErrNoOrderSide is returned when a delta carries no usable side for an
// action that needs one.
var ErrNoOrderSide = errors.New("book: delta order has no side")

// OrderBook maintains one instrument's bid/ask depth at L1, L2 or L3
// granularity. It is mutated only through the Apply* methods and is not
// safe for concurrent use; the cache's single writer owns it.
type OrderBook struct {
	InstrumentID schema.InstrumentID
	BookType     schema.BookType
	Scale        schema.ScaleSpec
	Sequence     uint64
	TsLast       int64
	UpdateCount  uint64

	bids *Ladder
	asks *Ladder
}

// NewOrderBook creates an empty book for the instrument.
func NewOrderBook(instrumentID schema.InstrumentID, bookType schema.BookType, scale schema.ScaleSpec) *OrderBook {
	return &OrderBook{
		InstrumentID: instrumentID,
		BookType:     bookType,
		Scale:        scale,
		bids:         NewLadder(schema.OrderSideBuy),
		asks:         NewLadder(schema.OrderSideSell),
	}
}

func (b *OrderBook) String() string {
	return fmt.Sprintf("OrderBook(instrument_id=%d, book_type=%s, update_count=%d)",
		b.InstrumentID, b.BookType, b.UpdateCount)
}

// Reset returns the book to its initial empty state.
func (b *OrderBook) Reset() {
	b.bids.Clear()
	b.asks.Clear()
	b.Sequence = 0
	b.TsLast = 0
	b.UpdateCount = 0
}

// Bids returns up to depth bid levels, best first; depth <= 0 means all.
func (b *OrderBook) Bids(depth int) []*Level {
	return b.bids.Levels(depth)
}

// Asks returns up to depth ask levels, best first; depth <= 0 means all.
func (b *OrderBook) Asks(depth int) []*Level {
	return b.asks.Levels(depth)
}

// BidLadder exposes the bid side for read-only analytics walks.
func (b *OrderBook) BidLadder() *Ladder {
	return b.bids
}

// AskLadder exposes the ask side for read-only analytics walks.
func (b *OrderBook) AskLadder() *Ladder {
	return b.asks
}

// Add inserts an order after book-type preprocessing.
func (b *OrderBook) Add(order schema.BookOrder, flags uint16, sequence uint64, tsEvent int64) {
	order = preProcessOrder(b.BookType, order)
	switch order.Side {
	case schema.OrderSideBuy:
		b.addToLadder(b.bids, order)
	case schema.OrderSideSell:
		b.addToLadder(b.asks, order)
	}
	b.increment(sequence, tsEvent)
}

// addToLadder routes L1 adds through the upsert path so each side keeps
// at most one level regardless of the incoming action mix.
func (b *OrderBook) addToLadder(ladder *Ladder, order schema.BookOrder) {
	if b.BookType == schema.BookTypeL1MBP {
		ladder.Update(order)
		return
	}
	ladder.Add(order)
}

// Update modifies an existing order after book-type preprocessing,
// inserting it when unknown.
func (b *OrderBook) Update(order schema.BookOrder, flags uint16, sequence uint64, tsEvent int64) {
	order = preProcessOrder(b.BookType, order)
	switch order.Side {
	case schema.OrderSideBuy:
		b.bids.Update(order)
	case schema.OrderSideSell:
		b.asks.Update(order)
	}
	b.increment(sequence, tsEvent)
}

// Delete removes an order after book-type preprocessing. Unknown order
// IDs leave ladder content untouched but still count as an applied event.
func (b *OrderBook) Delete(order schema.BookOrder, flags uint16, sequence uint64, tsEvent int64) {
	order = preProcessOrder(b.BookType, order)
	switch order.Side {
	case schema.OrderSideBuy:
		b.bids.Remove(order.OrderID)
	case schema.OrderSideSell:
		b.asks.Remove(order.OrderID)
	}
	b.increment(sequence, tsEvent)
}

// Clear drops all levels on both sides.
func (b *OrderBook) Clear(sequence uint64, tsEvent int64) {
	b.bids.Clear()
	b.asks.Clear()
	b.increment(sequence, tsEvent)
}

// ClearBids drops all bid levels.
func (b *OrderBook) ClearBids(sequence uint64, tsEvent int64) {
	b.bids.Clear()
	b.increment(sequence, tsEvent)
}

// ClearAsks drops all ask levels.
func (b *OrderBook) ClearAsks(sequence uint64, tsEvent int64) {
	b.asks.Clear()
	b.increment(sequence, tsEvent)
}

// ApplyDelta applies a single delta.
func (b *OrderBook) ApplyDelta(delta schema.OrderBookDelta) error {
	if !delta.Order.Side.IsAvailable() && delta.Action != schema.BookActionClear {
		return ErrNoOrderSide
	}

	switch delta.Action {
	case schema.BookActionAdd:
		b.Add(delta.Order, delta.Flags, delta.Sequence, delta.TsEvent)
	case schema.BookActionUpdate:
		b.Update(delta.Order, delta.Flags, delta.Sequence, delta.TsEvent)
	case schema.BookActionDelete:
		b.Delete(delta.Order, delta.Flags, delta.Sequence, delta.TsEvent)
	case schema.BookActionClear:
		b.Clear(delta.Sequence, delta.TsEvent)
	default:
		return fmt.Errorf("book: unknown delta action %d", delta.Action)
	}
	return nil
}

// ApplyDeltas applies each delta in slice order. There is no rollback: a
// failure partway through leaves the earlier deltas applied.
func (b *OrderBook) ApplyDeltas(deltas schema.OrderBookDeltas) error {
	for _, delta := range deltas.Deltas {
		if err := b.ApplyDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDepth replaces the full content of both ladders from a ten-slot
// snapshot. Slots with a zero count are padding and skipped. Applying the
// same snapshot twice yields identical ladders.
func (b *OrderBook) ApplyDepth(depth schema.OrderBookDepth10) {
	b.bids.Clear()
	b.asks.Clear()

	bids := make([]schema.BookOrder, 0, schema.Depth10Len)
	asks := make([]schema.BookOrder, 0, schema.Depth10Len)
	for i := 0; i < schema.Depth10Len; i++ {
		if depth.BidCounts[i] != 0 && depth.Bids[i].Size.IsPositive() {
			bids = append(bids, preProcessOrder(b.BookType, depth.Bids[i]))
		}
		if depth.AskCounts[i] != 0 && depth.Asks[i].Size.IsPositive() {
			asks = append(asks, preProcessOrder(b.BookType, depth.Asks[i]))
		}
	}
	b.bids.AddBulk(bids)
	b.asks.AddBulk(asks)

	b.increment(depth.Sequence, depth.TsEvent)
}

// HasBid reports whether any bid order rests in the book.
func (b *OrderBook) HasBid() bool {
	top, ok := b.bids.Top()
	return ok && !top.IsEmpty()
}

// HasAsk reports whether any ask order rests in the book.
func (b *OrderBook) HasAsk() bool {
	top, ok := b.asks.Top()
	return ok && !top.IsEmpty()
}

// BestBidPrice returns the highest bid price if present.
func (b *OrderBook) BestBidPrice() (schema.Price, bool) {
	top, ok := b.bids.Top()
	if !ok {
		return 0, false
	}
	return top.price.Value, true
}

// BestAskPrice returns the lowest ask price if present.
func (b *OrderBook) BestAskPrice() (schema.Price, bool) {
	top, ok := b.asks.Top()
	if !ok {
		return 0, false
	}
	return top.price.Value, true
}

// BestBidSize returns the size of the first order at the best bid.
func (b *OrderBook) BestBidSize() (schema.Quantity, bool) {
	top, ok := b.bids.Top()
	if !ok {
		return 0, false
	}
	first, ok := top.First()
	if !ok {
		return 0, false
	}
	return first.Size, true
}

// BestAskSize returns the size of the first order at the best ask.
func (b *OrderBook) BestAskSize() (schema.Quantity, bool) {
	top, ok := b.asks.Top()
	if !ok {
		return 0, false
	}
	first, ok := top.First()
	if !ok {
		return 0, false
	}
	return first.Size, true
}

// Spread returns best ask minus best bid in human units.
func (b *OrderBook) Spread() (float64, bool) {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Float(b.Scale.PriceScale) - bid.Float(b.Scale.PriceScale), true
}

// Midpoint returns the middle of the best bid and ask in human units.
func (b *OrderBook) Midpoint() (float64, bool) {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if !okBid || !okAsk {
		return 0, false
	}
	return (ask.Float(b.Scale.PriceScale) + bid.Float(b.Scale.PriceScale)) / 2, true
}

// GetQuantityForPrice returns the total quantity matchable at the limit
// price for a taker on the given side: Buy consumes asks, Sell consumes
// bids.
func (b *OrderBook) GetQuantityForPrice(price schema.Price, side schema.OrderSide) float64 {
	switch side {
	case schema.OrderSideBuy:
		return QuantityForPrice(price, b.asks, b.Scale)
	case schema.OrderSideSell:
		return QuantityForPrice(price, b.bids, b.Scale)
	default:
		return 0
	}
}

// GetAvgPxForQuantity returns the size-weighted average price to fill the
// quantity for a taker on the given side.
func (b *OrderBook) GetAvgPxForQuantity(qty schema.Quantity, side schema.OrderSide) float64 {
	switch side {
	case schema.OrderSideBuy:
		return AvgPxForQuantity(qty, b.asks, b.Scale)
	case schema.OrderSideSell:
		return AvgPxForQuantity(qty, b.bids, b.Scale)
	default:
		return 0
	}
}

// GetAvgPxQtyForExposure returns the average price, quantity and executed
// exposure for a target notional on the given taker side.
func (b *OrderBook) GetAvgPxQtyForExposure(exposure float64, side schema.OrderSide) (avgPx, qty, executed float64) {
	switch side {
	case schema.OrderSideBuy:
		return AvgPxQtyForExposure(exposure, b.asks, b.Scale)
	case schema.OrderSideSell:
		return AvgPxQtyForExposure(exposure, b.bids, b.Scale)
	default:
		return 0, 0, 0
	}
}

// SimulateFills returns the fills a crossing order would take.
func (b *OrderBook) SimulateFills(order schema.BookOrder) []Fill {
	switch order.Side {
	case schema.OrderSideBuy:
		return b.asks.SimulateFills(order)
	case schema.OrderSideSell:
		return b.bids.SimulateFills(order)
	default:
		return nil
	}
}

func (b *OrderBook) increment(sequence uint64, tsEvent int64) {
	if sequence < b.Sequence {
		logs.Warnf("book sequence went backwards: old=%d new=%d (instrument_id=%d)",
			b.Sequence, sequence, b.InstrumentID)
	}
	if tsEvent < b.TsLast {
		logs.Warnf("book timestamp went backwards: old=%d new=%d (instrument_id=%d)",
			b.TsLast, tsEvent, b.InstrumentID)
	}

	b.Sequence = sequence
	b.TsLast = tsEvent
	b.UpdateCount++
}

// preProcessOrder collapses order identity for aggregated book types: L1
// books key each side's single synthetic order by its side, L2 books key
// the per-level aggregate by its raw price. L3 orders pass through.
func preProcessOrder(bookType schema.BookType, order schema.BookOrder) schema.BookOrder {
	switch bookType {
	case schema.BookTypeL1MBP:
		order.OrderID = uint64(order.Side)
	case schema.BookTypeL2MBP:
		order.OrderID = uint64(order.Price)
	}
	return order
}
