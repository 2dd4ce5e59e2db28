package schema

import "fmt"

// Depth10Len is the fixed number of levels per side in a depth snapshot.
const Depth10Len = 10

// BookOrder is one resting order (or synthetic aggregate) in a book event.
type BookOrder struct {
	Side    OrderSide
	Price   Price
	Size    Quantity
	OrderID uint64
}

// OrderBookDelta is one atomic mutation to an order book.
type OrderBookDelta struct {
	InstrumentID InstrumentID
	Action       BookAction
	Order        BookOrder
	Flags        uint16
	Sequence     uint64
	TsEvent      int64
	TsInit       int64
}

func (OrderBookDelta) EventType() EventType { return EventBookDelta }

// OrderBookDeltas is an ordered batch of deltas for one instrument.
// Deltas are applied strictly in slice order.
type OrderBookDeltas struct {
	InstrumentID InstrumentID
	Deltas       []OrderBookDelta
}

func (OrderBookDeltas) EventType() EventType { return EventBookDeltas }

// OrderBookDepth10 is a fixed-width snapshot of the top ten levels per
// side. A count of zero at index i marks a padding slot, not a real level.
type OrderBookDepth10 struct {
	InstrumentID InstrumentID
	Bids         [Depth10Len]BookOrder
	Asks         [Depth10Len]BookOrder
	BidCounts    [Depth10Len]uint32
	AskCounts    [Depth10Len]uint32
	Flags        uint16
	Sequence     uint64
	TsEvent      int64
	TsInit       int64
}

func (OrderBookDepth10) EventType() EventType { return EventBookDepth10 }

// OrderBookSnapshot is a periodic publication of a book's full visible
// depth, best first on each side.
type OrderBookSnapshot struct {
	InstrumentID InstrumentID
	Bids         []BookOrder
	Asks         []BookOrder
	Sequence     uint64
	UpdateCount  uint64
	TsEvent      int64
	TsInit       int64
}

func (OrderBookSnapshot) EventType() EventType { return EventBookSnapshot }

// NewDepth10 builds a depth snapshot from variable-width slices. A payload
// whose sides are not exactly ten slots wide is an adapter decoding defect,
// not a market condition, so this panics rather than returning an error.
func NewDepth10(
	instrumentID InstrumentID,
	bids, asks []BookOrder,
	bidCounts, askCounts []uint32,
	flags uint16,
	sequence uint64,
	tsEvent, tsInit int64,
) OrderBookDepth10 {
	if len(bids) != Depth10Len || len(asks) != Depth10Len {
		panic(fmt.Sprintf("depth10 requires exactly %d levels per side, got bids=%d asks=%d",
			Depth10Len, len(bids), len(asks)))
	}
	if len(bidCounts) != Depth10Len || len(askCounts) != Depth10Len {
		panic(fmt.Sprintf("depth10 requires exactly %d counts per side, got bids=%d asks=%d",
			Depth10Len, len(bidCounts), len(askCounts)))
	}

	depth := OrderBookDepth10{
		InstrumentID: instrumentID,
		Flags:        flags,
		Sequence:     sequence,
		TsEvent:      tsEvent,
		TsInit:       tsInit,
	}
	copy(depth.Bids[:], bids)
	copy(depth.Asks[:], asks)
	copy(depth.BidCounts[:], bidCounts)
	copy(depth.AskCounts[:], askCounts)
	return depth
}
