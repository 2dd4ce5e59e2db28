package book

import (
	"fmt"

	"main/internal/schema"
)

// TooManyLevels reports a side holding more price levels than the book
// type permits.
type TooManyLevels struct {
	Side  schema.OrderSide
	Count int
}

func (e TooManyLevels) Error() string {
	return fmt.Sprintf("book integrity: side %s has %d levels, expected at most 1", e.Side, e.Count)
}

// TooManyOrders reports a level holding more orders than the book type
// permits.
type TooManyOrders struct {
	Side  schema.OrderSide
	Count int
}

func (e TooManyOrders) Error() string {
	return fmt.Sprintf("book integrity: side %s has a level with %d orders, expected at most 1", e.Side, e.Count)
}

// OrdersCrossed reports a best bid at or above the best ask.
type OrdersCrossed struct {
	BestBid schema.Price
	BestAsk schema.Price
}

func (e OrdersCrossed) Error() string {
	return fmt.Sprintf("book integrity: orders crossed, best bid %d >= best ask %d", e.BestBid, e.BestAsk)
}

// CheckIntegrity validates the book's structural invariants for its book
// type. It is diagnostic only and never mutates the book.
func CheckIntegrity(b *OrderBook) error {
	switch b.BookType {
	case schema.BookTypeL1MBP:
		if n := b.bids.Len(); n > 1 {
			return TooManyLevels{Side: schema.OrderSideBuy, Count: n}
		}
		if n := b.asks.Len(); n > 1 {
			return TooManyLevels{Side: schema.OrderSideSell, Count: n}
		}
	case schema.BookTypeL2MBP:
		if err := checkLevelOrders(b.bids); err != nil {
			return err
		}
		if err := checkLevelOrders(b.asks); err != nil {
			return err
		}
	}

	bestBid, okBid := b.BestBidPrice()
	bestAsk, okAsk := b.BestAskPrice()
	if okBid && okAsk && bestBid >= bestAsk {
		return OrdersCrossed{BestBid: bestBid, BestAsk: bestAsk}
	}
	return nil
}

func checkLevelOrders(l *Ladder) error {
	var err error
	l.Ascend(func(level *Level) bool {
		if n := level.Len(); n > 1 {
			err = TooManyOrders{Side: l.Side(), Count: n}
			return false
		}
		return true
	})
	return err
}
