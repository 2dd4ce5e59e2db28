package book

import "main/internal/schema"

// BookPrice wraps a price with the side of the ladder holding it, so both
// ladders sort toward the inside market first: descending values for bids,
// ascending for asks.
type BookPrice struct {
	Value schema.Price
	Side  schema.OrderSide
}

// NewBookPrice returns a side-aware price.
func NewBookPrice(value schema.Price, side schema.OrderSide) BookPrice {
	return BookPrice{Value: value, Side: side}
}

// Less reports whether p sorts closer to the inside market than other.
// Prices on the same ladder always share a side.
func (p BookPrice) Less(other BookPrice) bool {
	if p.Side == schema.OrderSideBuy {
		return p.Value > other.Value
	}
	return p.Value < other.Value
}
