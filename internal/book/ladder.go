package book

import (
	"github.com/google/btree"

	"main/internal/schema"
)

const ladderDegree = 16

// Ladder is one side of an order book: price levels sorted toward the
// inside market, plus an order-ID index for O(1) level lookup on update
// and delete.
type Ladder struct {
	side   schema.OrderSide
	levels *btree.BTreeG[*Level]
	cache  map[uint64]BookPrice
}

// NewLadder creates an empty ladder for the given side.
func NewLadder(side schema.OrderSide) *Ladder {
	return &Ladder{
		side: side,
		levels: btree.NewG(ladderDegree, func(a, b *Level) bool {
			return a.price.Less(b.price)
		}),
		cache: make(map[uint64]BookPrice),
	}
}

// Side returns the ladder's side.
func (l *Ladder) Side() schema.OrderSide {
	return l.side
}

// Len returns the number of price levels.
func (l *Ladder) Len() int {
	return l.levels.Len()
}

// IsEmpty reports whether the ladder has no price levels.
func (l *Ladder) IsEmpty() bool {
	return l.levels.Len() == 0
}

// Clear removes all levels and orders.
func (l *Ladder) Clear() {
	l.levels.Clear(false)
	l.cache = make(map[uint64]BookPrice)
}

// Add inserts an order at its price level, creating the level if needed.
func (l *Ladder) Add(order schema.BookOrder) {
	price := NewBookPrice(order.Price, l.side)
	l.cache[order.OrderID] = price

	if level, ok := l.levels.Get(&Level{price: price}); ok {
		level.Add(order)
		return
	}
	level := NewLevel(price)
	level.Add(order)
	l.levels.ReplaceOrInsert(level)
}

// AddBulk inserts multiple orders, e.g. for initial population.
func (l *Ladder) AddBulk(orders []schema.BookOrder) {
	for _, order := range orders {
		l.Add(order)
	}
}

// Update moves an existing order to its new size and, when the price
// changed, to its new level. Unknown orders are inserted (upsert).
func (l *Ladder) Update(order schema.BookOrder) {
	price, ok := l.cache[order.OrderID]
	if ok {
		if level, found := l.levels.Get(&Level{price: price}); found {
			if order.Price == price.Value {
				if order.Size == 0 {
					level.Delete(order.OrderID)
					delete(l.cache, order.OrderID)
					if level.IsEmpty() {
						l.levels.Delete(level)
					}
					return
				}
				level.Add(order)
				return
			}

			// Price moved: pull the order out of its old level first.
			delete(l.cache, order.OrderID)
			level.Delete(order.OrderID)
			if level.IsEmpty() {
				l.levels.Delete(level)
			}
		}
	}

	if order.Size == 0 {
		return
	}
	l.Add(order)
}

// Remove deletes the order with the given ID. Unknown IDs are a no-op.
func (l *Ladder) Remove(orderID uint64) {
	price, ok := l.cache[orderID]
	if !ok {
		return
	}
	delete(l.cache, orderID)
	if level, found := l.levels.Get(&Level{price: price}); found {
		level.Delete(orderID)
		if level.IsEmpty() {
			l.levels.Delete(level)
		}
	}
}

// Top returns the best level: highest bid or lowest ask.
func (l *Ladder) Top() (*Level, bool) {
	return l.levels.Min()
}

// Ascend walks levels from best to worst until the iterator returns false.
func (l *Ladder) Ascend(fn func(level *Level) bool) {
	l.levels.Ascend(fn)
}

// Levels returns up to depth levels from best to worst; depth <= 0 means
// all levels.
func (l *Ladder) Levels(depth int) []*Level {
	if depth <= 0 {
		depth = l.levels.Len()
	}
	out := make([]*Level, 0, depth)
	l.levels.Ascend(func(level *Level) bool {
		out = append(out, level)
		return len(out) < depth
	})
	return out
}

// CachedPrice returns the level price an order ID currently rests at.
func (l *Ladder) CachedPrice(orderID uint64) (BookPrice, bool) {
	price, ok := l.cache[orderID]
	return price, ok
}

// SizeRaw returns the total order size across all levels in scaled units.
func (l *Ladder) SizeRaw() schema.Quantity {
	var total schema.Quantity
	l.levels.Ascend(func(level *Level) bool {
		total += level.SizeRaw()
		return true
	})
	return total
}

// Sizes returns the total order size across all levels in human units.
func (l *Ladder) Sizes(scale schema.Scale) float64 {
	var total float64
	l.levels.Ascend(func(level *Level) bool {
		total += level.Size(scale)
		return true
	})
	return total
}

// Exposures returns the total price*size value across all levels in
// human units.
func (l *Ladder) Exposures(scale schema.ScaleSpec) float64 {
	var total float64
	l.levels.Ascend(func(level *Level) bool {
		total += level.Exposure(scale)
		return true
	})
	return total
}

// SimulateFills walks the ladder as if the given order crossed it,
// returning the (price, size) pairs that would fill. The order's price
// bounds how deep the walk goes; its size bounds the total.
func (l *Ladder) SimulateFills(order schema.BookOrder) []Fill {
	var fills []Fill
	var cumulative schema.Quantity
	target := order.Size

	l.levels.Ascend(func(level *Level) bool {
		if l.side == schema.OrderSideBuy && level.price.Value < order.Price {
			return false
		}
		if l.side == schema.OrderSideSell && level.price.Value > order.Price {
			return false
		}

		for _, resting := range level.orders {
			current := resting.Size
			if cumulative+current >= target {
				remainder := target - cumulative
				if remainder > 0 {
					fills = append(fills, Fill{Price: resting.Price, Size: remainder})
				}
				cumulative = target
				return false
			}
			fills = append(fills, Fill{Price: resting.Price, Size: current})
			cumulative += current
		}
		return true
	})

	return fills
}

// Fill is one simulated execution against resting liquidity.
type Fill struct {
	Price schema.Price
	Size  schema.Quantity
}
