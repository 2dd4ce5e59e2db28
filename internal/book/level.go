package book

import "main/internal/schema"

// Level holds all resting liquidity at one discrete price. Orders keep
// their arrival order; adding an order whose ID is already present
// replaces it in place without losing queue position.
type Level struct {
	price  BookPrice
	orders []schema.BookOrder
}

// NewLevel creates an empty level at the given price.
func NewLevel(price BookPrice) *Level {
	return &Level{price: price}
}

// Price returns the level's side-aware price.
func (l *Level) Price() BookPrice {
	return l.price
}

// Side returns the side of the ladder the level belongs to.
func (l *Level) Side() schema.OrderSide {
	return l.price.Side
}

// Len returns the number of orders at the level.
func (l *Level) Len() int {
	return len(l.orders)
}

// IsEmpty reports whether the level holds no orders.
func (l *Level) IsEmpty() bool {
	return len(l.orders) == 0
}

// First returns the order at the front of the queue.
func (l *Level) First() (schema.BookOrder, bool) {
	if len(l.orders) == 0 {
		return schema.BookOrder{}, false
	}
	return l.orders[0], true
}

// Orders returns the orders in arrival order.
func (l *Level) Orders() []schema.BookOrder {
	out := make([]schema.BookOrder, len(l.orders))
	copy(out, l.orders)
	return out
}

// Add inserts an order at the back of the queue, or replaces an existing
// order with the same ID in place.
func (l *Level) Add(order schema.BookOrder) {
	for i := range l.orders {
		if l.orders[i].OrderID == order.OrderID {
			l.orders[i] = order
			return
		}
	}
	l.orders = append(l.orders, order)
}

// Update replaces the order with the same ID, removing it entirely when
// the new size is zero.
func (l *Level) Update(order schema.BookOrder) {
	if order.Size == 0 {
		l.Delete(order.OrderID)
		return
	}
	l.Add(order)
}

// Delete removes the order with the given ID and reports whether it was
// present.
func (l *Level) Delete(orderID uint64) bool {
	for i := range l.orders {
		if l.orders[i].OrderID == orderID {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// SizeRaw returns the total size at the level in scaled integer units.
func (l *Level) SizeRaw() schema.Quantity {
	var total schema.Quantity
	for i := range l.orders {
		total += l.orders[i].Size
	}
	return total
}

// Size returns the total size at the level in human units.
func (l *Level) Size(scale schema.Scale) float64 {
	var total float64
	for i := range l.orders {
		total += l.orders[i].Size.Float(scale)
	}
	return total
}

// ExposureRaw returns the total price*size product at the level as a
// scaled notional.
func (l *Level) ExposureRaw() schema.Notional {
	var total schema.Notional
	for i := range l.orders {
		total += schema.Notional(l.orders[i].Price) * schema.Notional(l.orders[i].Size)
	}
	return total
}

// Exposure returns the total price*size value at the level in human units.
func (l *Level) Exposure(scale schema.ScaleSpec) float64 {
	return l.ExposureRaw().Float(scale.PriceScale + scale.QuantityScale)
}
