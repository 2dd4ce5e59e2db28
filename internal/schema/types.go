package schema

import "math"

// Price is a scaled integer. The scale is defined per instrument.
type Price int64

// Float converts a scaled price to its human-readable value.
func (p Price) Float(scale Scale) float64 {
	return float64(p) / pow10(scale)
}

// Quantity is a scaled integer. The scale is defined per instrument.
type Quantity int64

// Float converts a scaled quantity to its human-readable value.
func (q Quantity) Float(scale Scale) float64 {
	return float64(q) / pow10(scale)
}

// IsPositive reports whether the quantity is greater than zero.
func (q Quantity) IsPositive() bool {
	return q > 0
}

// Notional is a scaled integer price*quantity product. Its scale is the
// sum of the instrument's price and quantity scales.
type Notional int64

// Float converts a scaled notional to its human-readable value.
func (n Notional) Float(scale Scale) float64 {
	return float64(n) / pow10(scale)
}

func pow10(scale Scale) float64 {
	if scale <= 0 {
		return 1
	}
	return math.Pow10(int(scale))
}

// Scale is the number of decimal places used by a scaled integer.
// Example: Scale=8 means the integer value is scaled by 1e8.
type Scale int32

// ScaleSpec defines scaling for the numeric fields of an instrument.
type ScaleSpec struct {
	PriceScale    Scale `json:"priceScale"`
	QuantityScale Scale `json:"quantityScale"`
}

// OrderSide describes which side of the book an order rests on.
type OrderSide uint8

const (
	_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// BookAction is one atomic mutation kind applied to an order book.
type BookAction uint8

const (
	_action_beg BookAction = iota
	BookActionAdd
	BookActionUpdate
	BookActionDelete
	BookActionClear
	_action_end
)

func (a BookAction) IsAvailable() bool {
	return a > _action_beg && a < _action_end
}

func (a BookAction) String() string {
	switch a {
	case BookActionAdd:
		return "ADD"
	case BookActionUpdate:
		return "UPDATE"
	case BookActionDelete:
		return "DELETE"
	case BookActionClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// BookType is the granularity of market data a book is maintained at.
type BookType uint8

const (
	_book_type_beg BookType = iota
	BookTypeL1MBP
	BookTypeL2MBP
	BookTypeL3MBO
	_book_type_end
)

func (t BookType) IsAvailable() bool {
	return t > _book_type_beg && t < _book_type_end
}

func (t BookType) String() string {
	switch t {
	case BookTypeL1MBP:
		return "L1_MBP"
	case BookTypeL2MBP:
		return "L2_MBP"
	case BookTypeL3MBO:
		return "L3_MBO"
	default:
		return "UNKNOWN"
	}
}
