// Package mdg generates synthetic order book flow: seeded starting
// books and random-walk delta batches, for soak tests and local runs
// without a live venue connection.
package mdg

import (
	"fmt"
	"math/rand"
	"time"

	"main/internal/schema"
)

// bookState is the generator's own view of one instrument's book, used
// to emit deletes that reference prices it previously added.
type bookState struct {
	instrument schema.Instrument
	mid        schema.Price
	tick       schema.Price
	sequence   uint64
	bidPrices  []schema.Price
	askPrices  []schema.Price
}

// Generator produces delta batches for every instrument in the
// registry, round-robin. The same seed yields the same stream.
type Generator struct {
	books  []*bookState
	rng    *rand.Rand
	source uint16
	index  int
}

// NewGenerator creates a generator over all registry instruments.
// basePrice and tick are raw scaled values.
func NewGenerator(reg *schema.Registry, source uint16, basePrice, tick int64, seed int64) (*Generator, error) {
	if reg == nil || reg.InstrumentCount() == 0 {
		return nil, fmt.Errorf("mdg: registry has no instruments")
	}
	if basePrice <= 0 || tick <= 0 {
		return nil, fmt.Errorf("mdg: base price and tick must be positive")
	}

	books := make([]*bookState, 0, reg.InstrumentCount())
	for i := 0; i < reg.InstrumentCount(); i++ {
		inst, ok := reg.InstrumentAt(i)
		if !ok {
			continue
		}
		books = append(books, &bookState{
			instrument: inst,
			mid:        schema.Price(basePrice),
			tick:       schema.Price(tick),
		})
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("mdg: registry has no instruments")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		books:  books,
		rng:    rand.New(rand.NewSource(seed)),
		source: source,
	}, nil
}

// Next produces the next instrument's delta batch. Most batches refresh
// the top of book; occasionally a resting level is pulled.
func (g *Generator) Next(now time.Time) schema.OrderBookDeltas {
	state := g.books[g.index]
	g.index = (g.index + 1) % len(g.books)

	// random walk the mid by at most one tick, floored above zero
	state.mid += schema.Price(g.rng.Intn(3)-1) * state.tick
	if state.mid <= state.tick {
		state.mid = state.tick * 2
	}

	ts := now.UnixNano()
	deltas := schema.OrderBookDeltas{InstrumentID: state.instrument.ID}

	bid := state.mid - state.tick
	ask := state.mid + state.tick
	deltas.Deltas = append(deltas.Deltas,
		state.next(schema.BookActionUpdate, schema.OrderSideBuy, bid, g.size(), ts),
		state.next(schema.BookActionUpdate, schema.OrderSideSell, ask, g.size(), ts),
	)
	state.bidPrices = appendPrice(state.bidPrices, bid)
	state.askPrices = appendPrice(state.askPrices, ask)

	// roughly one in eight batches removes an old level
	if g.rng.Intn(8) == 0 && len(state.bidPrices) > 1 {
		stale := state.bidPrices[0]
		state.bidPrices = state.bidPrices[1:]
		deltas.Deltas = append(deltas.Deltas,
			state.next(schema.BookActionDelete, schema.OrderSideBuy, stale, 0, ts))
	}
	if g.rng.Intn(8) == 0 && len(state.askPrices) > 1 {
		stale := state.askPrices[0]
		state.askPrices = state.askPrices[1:]
		deltas.Deltas = append(deltas.Deltas,
			state.next(schema.BookActionDelete, schema.OrderSideSell, stale, 0, ts))
	}
	return deltas
}

// Source returns the generator's source tag for event headers.
func (g *Generator) Source() uint16 {
	return g.source
}

func (g *Generator) size() schema.Quantity {
	return schema.Quantity(g.rng.Int63n(100) + 1)
}

func (s *bookState) next(action schema.BookAction, side schema.OrderSide, price schema.Price, size schema.Quantity, ts int64) schema.OrderBookDelta {
	s.sequence++
	return schema.OrderBookDelta{
		InstrumentID: s.instrument.ID,
		Action:       action,
		Order: schema.BookOrder{
			Side:    side,
			Price:   price,
			Size:    size,
			OrderID: uint64(price),
		},
		Sequence: s.sequence,
		TsEvent:  ts,
		TsInit:   ts,
	}
}

func appendPrice(prices []schema.Price, price schema.Price) []schema.Price {
	for _, p := range prices {
		if p == price {
			return prices
		}
	}
	if len(prices) >= 16 {
		prices = prices[1:]
	}
	return append(prices, price)
}
