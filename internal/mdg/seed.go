package mdg

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/yanun0323/decimal"

	"main/internal/schema"
)

// SeedFile is the JSON layout for initial book content. Prices and
// sizes are decimal strings in human units, [price, size] pairs ordered
// best first, matching the depth payloads venues publish.
type SeedFile struct {
	Books []SeedBook `json:"books"`
}

// SeedBook is one instrument's starting depth.
type SeedBook struct {
	Instrument string              `json:"instrument"`
	Bids       [][]decimal.Decimal `json:"bids"`
	Asks       [][]decimal.Decimal `json:"asks"`
}

// LoadSeed reads a seed file and converts each book into an initial
// delta batch of adds.
func LoadSeed(path string, reg *schema.Registry) ([]schema.OrderBookDeltas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("mdg: parse seed file: %w", err)
	}

	batches := make([]schema.OrderBookDeltas, 0, len(seed.Books))
	for _, book := range seed.Books {
		instrumentID, ok := reg.InstrumentIDByName(book.Instrument)
		if !ok {
			return nil, fmt.Errorf("mdg: seed instrument not found: %s", book.Instrument)
		}
		inst, _ := reg.Instrument(instrumentID)

		batch := schema.OrderBookDeltas{InstrumentID: instrumentID}
		sequence := uint64(0)
		for _, row := range book.Bids {
			delta, err := seedDelta(inst, schema.OrderSideBuy, row, &sequence)
			if err != nil {
				return nil, fmt.Errorf("mdg: seed %s bids: %w", book.Instrument, err)
			}
			batch.Deltas = append(batch.Deltas, delta)
		}
		for _, row := range book.Asks {
			delta, err := seedDelta(inst, schema.OrderSideSell, row, &sequence)
			if err != nil {
				return nil, fmt.Errorf("mdg: seed %s asks: %w", book.Instrument, err)
			}
			batch.Deltas = append(batch.Deltas, delta)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func seedDelta(inst schema.Instrument, side schema.OrderSide, row []decimal.Decimal, sequence *uint64) (schema.OrderBookDelta, error) {
	if len(row) != 2 {
		return schema.OrderBookDelta{}, fmt.Errorf("row must be [price, size], got %d values", len(row))
	}
	price, err := scaledInt(row[0], inst.Scale.PriceScale)
	if err != nil {
		return schema.OrderBookDelta{}, fmt.Errorf("price: %w", err)
	}
	size, err := scaledInt(row[1], inst.Scale.QuantityScale)
	if err != nil {
		return schema.OrderBookDelta{}, fmt.Errorf("size: %w", err)
	}
	if size <= 0 {
		return schema.OrderBookDelta{}, fmt.Errorf("size must be positive, got %d", size)
	}

	*sequence++
	return schema.OrderBookDelta{
		InstrumentID: inst.ID,
		Action:       schema.BookActionAdd,
		Order: schema.BookOrder{
			Side:    side,
			Price:   schema.Price(price),
			Size:    schema.Quantity(size),
			OrderID: uint64(price),
		},
		Sequence: *sequence,
	}, nil
}

func scaledInt(d decimal.Decimal, scale schema.Scale) (int64, error) {
	f, err := strconv.ParseFloat(d.String(), 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f * math.Pow10(int(scale)))), nil
}
