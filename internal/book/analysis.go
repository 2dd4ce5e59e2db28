package book

import (
	"math"

	"main/internal/schema"
)

// QuantityForPrice sums the size available on the ladder at prices that a
// limit order at price would match: levels at or below the limit on an
// ask ladder, at or above it on a bid ladder. Result is in human units.
func QuantityForPrice(price schema.Price, ladder *Ladder, scale schema.ScaleSpec) float64 {
	matched := 0.0
	ladder.Ascend(func(level *Level) bool {
		switch ladder.Side() {
		case schema.OrderSideSell:
			if level.price.Value > price {
				return false
			}
		case schema.OrderSideBuy:
			if level.price.Value < price {
				return false
			}
		}
		matched += level.Size(scale.QuantityScale)
		return true
	})
	return matched
}

// AvgPxForQuantity walks the ladder best first and returns the
// size-weighted average price to fill qty. If the ladder cannot supply
// the full quantity the average covers what it can; an empty ladder or
// zero qty yields 0.0.
func AvgPxForQuantity(qty schema.Quantity, ladder *Ladder, scale schema.ScaleSpec) float64 {
	target := qty.Float(scale.QuantityScale)
	cumValue := 0.0
	cumSize := 0.0

	ladder.Ascend(func(level *Level) bool {
		if cumSize >= target {
			return false
		}
		px := level.price.Value.Float(scale.PriceScale)
		take := math.Min(level.Size(scale.QuantityScale), target-cumSize)
		cumValue += px * take
		cumSize += take
		return true
	})

	if cumSize == 0 {
		return 0
	}
	return cumValue / cumSize
}

// AvgPxQtyForExposure walks the ladder best first accumulating notional
// until the target exposure is reached, taking a partial fill at the last
// level. It returns the size-weighted average price, the quantity
// consumed and the exposure actually executed.
func AvgPxQtyForExposure(exposure float64, ladder *Ladder, scale schema.ScaleSpec) (avgPx, qty, executed float64) {
	cumValue := 0.0
	cumSize := 0.0

	ladder.Ascend(func(level *Level) bool {
		if cumValue >= exposure {
			return false
		}
		px := level.price.Value.Float(scale.PriceScale)
		if px <= 0 {
			return true
		}
		take := math.Min(level.Size(scale.QuantityScale), (exposure-cumValue)/px)
		cumValue += px * take
		cumSize += take
		return true
	})

	if cumSize == 0 {
		return 0, 0, 0
	}
	return cumValue / cumSize, cumSize, cumValue
}

// GroupedLevel is one aggregated price bucket produced by GroupLevels.
type GroupedLevel struct {
	Price float64
	Size  float64
}

// GroupLevels aggregates ladder levels into price buckets of groupSize,
// best first, up to depth buckets; depth <= 0 means no limit. Bid prices
// round down to their bucket and ask prices round up, so grouped prices
// never overstate the liquidity's aggressiveness.
func GroupLevels(ladder *Ladder, groupSize float64, depth int, scale schema.ScaleSpec) []GroupedLevel {
	if groupSize <= 0 {
		return nil
	}

	var grouped []GroupedLevel
	ladder.Ascend(func(level *Level) bool {
		px := level.price.Value.Float(scale.PriceScale)
		var bucket float64
		switch ladder.Side() {
		case schema.OrderSideBuy:
			bucket = math.Floor(px/groupSize) * groupSize
		default:
			bucket = math.Ceil(px/groupSize) * groupSize
		}

		if n := len(grouped); n > 0 && grouped[n-1].Price == bucket {
			grouped[n-1].Size += level.Size(scale.QuantityScale)
			return true
		}
		if depth > 0 && len(grouped) == depth {
			return false
		}
		grouped = append(grouped, GroupedLevel{Price: bucket, Size: level.Size(scale.QuantityScale)})
		return true
	})
	return grouped
}
