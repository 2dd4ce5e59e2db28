package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func TestCheckIntegrityOK(t *testing.T) {
	b := NewOrderBook(1, schema.BookTypeL2MBP, rawScale)
	b.Add(bidOrder(100, 10, 1), 0, 1, 1)
	b.Add(askOrder(101, 10, 2), 0, 2, 2)
	assert.NoError(t, CheckIntegrity(b))
}

func TestCheckIntegrityTooManyLevelsL1(t *testing.T) {
	b := NewOrderBook(1, schema.BookTypeL1MBP, rawScale)
	b.Add(bidOrder(100, 10, 1), 0, 1, 1)
	// bypass the L1 upsert path to plant a second level
	b.bids.Add(schema.BookOrder{Side: schema.OrderSideBuy, Price: 99, Size: 5, OrderID: 2})

	err := CheckIntegrity(b)
	require.Error(t, err)
	var tooMany TooManyLevels
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, schema.OrderSideBuy, tooMany.Side)
	assert.Equal(t, 2, tooMany.Count)
}

func TestCheckIntegrityTooManyOrdersL2(t *testing.T) {
	b := NewOrderBook(1, schema.BookTypeL2MBP, rawScale)
	b.Add(askOrder(101, 10, 1), 0, 1, 1)
	// L2 levels are single aggregates; plant a second order directly
	b.asks.Add(schema.BookOrder{Side: schema.OrderSideSell, Price: 101, Size: 5, OrderID: 999})

	err := CheckIntegrity(b)
	require.Error(t, err)
	var tooMany TooManyOrders
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, schema.OrderSideSell, tooMany.Side)
	assert.Equal(t, 2, tooMany.Count)
}

func TestCheckIntegrityCrossed(t *testing.T) {
	b := NewOrderBook(1, schema.BookTypeL3MBO, rawScale)
	b.Add(bidOrder(102, 10, 1), 0, 1, 1)
	b.Add(askOrder(101, 10, 2), 0, 2, 2)

	err := CheckIntegrity(b)
	require.Error(t, err)
	var crossed OrdersCrossed
	require.ErrorAs(t, err, &crossed)
	assert.Equal(t, schema.Price(102), crossed.BestBid)
	assert.Equal(t, schema.Price(101), crossed.BestAsk)

	// diagnostics never mutate
	assert.True(t, b.HasBid())
	assert.True(t, b.HasAsk())
}

func TestCheckIntegrityTouchingIsCrossed(t *testing.T) {
	b := NewOrderBook(1, schema.BookTypeL3MBO, rawScale)
	b.Add(bidOrder(101, 10, 1), 0, 1, 1)
	b.Add(askOrder(101, 10, 2), 0, 2, 2)

	var crossed OrdersCrossed
	assert.ErrorAs(t, CheckIntegrity(b), &crossed)
}

func TestCheckIntegrityEmptyBook(t *testing.T) {
	b := NewOrderBook(1, schema.BookTypeL3MBO, rawScale)
	assert.NoError(t, CheckIntegrity(b))
}
