package mdg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/book"
	"main/internal/schema"
)

func seedRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	venueID, err := reg.AddVenue("SIM")
	require.NoError(t, err)
	_, err = reg.AddInstrument("ESU6", "ES", venueID,
		schema.ScaleSpec{PriceScale: 2, QuantityScale: 1}, schema.BookTypeL2MBP)
	require.NoError(t, err)
	return reg
}

func TestGeneratorDeterministic(t *testing.T) {
	reg := seedRegistry(t)
	now := time.Unix(0, 1700000000000)

	a, err := NewGenerator(reg, 1, 10000, 25, 42)
	require.NoError(t, err)
	b, err := NewGenerator(reg, 1, 10000, 25, 42)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Next(now), b.Next(now))
	}
}

func TestGeneratorStreamAppliesCleanly(t *testing.T) {
	reg := seedRegistry(t)
	g, err := NewGenerator(reg, 1, 10000, 25, 7)
	require.NoError(t, err)

	instrumentID, _ := reg.InstrumentIDByName("ESU6")
	b := book.NewOrderBook(instrumentID, schema.BookTypeL2MBP,
		schema.ScaleSpec{PriceScale: 2, QuantityScale: 1})

	now := time.Unix(0, 1700000000000)
	for i := 0; i < 500; i++ {
		require.NoError(t, b.ApplyDeltas(g.Next(now)))
	}

	assert.True(t, b.HasBid())
	assert.True(t, b.HasAsk())
	assert.Positive(t, b.UpdateCount)
}

func TestGeneratorRejectsEmptyRegistry(t *testing.T) {
	_, err := NewGenerator(schema.NewRegistry(), 1, 10000, 25, 1)
	assert.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	reg := seedRegistry(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{
		"books": [
			{
				"instrument": "ESU6",
				"bids": [["100.25", "5.0"], ["100.00", "7.5"]],
				"asks": [["100.50", "4.0"]]
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	batches, err := LoadSeed(path, reg)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Deltas, 3)

	first := batches[0].Deltas[0]
	assert.Equal(t, schema.BookActionAdd, first.Action)
	assert.Equal(t, schema.OrderSideBuy, first.Order.Side)
	assert.Equal(t, schema.Price(10025), first.Order.Price)
	assert.Equal(t, schema.Quantity(50), first.Order.Size)

	ask := batches[0].Deltas[2]
	assert.Equal(t, schema.OrderSideSell, ask.Order.Side)
	assert.Equal(t, schema.Price(10050), ask.Order.Price)
}

func TestLoadSeedUnknownInstrument(t *testing.T) {
	reg := seedRegistry(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{"books": [{"instrument": "NQU6", "bids": [], "asks": []}]}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	_, err := LoadSeed(path, reg)
	assert.Error(t, err)
}

func TestLoadSeedMalformedRow(t *testing.T) {
	reg := seedRegistry(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{"books": [{"instrument": "ESU6", "bids": [["100.25"]], "asks": []}]}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	_, err := LoadSeed(path, reg)
	assert.Error(t, err)
}
