package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddAndLookup(t *testing.T) {
	reg := NewRegistry()

	venueID, err := reg.AddVenue("XCME")
	require.NoError(t, err)
	require.Equal(t, VenueID(1), venueID)

	scale := ScaleSpec{PriceScale: 2, QuantityScale: 0}
	instrumentID, err := reg.AddInstrument("ESU6", "ES", venueID, scale, BookTypeL2MBP)
	require.NoError(t, err)
	require.Equal(t, InstrumentID(1), instrumentID)

	inst, ok := reg.Instrument(instrumentID)
	require.True(t, ok)
	assert.Equal(t, "ESU6", inst.Name)
	assert.Equal(t, "ES", inst.Root)
	assert.Equal(t, venueID, inst.VenueID)
	assert.Equal(t, scale, inst.Scale)
	assert.Equal(t, BookTypeL2MBP, inst.BookType)

	venue, ok := reg.Venue(venueID)
	require.True(t, ok)
	assert.Equal(t, "XCME", venue.Name)

	byName, ok := reg.InstrumentIDByName("ESU6")
	require.True(t, ok)
	assert.Equal(t, instrumentID, byName)
}

func TestRegistryRootDefaultsToName(t *testing.T) {
	reg := NewRegistry()
	venueID, err := reg.AddVenue("XNAS")
	require.NoError(t, err)

	id, err := reg.AddInstrument("AAPL", "", venueID, ScaleSpec{}, BookTypeL2MBP)
	require.NoError(t, err)

	inst, ok := reg.Instrument(id)
	require.True(t, ok)
	assert.Equal(t, "AAPL", inst.Root)
}

func TestRegistryDuplicates(t *testing.T) {
	reg := NewRegistry()
	venueID, err := reg.AddVenue("XCME")
	require.NoError(t, err)

	dupVenue, err := reg.AddVenue("XCME")
	require.Error(t, err)
	assert.Equal(t, venueID, dupVenue)

	id, err := reg.AddInstrument("ESU6", "ES", venueID, ScaleSpec{}, BookTypeL2MBP)
	require.NoError(t, err)

	dupInst, err := reg.AddInstrument("ESU6", "ES", venueID, ScaleSpec{}, BookTypeL2MBP)
	require.Error(t, err)
	assert.Equal(t, id, dupInst)
}

func TestRegistryRejectsInvalidEntries(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.AddVenue("")
	require.Error(t, err)

	venueID, err := reg.AddVenue("XCME")
	require.NoError(t, err)

	_, err = reg.AddInstrument("", "", venueID, ScaleSpec{}, BookTypeL2MBP)
	require.Error(t, err)

	_, err = reg.AddInstrument("ESU6", "", VenueID(99), ScaleSpec{}, BookTypeL2MBP)
	require.Error(t, err)

	_, err = reg.AddInstrument("ESU6", "", venueID, ScaleSpec{}, BookType(0))
	require.Error(t, err)
}

func TestRegistryUnknownLookups(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Venue(VenueID(1))
	assert.False(t, ok)
	_, ok = reg.Instrument(InstrumentID(1))
	assert.False(t, ok)
	_, ok = reg.InstrumentAt(0)
	assert.False(t, ok)
	_, ok = reg.VenueIDByName("XCME")
	assert.False(t, ok)
	_, ok = reg.InstrumentIDByName("ESU6")
	assert.False(t, ok)
}

func TestInstrumentsByRoot(t *testing.T) {
	reg := NewRegistry()
	cme, err := reg.AddVenue("XCME")
	require.NoError(t, err)
	cbot, err := reg.AddVenue("XCBT")
	require.NoError(t, err)

	_, err = reg.AddInstrument("ESU6", "ES", cme, ScaleSpec{}, BookTypeL2MBP)
	require.NoError(t, err)
	_, err = reg.AddInstrument("ESZ6", "ES", cme, ScaleSpec{}, BookTypeL2MBP)
	require.NoError(t, err)
	_, err = reg.AddInstrument("ZNU6", "ZN", cbot, ScaleSpec{}, BookTypeL2MBP)
	require.NoError(t, err)

	es := reg.InstrumentsByRoot(cme, "ES")
	require.Len(t, es, 2)
	assert.Equal(t, "ESU6", es[0].Name)
	assert.Equal(t, "ESZ6", es[1].Name)

	assert.Empty(t, reg.InstrumentsByRoot(cbot, "ES"))
	assert.Equal(t, 3, reg.InstrumentCount())
}
