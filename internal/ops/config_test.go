package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	loaded, err := Load(filepath.Join("testdata", "engine.json"))
	require.NoError(t, err)

	assert.Equal(t, 4096, loaded.Engine.QueueCapacity)
	assert.Equal(t, 10, loaded.Engine.SnapshotDepth)
	assert.True(t, loaded.Engine.CheckIntegrity)
	assert.Equal(t, uint16(7), loaded.Engine.Source)

	esu6, ok := loaded.Registry.InstrumentIDByName("ESU6")
	require.True(t, ok)
	es, ok := loaded.Registry.InstrumentIDByName("ES")
	require.True(t, ok)

	require.Len(t, loaded.Subscriptions, 2)
	assert.Equal(t, esu6, loaded.Subscriptions[0].InstrumentID)
	assert.True(t, loaded.Subscriptions[0].BookDeltas)
	assert.Equal(t, []time.Duration{time.Second}, loaded.Subscriptions[0].SnapshotIntervals)

	assert.Equal(t, es, loaded.Subscriptions[1].InstrumentID)
	assert.False(t, loaded.Subscriptions[1].BookDeltas)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second}, loaded.Subscriptions[1].SnapshotIntervals)

	assert.True(t, loaded.Journal.Enabled)
	assert.Equal(t, "/tmp/mdj", loaded.Journal.Dir)
	assert.False(t, loaded.Store.Enabled)
	assert.Equal(t, 200, loaded.Feed.RatePerSec)
}

func TestLoadRegistryOnly(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("testdata", "engine.json"))
	require.NoError(t, err)

	venueID, ok := reg.VenueIDByName("XCME")
	require.True(t, ok)
	assert.Len(t, reg.InstrumentsByRoot(venueID, "ES"), 2)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRejectsUnknownVenue(t *testing.T) {
	path := writeConfig(t, `{
		"registry": {
			"venues": [{"name": "XCME"}],
			"instruments": [{"name": "A", "venue": "NOPE"}]
		}
	}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue not found")
}

func TestLoadRejectsUnknownBookType(t *testing.T) {
	path := writeConfig(t, `{
		"registry": {
			"venues": [{"name": "XCME"}],
			"instruments": [{"name": "A", "venue": "XCME", "bookType": "L4"}]
		}
	}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown book type")
}

func TestLoadRejectsUnknownSubscriptionInstrument(t *testing.T) {
	path := writeConfig(t, `{
		"registry": {"venues": [{"name": "XCME"}]},
		"subscriptions": [{"instrument": "MISSING", "bookDeltas": true}]
	}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instrument not found")
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	path := writeConfig(t, `{
		"registry": {
			"venues": [{"name": "XCME"}],
			"instruments": [{"name": "A", "venue": "XCME"}]
		},
		"subscriptions": [{"instrument": "A", "snapshotIntervalsMs": [0]}]
	}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be > 0")
}

func TestParseBookTypeDefaultsToL2(t *testing.T) {
	bt, err := parseBookType("")
	require.NoError(t, err)
	assert.Equal(t, "L2_MBP", bt.String())
}
