package recorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/schema"
)

func testDelta(instrumentID schema.InstrumentID, seq uint64, price schema.Price) schema.OrderBookDelta {
	return schema.OrderBookDelta{
		InstrumentID: instrumentID,
		Action:       schema.BookActionAdd,
		Order: schema.BookOrder{
			Side:    schema.OrderSideBuy,
			Price:   price,
			Size:    schema.Quantity(5),
			OrderID: seq,
		},
		Sequence: seq,
		TsEvent:  int64(seq),
	}
}

func writeJournal(t *testing.T, dir string, events []bus.Event) {
	t.Helper()

	cfg := DefaultConfig(dir)
	cfg.CopyPayload = true
	writer, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, writer.Start(context.Background()))

	var scratch []byte
	for _, e := range events {
		scratch, err = AppendEvent(writer, e, scratch)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
}

func TestJournalWriteAndReplay(t *testing.T) {
	dir := t.TempDir()

	events := []bus.Event{
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 1, 10, 11), Payload: testDelta(7, 1, 100)},
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 2, 20, 21), Payload: testDelta(9, 2, 200)},
		{Header: schema.NewHeader(schema.EventBookDeltas, 1, 3, 30, 31), Payload: schema.OrderBookDeltas{
			InstrumentID: 7,
			Deltas:       []schema.OrderBookDelta{testDelta(7, 3, 101)},
		}},
	}
	writeJournal(t, dir, events)

	playback, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var got []bus.Event
	var instruments []schema.InstrumentID
	err = playback.Run(context.Background(), func(rec Record) error {
		e, err := DecodeEvent(rec)
		if err != nil {
			return err
		}
		got = append(got, e)
		instruments = append(instruments, rec.InstrumentID)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, events, got)
	assert.Equal(t, []schema.InstrumentID{7, 9, 7}, instruments)
}

func TestPlaybackFiltersEventTypes(t *testing.T) {
	dir := t.TempDir()

	snapshot := schema.OrderBookSnapshot{
		InstrumentID: 7,
		Bids:         []schema.BookOrder{{Side: schema.OrderSideBuy, Price: 100, Size: 5}},
		Sequence:     2,
		UpdateCount:  1,
	}
	writeJournal(t, dir, []bus.Event{
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 1, 10, 11), Payload: testDelta(7, 1, 100)},
		{Header: schema.NewHeader(schema.EventBookSnapshot, 2, 2, 20, 21), Payload: snapshot},
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 3, 30, 31), Payload: testDelta(7, 3, 101)},
	})

	playback, err := NewPlayback(PlaybackConfig{
		Dir:        dir,
		EventTypes: []schema.EventType{schema.EventBookDelta},
	})
	require.NoError(t, err)

	var types []schema.EventType
	err = playback.Run(context.Background(), func(rec Record) error {
		types = append(types, rec.Header.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []schema.EventType{schema.EventBookDelta, schema.EventBookDelta}, types)
}

func TestManifestWrittenOnSeal(t *testing.T) {
	dir := t.TempDir()

	writeJournal(t, dir, []bus.Event{
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 1, 10, 11), Payload: testDelta(7, 1, 100)},
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 2, 20, 21), Payload: testDelta(9, 2, 200)},
		{Header: schema.NewHeader(schema.EventBookDepth10, 1, 3, 30, 31), Payload: schema.OrderBookDepth10{InstrumentID: 7, Sequence: 3}},
	})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var segmentPath string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), segmentExt) {
			segmentPath = filepath.Join(dir, entry.Name())
		}
	}
	require.NotEmpty(t, segmentPath)

	manifest, ok := loadManifest(segmentPath)
	require.True(t, ok)
	assert.Equal(t, filepath.Base(segmentPath), manifest.Segment)
	assert.Equal(t, uint64(3), manifest.Records)
	assert.Equal(t, uint64(2), manifest.EventCounts[schema.EventBookDelta])
	assert.Equal(t, uint64(1), manifest.EventCounts[schema.EventBookDepth10])
	assert.Equal(t, []schema.InstrumentID{7, 9}, manifest.Instruments)
	assert.Equal(t, int64(10), manifest.FirstTsEvent)
	assert.Equal(t, int64(30), manifest.LastTsEvent)
	assert.Greater(t, manifest.Bytes, int64(0))
}

func TestPlaybackSkipsSegmentByManifest(t *testing.T) {
	dir := t.TempDir()

	writeJournal(t, dir, []bus.Event{
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 1, 10, 11), Payload: testDelta(7, 1, 100)},
	})

	playback, err := NewPlayback(PlaybackConfig{
		Dir:         dir,
		Instruments: []schema.InstrumentID{42},
	})
	require.NoError(t, err)

	err = playback.Run(context.Background(), func(rec Record) error {
		t.Fatalf("unexpected record for instrument %d", rec.InstrumentID)
		return nil
	})
	assert.NoError(t, err)
}

func TestJournalAppendBeforeStart(t *testing.T) {
	writer, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	assert.ErrorIs(t, writer.TryAppend(schema.EventHeader{}, 0, nil), ErrNotStarted)
}

type unhandledPayload string

func (unhandledPayload) EventType() schema.EventType { return schema.EventUnknown }

func TestJournalUnhandledPayload(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	writer, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, writer.Start(context.Background()))
	defer writer.Close()

	scratch, err := AppendEvent(writer, bus.Event{
		Header:  schema.NewHeader(schema.EventBookDelta, 1, 1, 10, 11),
		Payload: unhandledPayload("not a book payload"),
	}, nil)
	assert.NoError(t, err)
	assert.Empty(t, scratch)
}

func TestDecodeEventMalformedPayload(t *testing.T) {
	_, err := DecodeEvent(Record{
		Header:  schema.NewHeader(schema.EventBookDelta, 1, 1, 10, 11),
		Payload: []byte{0x01},
	})
	assert.Error(t, err)

	_, err = DecodeEvent(Record{
		Header: schema.NewHeader(schema.EventUnknown, 1, 1, 10, 11),
	})
	assert.Error(t, err)
}

func TestSegmentRotationBySize(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig(dir)
	cfg.SegmentMaxBytes = 200
	cfg.CopyPayload = true
	writer, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, writer.Start(context.Background()))

	var scratch []byte
	for seq := uint64(1); seq <= 8; seq++ {
		scratch, err = AppendEvent(writer, bus.Event{
			Header:  schema.NewHeader(schema.EventBookDelta, 1, seq, int64(seq*10), int64(seq*10+1)),
			Payload: testDelta(7, seq, schema.Price(100+seq)),
		}, scratch)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var segments int
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), segmentExt) {
			segments++
		}
	}
	assert.Greater(t, segments, 1)

	playback, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var seqs []uint64
	err = playback.Run(context.Background(), func(rec Record) error {
		seqs = append(seqs, rec.Header.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, seqs)
}

func TestPlaybackPacing(t *testing.T) {
	dir := t.TempDir()

	base := int64(time.Second)
	writeJournal(t, dir, []bus.Event{
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 1, base, 1), Payload: testDelta(7, 1, 100)},
		{Header: schema.NewHeader(schema.EventBookDelta, 1, 2, base+int64(20*time.Millisecond), 2), Payload: testDelta(7, 2, 101)},
	})

	playback, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 2})
	require.NoError(t, err)

	fc := &fakeClock{}
	playback.WithClock(fc)

	var count int
	err = playback.Run(context.Background(), func(Record) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, fc.slept)
}

type fakeClock struct {
	slept []time.Duration
}

func (f *fakeClock) Now() time.Time { return time.Time{} }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}
