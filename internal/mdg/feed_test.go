package mdg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/obs"
	"main/internal/schema"
)

type captivePublisher struct {
	events []bus.Event
	err    error
}

func (p *captivePublisher) Publish(e bus.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func TestFeedSeedBooks(t *testing.T) {
	reg := seedRegistry(t)
	gen, err := NewGenerator(reg, 3, 10000, 25, 1)
	require.NoError(t, err)

	pub := &captivePublisher{}
	feed := NewFeed(gen, pub, obs.NewTraceGenerator(1), 100)

	instrumentID, ok := reg.InstrumentIDByName("ESU6")
	require.True(t, ok)
	batches := []schema.OrderBookDeltas{{
		InstrumentID: instrumentID,
		Deltas: []schema.OrderBookDelta{{
			InstrumentID: instrumentID,
			Action:       schema.BookActionAdd,
			Order: schema.BookOrder{
				Side:    schema.OrderSideBuy,
				Price:   schema.Price(9900),
				Size:    schema.Quantity(10),
				OrderID: 9900,
			},
		}},
	}}
	require.NoError(t, feed.SeedBooks(batches))

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, schema.EventBookDeltas, e.Header.Type)
	assert.Equal(t, uint16(3), e.Header.Source)
	assert.Equal(t, uint64(1), e.Header.Seq)
	assert.NotZero(t, e.Header.TraceID)

	payload, ok := e.Payload.(schema.OrderBookDeltas)
	require.True(t, ok)
	require.Len(t, payload.Deltas, 1)
	assert.NotZero(t, payload.Deltas[0].TsEvent)
	assert.Equal(t, payload.Deltas[0].TsEvent, payload.Deltas[0].TsInit)
}

func TestFeedSequenceIncrements(t *testing.T) {
	reg := seedRegistry(t)
	gen, err := NewGenerator(reg, 1, 10000, 25, 1)
	require.NoError(t, err)

	pub := &captivePublisher{}
	feed := NewFeed(gen, pub, obs.NewTraceGenerator(1), 100)

	now := time.Unix(0, 1700000000000)
	require.NoError(t, feed.publish(gen.Next(now), now.UnixNano()))
	require.NoError(t, feed.publish(gen.Next(now), now.UnixNano()))

	require.Len(t, pub.events, 2)
	assert.Equal(t, uint64(1), pub.events[0].Header.Seq)
	assert.Equal(t, uint64(2), pub.events[1].Header.Seq)
	assert.NotEqual(t, pub.events[0].Header.TraceID, pub.events[1].Header.TraceID)
}
