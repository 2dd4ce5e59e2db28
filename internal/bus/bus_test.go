package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func TestQueuePublishAndDrain(t *testing.T) {
	q := NewQueue(4)
	e := Event{Header: schema.EventHeader{Type: schema.EventBookDeltas, Seq: 1}}
	require.NoError(t, q.TryPublish(e))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan Event, 1)
	go q.Run(ctx, func(e Event) {
		got <- e
		cancel()
	})

	select {
	case out := <-got:
		assert.Equal(t, uint64(1), out.Header.Seq)
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(Event{}))
	assert.ErrorIs(t, q.TryPublish(Event{}), ErrQueueFull)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close() // double close is safe
	assert.ErrorIs(t, q.TryPublish(Event{}), ErrQueueClosed)
}

func TestQueueCloseDuringPublish(t *testing.T) {
	// hammer publish from several goroutines while closing mid-stream;
	// a send on the closed channel would panic under the race detector
	// and without it
	q := NewQueue(8)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				err := q.TryPublish(Event{})
				if errors.Is(err, ErrQueueClosed) {
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range q.C() {
		}
	}()

	q.Close()
	wg.Wait()
	assert.ErrorIs(t, q.TryPublish(Event{}), ErrQueueClosed)
}

func TestBusExactTopic(t *testing.T) {
	b := NewBus()
	var got []uint64
	b.Subscribe("data.book.deltas.XCME.ESU6", func(e Event) {
		got = append(got, e.Header.Seq)
	})

	b.Publish("data.book.deltas.XCME.ESU6", Event{Header: schema.EventHeader{Seq: 7}})
	b.Publish("data.book.deltas.XCME.NQU6", Event{Header: schema.EventHeader{Seq: 8}})

	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0])
}

func TestBusPrefixTopic(t *testing.T) {
	b := NewBus()
	var count int
	b.Subscribe("data.book.snapshots.*", func(Event) { count++ })

	b.Publish("data.book.snapshots.XCME.ESU6.1000", Event{})
	b.Publish("data.book.snapshots.XCME.NQU6.1000", Event{})
	b.Publish("data.book.deltas.XCME.ESU6", Event{})

	assert.Equal(t, 2, count)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	var count int
	id := b.Subscribe("topic", func(Event) { count++ })
	require.Equal(t, 1, b.SubscriberCount("topic"))

	b.Publish("topic", Event{})
	b.Unsubscribe(id)
	b.Publish("topic", Event{})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.SubscriberCount("topic"))

	b.Unsubscribe(999) // unknown id is a no-op
}

func TestBusMultipleSubscribers(t *testing.T) {
	b := NewBus()
	var a, c int
	b.Subscribe("topic", func(Event) { a++ })
	b.Subscribe("topic", func(Event) { c++ })

	b.Publish("topic", Event{})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}
