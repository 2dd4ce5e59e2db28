package mdg

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/obs"
	"main/internal/schema"
)

// Publisher accepts feed events; the data engine implements it.
type Publisher interface {
	Publish(bus.Event) error
}

// Feed drives the generator on its own goroutine, publishing delta
// batches at a fixed rate.
type Feed struct {
	generator *Generator
	publisher Publisher
	traceGen  *obs.TraceGenerator
	rate      int
	seq       uint64
}

// NewFeed creates a feed emitting ratePerSec batches per second.
func NewFeed(generator *Generator, publisher Publisher, traceGen *obs.TraceGenerator, ratePerSec int) *Feed {
	if ratePerSec <= 0 {
		ratePerSec = 100
	}
	return &Feed{
		generator: generator,
		publisher: publisher,
		traceGen:  traceGen,
		rate:      ratePerSec,
	}
}

// SeedBooks publishes the initial batches before the stream starts.
func (f *Feed) SeedBooks(batches []schema.OrderBookDeltas) error {
	now := time.Now().UnixNano()
	for _, batch := range batches {
		for i := range batch.Deltas {
			batch.Deltas[i].TsEvent = now
			batch.Deltas[i].TsInit = now
		}
		if err := f.publish(batch, now); err != nil {
			return err
		}
	}
	return nil
}

// Run emits batches until the context is done.
func (f *Feed) Run(ctx context.Context) {
	interval := time.Second / time.Duration(f.rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logs.Infof("synthetic feed started, rate=%d/s", f.rate)
	for {
		select {
		case <-ctx.Done():
			logs.Info("synthetic feed stopped")
			return
		case now := <-ticker.C:
			batch := f.generator.Next(now)
			if err := f.publish(batch, now.UnixNano()); err != nil {
				// queue pressure is expected under load, keep going
				continue
			}
		}
	}
}

func (f *Feed) publish(batch schema.OrderBookDeltas, ts int64) error {
	f.seq++
	header := schema.NewHeader(schema.EventBookDeltas, f.generator.Source(), f.seq, ts, time.Now().UnixNano())
	header.TraceID = f.traceGen.Next()
	return f.publisher.Publish(bus.Event{Header: header, Payload: batch})
}
