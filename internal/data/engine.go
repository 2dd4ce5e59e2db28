package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/cache"
	"main/internal/clock"
	"main/internal/obs"
	"main/internal/schema"
)

// Config tunes the data engine.
type Config struct {
	// QueueCapacity bounds the inbound event queue.
	QueueCapacity int
	// SnapshotDepth caps levels per side in published snapshots; <= 0
	// publishes the full book.
	SnapshotDepth int
	// CheckIntegrity runs a structural book check after every applied
	// event.
	CheckIntegrity bool
	// Source tags event headers published by this engine.
	Source uint16
}

// Engine owns the live order books. It drains one inbound queue and one
// timer channel on a single goroutine: every book mutation and snapshot
// happens there, so books need no locks.
type Engine struct {
	cfg     Config
	cache   *cache.Cache
	bus     *bus.Bus
	queue   *bus.Queue
	clock   clock.Clock
	metrics *obs.Metrics

	updater     *BookUpdater
	snapshotter *Snapshotter

	deltaSubs map[schema.InstrumentID]struct{}
	depthSubs map[schema.InstrumentID]struct{}
	snapshots map[string]BookSnapshotInfo
}

// NewEngine wires an engine over the cache, bus and clock.
func NewEngine(cfg Config, c *cache.Cache, b *bus.Bus, clk clock.Clock, metrics *obs.Metrics) *Engine {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 65536
	}
	return &Engine{
		cfg:         cfg,
		cache:       c,
		bus:         b,
		queue:       bus.NewQueue(cfg.QueueCapacity),
		clock:       clk,
		metrics:     metrics,
		updater:     NewBookUpdater(c, metrics, cfg.CheckIntegrity),
		snapshotter: NewSnapshotter(c, b, metrics, cfg.Source, cfg.SnapshotDepth),
		deltaSubs:   make(map[schema.InstrumentID]struct{}),
		depthSubs:   make(map[schema.InstrumentID]struct{}),
		snapshots:   make(map[string]BookSnapshotInfo),
	}
}

// Cache exposes the book cache for same-goroutine readers.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Publish hands an event from a feed goroutine to the engine. It never
// blocks; drops and closed-queue attempts are counted.
func (e *Engine) Publish(event bus.Event) error {
	err := e.queue.TryPublish(event)
	switch {
	case errors.Is(err, bus.ErrQueueFull):
		e.metrics.IncQueueDrop()
	case errors.Is(err, bus.ErrQueueClosed):
		e.metrics.IncQueueClosed()
	}
	return err
}

// SubscribeBookDeltas starts maintaining a book from the instrument's
// delta stream and republishing applied batches on the bus.
func (e *Engine) SubscribeBookDeltas(instrumentID schema.InstrumentID) error {
	if err := e.ensureBook(instrumentID); err != nil {
		return err
	}
	e.deltaSubs[instrumentID] = struct{}{}
	return nil
}

// UnsubscribeBookDeltas stops republishing the instrument's deltas. The
// book stays in the cache.
func (e *Engine) UnsubscribeBookDeltas(instrumentID schema.InstrumentID) {
	delete(e.deltaSubs, instrumentID)
}

// SubscribeBookDepth10 starts maintaining a book from the instrument's
// depth stream and republishing applied snapshots on the bus.
func (e *Engine) SubscribeBookDepth10(instrumentID schema.InstrumentID) error {
	if err := e.ensureBook(instrumentID); err != nil {
		return err
	}
	e.depthSubs[instrumentID] = struct{}{}
	return nil
}

// UnsubscribeBookDepth10 stops republishing the instrument's depth.
func (e *Engine) UnsubscribeBookDepth10(instrumentID schema.InstrumentID) {
	delete(e.depthSubs, instrumentID)
}

// SubscribeBookSnapshots schedules periodic snapshot publication for the
// instrument. The first firing aligns to the next interval boundary so
// snapshots from different engines line up. A composite instrument (its
// name equals its root) snapshots the merged books of every instrument
// sharing the root.
func (e *Engine) SubscribeBookSnapshots(instrumentID schema.InstrumentID, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("data: snapshot interval must be positive, got %s", interval)
	}

	inst, ok := e.cache.Registry().Instrument(instrumentID)
	if !ok {
		return fmt.Errorf("data: unknown instrument %d", instrumentID)
	}
	venue, ok := e.cache.Registry().Venue(inst.VenueID)
	if !ok {
		return fmt.Errorf("data: unknown venue %d", inst.VenueID)
	}

	isComposite := inst.Name == inst.Root
	if isComposite {
		for _, component := range e.cache.Registry().InstrumentsByRoot(inst.VenueID, inst.Root) {
			if err := e.ensureBook(component.ID); err != nil {
				return err
			}
		}
	} else if err := e.ensureBook(instrumentID); err != nil {
		return err
	}

	intervalMs := interval.Milliseconds()
	info := BookSnapshotInfo{
		InstrumentID: instrumentID,
		VenueID:      inst.VenueID,
		IsComposite:  isComposite,
		Root:         inst.Root,
		Topic:        TopicBookSnapshots(venue.Name, inst.Name, intervalMs),
		IntervalMs:   intervalMs,
	}

	name := info.TimerName()
	if _, exists := e.snapshots[name]; exists {
		return nil
	}

	startDelay := time.Duration(interval.Nanoseconds() - e.clock.TimestampNs()%interval.Nanoseconds())
	if err := e.clock.SetTimer(name, interval, startDelay); err != nil {
		return err
	}
	e.snapshots[name] = info
	return nil
}

// UnsubscribeBookSnapshots cancels the instrument's snapshot schedule
// for the interval.
func (e *Engine) UnsubscribeBookSnapshots(instrumentID schema.InstrumentID, interval time.Duration) error {
	name := BookSnapshotInfo{InstrumentID: instrumentID, IntervalMs: interval.Milliseconds()}.TimerName()
	if _, ok := e.snapshots[name]; !ok {
		return fmt.Errorf("data: no snapshot schedule for instrument %d at %s", instrumentID, interval)
	}
	delete(e.snapshots, name)
	return e.clock.CancelTimer(name)
}

func (e *Engine) ensureBook(instrumentID schema.InstrumentID) error {
	if e.cache.HasOrderBook(instrumentID) {
		return nil
	}
	_, err := e.cache.AddOrderBook(instrumentID)
	return err
}

// Run drains events and timer firings until the context is done.
func (e *Engine) Run(ctx context.Context) {
	logs.Info("data engine started")
	defer logs.Info("data engine stopped")

	for {
		select {
		case <-ctx.Done():
			e.queue.Close()
			return
		case event, ok := <-e.queue.C():
			if !ok {
				return
			}
			e.handleEvent(event)
		case timeEvent := <-e.clock.C():
			e.handleTimeEvent(timeEvent)
		}
	}
}

// Drain processes everything already queued, then returns. Tests drive
// the engine with this instead of Run.
func (e *Engine) Drain() {
	for {
		select {
		case event, ok := <-e.queue.C():
			if !ok {
				return
			}
			e.handleEvent(event)
		case timeEvent := <-e.clock.C():
			e.handleTimeEvent(timeEvent)
		default:
			return
		}
	}
}

func (e *Engine) handleEvent(event bus.Event) {
	e.metrics.ObserveEvent(event.Header)

	b, err := e.updater.Apply(event)
	if err != nil {
		logs.Errorf("apply book event failed: %v", err)
		return
	}

	inst, ok := e.cache.Registry().Instrument(b.InstrumentID)
	if !ok {
		return
	}
	venue, ok := e.cache.Registry().Venue(inst.VenueID)
	if !ok {
		return
	}

	switch event.Payload.(type) {
	case schema.OrderBookDelta, schema.OrderBookDeltas:
		if _, subscribed := e.deltaSubs[b.InstrumentID]; subscribed {
			e.bus.Publish(TopicBookDeltas(venue.Name, inst.Name), event)
		}
	case schema.OrderBookDepth10:
		if _, subscribed := e.depthSubs[b.InstrumentID]; subscribed {
			e.bus.Publish(TopicBookDepth10(venue.Name, inst.Name), event)
		}
	}
}

func (e *Engine) handleTimeEvent(timeEvent clock.TimeEvent) {
	info, ok := e.snapshots[timeEvent.Name]
	if !ok {
		logs.Warnf("timer fired with no snapshot schedule: %s", timeEvent.Name)
		return
	}
	if err := e.snapshotter.Fire(info, timeEvent.TsEvent); err != nil {
		logs.Errorf("publish book snapshot failed: %v", err)
	}
}
