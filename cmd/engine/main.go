package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/cache"
	"main/internal/clock"
	"main/internal/data"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/schema"
	"main/internal/store"
	"main/pkg/conn"
)

func main() {
	if err := run(); err != nil {
		log.Printf("engine: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to JSON config")
	journalDir := flag.String("journal-dir", "", "Override journal directory")
	replayDir := flag.String("replay-dir", "", "Replay a recorded journal instead of the live feed")
	replaySpeed := flag.Float64("replay-speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	statsInterval := flag.Duration("stats-interval", 30*time.Second, "Metrics log interval (0=disable)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "book-engine",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("pyroscope start failed: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if *journalDir != "" {
		loaded.Journal.Enabled = true
		loaded.Journal.Dir = *journalDir
	}

	bookCache := cache.New(loaded.Registry)
	msgBus := bus.NewBus()
	metrics := obs.NewMetrics()
	liveClock := clock.NewLiveClock(ctx)
	defer liveClock.Stop()

	engine := data.NewEngine(data.Config{
		QueueCapacity:  loaded.Engine.QueueCapacity,
		SnapshotDepth:  loaded.Engine.SnapshotDepth,
		CheckIntegrity: loaded.Engine.CheckIntegrity,
		Source:         loaded.Engine.Source,
	}, bookCache, msgBus, liveClock, metrics)

	for _, sub := range loaded.Subscriptions {
		if sub.BookDeltas {
			if err := engine.SubscribeBookDeltas(sub.InstrumentID); err != nil {
				return err
			}
		}
		if sub.BookDepth10 {
			if err := engine.SubscribeBookDepth10(sub.InstrumentID); err != nil {
				return err
			}
		}
		for _, interval := range sub.SnapshotIntervals {
			if err := engine.SubscribeBookSnapshots(sub.InstrumentID, interval); err != nil {
				return err
			}
		}
	}

	var wg sync.WaitGroup

	if loaded.Journal.Enabled {
		cleanup, err := startJournal(ctx, loaded.Journal, msgBus)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	if loaded.Store.Enabled {
		cleanup, err := startStore(ctx, &wg, loaded, msgBus)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	if *statsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logStats(ctx, *statsInterval, metrics)
		}()
	}

	if *replayDir != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer stop()
			if err := replayJournal(ctx, *replayDir, *replaySpeed, engine); err != nil && ctx.Err() == nil {
				log.Printf("replay failed: %v", err)
			}
		}()
	} else {
		feed, err := startFeed(loaded, engine)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			feed.Run(ctx)
		}()
	}

	engine.Run(ctx)
	wg.Wait()

	snapshot := metrics.Snapshot()
	log.Printf("final metrics: events=%v deltas=%d depth=%d snapshots=%d integrity_failures=%d drops=%d apply=%+v",
		snapshot.EventCounts, snapshot.DeltasApplied, snapshot.DepthApplied,
		snapshot.SnapshotsPublished, snapshot.IntegrityFailures, snapshot.QueueDrops,
		snapshot.ApplyLatency)
	engine.Cache().EachOrderBook(func(b *book.OrderBook) {
		_, instrument := resolveNames(loaded.Registry, b.InstrumentID)
		log.Printf("book %s: updates=%d seq=%d bid_size=%.2f ask_size=%.2f bid_exposure=%.2f ask_exposure=%.2f",
			instrument, b.UpdateCount, b.Sequence,
			b.BidLadder().Sizes(b.Scale.QuantityScale), b.AskLadder().Sizes(b.Scale.QuantityScale),
			b.BidLadder().Exposures(b.Scale), b.AskLadder().Exposures(b.Scale))
	})
	return nil
}

func loadConfig(path string) (ops.Loaded, error) {
	if path != "" {
		return ops.Load(path)
	}
	return defaultLoaded()
}

// defaultLoaded wires a single simulated instrument so the binary runs
// without any config file.
func defaultLoaded() (ops.Loaded, error) {
	reg := schema.NewRegistry()
	venueID, err := reg.AddVenue("SIM")
	if err != nil {
		return ops.Loaded{}, err
	}
	scale := schema.ScaleSpec{PriceScale: 2, QuantityScale: 1}
	instrumentID, err := reg.AddInstrument("TEST-USD", "", venueID, scale, schema.BookTypeL2MBP)
	if err != nil {
		return ops.Loaded{}, err
	}
	return ops.Loaded{
		Registry: reg,
		Engine: ops.EngineConfig{
			QueueCapacity:  65536,
			SnapshotDepth:  10,
			CheckIntegrity: true,
			Source:         1,
		},
		Subscriptions: []ops.Subscription{
			{
				InstrumentID:      instrumentID,
				BookDeltas:        true,
				SnapshotIntervals: []time.Duration{time.Second},
			},
		},
		Feed: ops.FeedConfig{RatePerSec: 100},
	}, nil
}

func startFeed(loaded ops.Loaded, engine *data.Engine) (*mdg.Feed, error) {
	generator, err := mdg.NewGenerator(loaded.Registry, loaded.Engine.Source, 10000, 25, loaded.Feed.Seed)
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	feed := mdg.NewFeed(generator, engine, obs.NewTraceGenerator(0), loaded.Feed.RatePerSec)

	if loaded.Feed.SeedFile != "" {
		batches, err := mdg.LoadSeed(loaded.Feed.SeedFile, loaded.Registry)
		if err != nil {
			return nil, fmt.Errorf("seed load failed: %w", err)
		}
		if err := feed.SeedBooks(batches); err != nil {
			return nil, fmt.Errorf("seed publish failed: %w", err)
		}
	}
	return feed, nil
}

// startJournal records every bus publication to disk. The writer has
// its own queue, so the bus handler never blocks the engine loop.
func startJournal(ctx context.Context, cfg ops.JournalConfig, msgBus *bus.Bus) (func(), error) {
	writerCfg := recorder.DefaultConfig(cfg.Dir)
	if cfg.FilePrefix != "" {
		writerCfg.FilePrefix = cfg.FilePrefix
	}
	writerCfg.FlushInterval = time.Second
	writerCfg.CopyPayload = true

	writer, err := recorder.NewWriter(writerCfg)
	if err != nil {
		return nil, fmt.Errorf("journal init failed: %w", err)
	}
	if err := writer.Start(ctx); err != nil {
		return nil, fmt.Errorf("journal start failed: %w", err)
	}

	var scratch []byte
	subID := msgBus.Subscribe("data.book.*", func(e bus.Event) {
		var err error
		scratch, err = recorder.AppendEvent(writer, e, scratch)
		if err != nil {
			log.Printf("journal append failed: %v", err)
		}
	})

	return func() {
		msgBus.Unsubscribe(subID)
		if err := writer.Close(); err != nil {
			log.Printf("journal close failed: %v", err)
		}
	}, nil
}

// startStore persists published snapshots to PostgreSQL through a
// bounded queue drained off the engine goroutine.
func startStore(ctx context.Context, wg *sync.WaitGroup, loaded ops.Loaded, msgBus *bus.Bus) (func(), error) {
	client, err := conn.New(conn.Option{
		Host:     loaded.Store.Host,
		Port:     loaded.Store.Port,
		User:     loaded.Store.User,
		Password: loaded.Store.Password,
		Database: loaded.Store.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("store connect failed: %w", err)
	}

	snapshotStore := store.New(client)
	if err := snapshotStore.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	queue := bus.NewQueue(1024)
	subID := msgBus.Subscribe("data.book.snapshots.*", func(e bus.Event) {
		_ = queue.TryPublish(e)
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			snapshot, ok := e.Payload.(schema.OrderBookSnapshot)
			if !ok {
				return
			}
			venue, instrument := resolveNames(loaded.Registry, snapshot.InstrumentID)
			if err := snapshotStore.Save(ctx, venue, instrument, snapshot); err != nil {
				log.Printf("snapshot save failed: %v", err)
			}
		})
	}()

	return func() {
		msgBus.Unsubscribe(subID)
		queue.Close()
		if err := client.Close(); err != nil {
			log.Printf("store close failed: %v", err)
		}
	}, nil
}

func resolveNames(reg *schema.Registry, instrumentID schema.InstrumentID) (string, string) {
	inst, ok := reg.Instrument(instrumentID)
	if !ok {
		return "", ""
	}
	venue, ok := reg.Venue(inst.VenueID)
	if !ok {
		return "", inst.Name
	}
	return venue.Name, inst.Name
}

func replayJournal(ctx context.Context, dir string, speed float64, engine *data.Engine) error {
	// Snapshots in the journal are engine output; replay feeds inputs
	// only.
	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:   dir,
		Speed: speed,
		EventTypes: []schema.EventType{
			schema.EventBookDelta,
			schema.EventBookDeltas,
			schema.EventBookDepth10,
		},
	})
	if err != nil {
		return err
	}
	return playback.Run(ctx, func(rec recorder.Record) error {
		e, err := recorder.DecodeEvent(rec)
		if err != nil {
			return err
		}
		for {
			err := engine.Publish(e)
			if !errors.Is(err, bus.ErrQueueFull) {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	})
}

func logStats(ctx context.Context, interval time.Duration, metrics *obs.Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := metrics.Snapshot()
			log.Printf("metrics: events=%v deltas=%d depth=%d snapshots=%d drops=%d event_latency=%+v",
				snapshot.EventCounts, snapshot.DeltasApplied, snapshot.DepthApplied,
				snapshot.SnapshotsPublished, snapshot.QueueDrops, snapshot.EventLatency)
		}
	}
}
