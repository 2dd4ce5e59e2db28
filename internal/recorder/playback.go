package recorder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// PlaybackConfig selects which journal frames to replay and how fast.
// EventTypes and Instruments are optional filters; an empty filter
// matches everything. Filters are applied on frame headers and, where
// a sealed segment carries a manifest, on whole segments.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	EventTypes      []schema.EventType
	Instruments     []schema.InstrumentID
	UseRecvTime     bool
	DisableChecksum bool
	MaxPayloadSize  int
}

// Playback streams journal segments in order, pacing frame delivery
// by the recorded timestamps.
type Playback struct {
	cfg         PlaybackConfig
	clock       Clock
	eventTypes  map[schema.EventType]struct{}
	instruments map[schema.InstrumentID]struct{}
}

// Clock abstracts sleeping so replay pacing is testable.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	if cfg.Dir == "" {
		return nil, errors.New("journal: playback dir is empty")
	}
	if cfg.Speed < 0 {
		return nil, errors.New("journal: playback speed must be >= 0")
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = defaultFilePrefix
	}

	p := &Playback{cfg: cfg, clock: realClock{}}
	if len(cfg.EventTypes) > 0 {
		p.eventTypes = make(map[schema.EventType]struct{}, len(cfg.EventTypes))
		for _, t := range cfg.EventTypes {
			p.eventTypes[t] = struct{}{}
		}
	}
	if len(cfg.Instruments) > 0 {
		p.instruments = make(map[schema.InstrumentID]struct{}, len(cfg.Instruments))
		for _, id := range cfg.Instruments {
			p.instruments[id] = struct{}{}
		}
	}
	return p, nil
}

// WithClock replaces the pacing clock. Intended for tests.
func (p *Playback) WithClock(clock Clock) *Playback {
	p.clock = clock
	return p
}

// Run replays all matching frames through handler in segment order.
// Segments whose manifest cannot match the filters are skipped whole.
func (p *Playback) Run(ctx context.Context, handler func(Record) error) error {
	paths, err := p.collectSegments()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("journal: no segments under %s match prefix %q", p.cfg.Dir, p.cfg.FilePrefix)
	}

	var lastTs int64
	for _, path := range paths {
		if p.segmentSkippable(path) {
			continue
		}
		lastTs, err = p.playSegment(ctx, path, lastTs, handler)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Playback) collectSegments() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("journal: read dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, p.cfg.FilePrefix+"-") || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		paths = append(paths, filepath.Join(p.cfg.Dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Playback) segmentSkippable(path string) bool {
	if p.eventTypes == nil && p.instruments == nil {
		return false
	}
	manifest, ok := loadManifest(path)
	if !ok {
		return false
	}
	return !manifest.hasAnyEvent(p.eventTypes) || !manifest.hasAnyInstrument(p.instruments)
}

func (p *Playback) keep(header schema.EventHeader, instrumentID schema.InstrumentID) bool {
	if p.eventTypes != nil {
		if _, ok := p.eventTypes[header.Type]; !ok {
			return false
		}
	}
	if p.instruments != nil {
		if _, ok := p.instruments[instrumentID]; !ok {
			return false
		}
	}
	return true
}

func (p *Playback) playSegment(ctx context.Context, path string, lastTs int64, handler func(Record) error) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return lastTs, fmt.Errorf("journal: open segment: %w", err)
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
		Keep:            p.keep,
	})

	for {
		if err := ctx.Err(); err != nil {
			return lastTs, err
		}
		rec, err := reader.Next()
		if err == io.EOF {
			return lastTs, nil
		}
		if err != nil {
			return lastTs, fmt.Errorf("journal: %s: %w", filepath.Base(path), err)
		}

		ts := rec.Header.TsEvent
		if p.cfg.UseRecvTime {
			ts = rec.Header.TsRecv
		}
		if err := p.pace(ctx, lastTs, ts); err != nil {
			return lastTs, err
		}
		lastTs = ts

		if err := handler(rec); err != nil {
			return lastTs, err
		}
	}
}

// pace sleeps the recorded inter-frame gap scaled by Speed. Speed 0
// replays as fast as the handler allows.
func (p *Playback) pace(ctx context.Context, lastTs, ts int64) error {
	if p.cfg.Speed == 0 || lastTs == 0 || ts <= lastTs {
		return nil
	}
	gap := time.Duration(float64(ts-lastTs) / p.cfg.Speed)
	return p.clock.Sleep(ctx, gap)
}
