// Package clock produces named timer events for the data engine. The
// live clock runs one goroutine per timer feeding a shared channel; the
// test clock advances manually so timer-driven behavior is deterministic
// in tests.
package clock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrTimerExists   = errors.New("clock: timer already registered")
	ErrTimerNotFound = errors.New("clock: timer not found")
)

// TimeEvent is one firing of a named timer.
type TimeEvent struct {
	Name    string
	TsEvent int64
}

// Clock schedules named repeating timers and delivers their firings on a
// single channel.
type Clock interface {
	// TimestampNs returns the current time in nanoseconds since the
	// epoch.
	TimestampNs() int64
	// SetTimer registers a repeating timer. startDelay offsets the first
	// firing from now; zero means one full interval.
	SetTimer(name string, interval time.Duration, startDelay time.Duration) error
	// CancelTimer stops and removes the named timer.
	CancelTimer(name string) error
	// C is the channel timer firings arrive on.
	C() <-chan TimeEvent
}

// LiveClock drives timers off the wall clock.
type LiveClock struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan TimeEvent
	timers map[string]context.CancelFunc
}

// NewLiveClock creates a running live clock. Stop releases its timers.
func NewLiveClock(ctx context.Context) *LiveClock {
	ctx, cancel := context.WithCancel(ctx)
	return &LiveClock{
		ctx:    ctx,
		cancel: cancel,
		ch:     make(chan TimeEvent, 256),
		timers: make(map[string]context.CancelFunc),
	}
}

func (c *LiveClock) TimestampNs() int64 {
	return time.Now().UnixNano()
}

func (c *LiveClock) SetTimer(name string, interval time.Duration, startDelay time.Duration) error {
	if interval <= 0 {
		return errors.New("clock: interval must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timers[name]; ok {
		return ErrTimerExists
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.timers[name] = cancel

	go func() {
		if startDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(startDelay):
				c.fire(ctx, name)
			}
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.fireAt(ctx, name, now.UnixNano())
			}
		}
	}()
	return nil
}

func (c *LiveClock) fire(ctx context.Context, name string) {
	c.fireAt(ctx, name, time.Now().UnixNano())
}

// fireAt drops the event if nobody is draining the channel; a stalled
// consumer must not back up timer goroutines.
func (c *LiveClock) fireAt(ctx context.Context, name string, ts int64) {
	select {
	case c.ch <- TimeEvent{Name: name, TsEvent: ts}:
	case <-ctx.Done():
	default:
	}
}

func (c *LiveClock) CancelTimer(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cancel, ok := c.timers[name]
	if !ok {
		return ErrTimerNotFound
	}
	cancel()
	delete(c.timers, name)
	return nil
}

func (c *LiveClock) C() <-chan TimeEvent {
	return c.ch
}

// Stop cancels every timer.
func (c *LiveClock) Stop() {
	c.cancel()
}

// TimerNames returns the registered timer names.
func (c *LiveClock) TimerNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.timers))
	for name := range c.timers {
		names = append(names, name)
	}
	return names
}
