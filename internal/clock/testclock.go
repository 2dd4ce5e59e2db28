package clock

import (
	"errors"
	"sort"
	"sync"
	"time"
)

type testTimer struct {
	name     string
	interval time.Duration
	nextNs   int64
}

// TestClock is a manual clock: time only moves when Advance is called,
// and due timers fire in deterministic order.
type TestClock struct {
	mu     sync.Mutex
	nowNs  int64
	ch     chan TimeEvent
	timers map[string]*testTimer
}

// NewTestClock creates a test clock starting at nowNs.
func NewTestClock(nowNs int64) *TestClock {
	return &TestClock{
		nowNs:  nowNs,
		ch:     make(chan TimeEvent, 256),
		timers: make(map[string]*testTimer),
	}
}

func (c *TestClock) TimestampNs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowNs
}

func (c *TestClock) SetTimer(name string, interval time.Duration, startDelay time.Duration) error {
	if interval <= 0 {
		return errors.New("clock: interval must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timers[name]; ok {
		return ErrTimerExists
	}

	first := startDelay
	if first <= 0 {
		first = interval
	}
	c.timers[name] = &testTimer{
		name:     name,
		interval: interval,
		nextNs:   c.nowNs + first.Nanoseconds(),
	}
	return nil
}

func (c *TestClock) CancelTimer(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.timers[name]; !ok {
		return ErrTimerNotFound
	}
	delete(c.timers, name)
	return nil
}

func (c *TestClock) C() <-chan TimeEvent {
	return c.ch
}

// Advance moves the clock forward and emits every timer firing due in
// the window, ordered by firing time then name.
func (c *TestClock) Advance(d time.Duration) []TimeEvent {
	c.mu.Lock()
	target := c.nowNs + d.Nanoseconds()

	var due []TimeEvent
	for _, timer := range c.timers {
		for timer.nextNs <= target {
			due = append(due, TimeEvent{Name: timer.name, TsEvent: timer.nextNs})
			timer.nextNs += timer.interval.Nanoseconds()
		}
	}
	c.nowNs = target
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].TsEvent != due[j].TsEvent {
			return due[i].TsEvent < due[j].TsEvent
		}
		return due[i].Name < due[j].Name
	})

	for _, e := range due {
		c.ch <- e
	}
	return due
}
