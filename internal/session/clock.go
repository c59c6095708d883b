package session

import (
	"sync"
	"time"
)

// Clock abstracts wall time and tickers so the eviction cadence can be
// driven by simulated ticks in tests instead of real time.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the session loops need.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewClock returns the real wall clock.
func NewClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }
func (rt *realTicker) Stop()               { rt.t.Stop() }

// FakeClock is a manually advanced clock for tests. Advance moves time
// forward and fires any tickers whose intervals have elapsed.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFakeClock returns a fake clock starting at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft := &fakeTicker{
		clk:      c,
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.now.Add(d),
	}
	c.tickers = append(c.tickers, ft)
	return ft
}

// Advance moves the clock forward and delivers due ticks. Ticks are
// delivered non-blocking, matching time.Ticker's drop-on-slow-reader
// behavior.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, ft := range c.tickers {
		if ft.stopped {
			continue
		}
		for !ft.next.After(c.now) {
			select {
			case ft.ch <- ft.next:
			default:
			}
			ft.next = ft.next.Add(ft.interval)
		}
	}
}

type fakeTicker struct {
	clk      *FakeClock
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (ft *fakeTicker) C() <-chan time.Time { return ft.ch }

func (ft *fakeTicker) Stop() {
	ft.clk.mu.Lock()
	defer ft.clk.mu.Unlock()
	ft.stopped = true
}
