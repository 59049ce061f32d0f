// Package clock abstracts time so lease expiry and sweep scheduling are
// deterministic in tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time and periodic ticks.
type Clock interface {
	Now() time.Time
	Tick(d time.Duration) <-chan time.Time
}

// Real is the production clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Tick(d time.Duration) <-chan time.Time {
	return time.NewTicker(d).C
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
}

// NewFake creates a fake clock pinned to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start, ticks: make(chan time.Time, 1)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Tick(time.Duration) <-chan time.Time {
	return f.ticks
}

// Advance moves the clock forward without firing ticks.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Step fires one tick at the current fake time.
func (f *Fake) Step() {
	f.ticks <- f.Now()
}
