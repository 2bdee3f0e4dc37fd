// internal/clock/clock.go
package clock

import (
	"sync"
	"time"
)

// Clock is the time source for hold windows, rate limits and timeouts.
// Production code uses Real(); tests drive a Fake.
type Clock interface {
	Now() time.Time
}

type wall struct{}

func (wall) Now() time.Time { return time.Now() }

// Real returns the wall clock.
func Real() Clock { return wall{} }

// Fake is a manually advanced clock. Safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
