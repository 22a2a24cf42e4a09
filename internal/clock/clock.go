// Package clock provides an injectable source of UTC time so that retry
// scheduling and run_at gating (spec.md §4.2) can be tested deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. All timestamp comparisons and formatting
// in the engine go through a Clock rather than calling time.Now directly.
type Clock interface {
	NowUTC() time.Time
}

// System is the production Clock backed by the wall clock, truncated to
// second resolution to match the persisted timestamp format (spec.md §3).
type System struct{}

// NowUTC returns the current wall-clock time in UTC, truncated to seconds.
func (System) NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Fake is a manually-advanced Clock for tests. Zero value starts at Go's
// zero time (January 1, year 1, UTC); use Set or Advance to move it.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock set to t (converted to UTC, second resolution).
func NewFake(t time.Time) *Fake {
	return &Fake{now: t.UTC().Truncate(time.Second)}
}

// NowUTC implements Clock.
func (f *Fake) NowUTC() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC().Truncate(time.Second)
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
