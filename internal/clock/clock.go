package clock

import (
	"sync"
	"time"
)

// Clock is the single source of "now" for every sale window check.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns a Clock backed by the wall clock, truncated to whole seconds
// in UTC so that window comparisons match the persisted timestamps.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// Manual is a settable clock used by tests and replay tooling.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}
