package chrono

import (
	"coursewatch-backend/lib/timezone"
	"sync"
	"time"
)

// TimeAPI is the clock every time-dependent component reads from.
//
// note: fault injection point
type TimeAPI interface {
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the wall clock in the campus timezone.
type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now().In(timezone.Location)
}

func (StandardTime) Location() *time.Location {
	return timezone.Location
}

// FakeTime is a manually advanced clock for tests.
type FakeTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFakeTime(now time.Time) *FakeTime {
	return &FakeTime{now: now}
}

func (f *FakeTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *FakeTime) Location() *time.Location {
	return f.Now().Location()
}

func (f *FakeTime) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}
