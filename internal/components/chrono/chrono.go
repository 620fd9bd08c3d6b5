package chrono

import (
	"sync"
	"time"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location().
	Now() time.Time
	// Location is the timezone dates are derived in, a snapshot taken at 00:30 local time
	// belongs to that local day.
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl loads the named timezone, an empty name means UTC.
func NewStandardImpl(timezone string) (StandardImpl, error) {
	if timezone == "" {
		return StandardImpl{location: time.UTC}, nil
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl is an API whose time only moves when told to.
type FixedImpl struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedImpl(now time.Time) *FixedImpl {
	return &FixedImpl{now: now}
}

func (f *FixedImpl) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FixedImpl) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

// Advance moves the clock forward by d.
func (f *FixedImpl) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
