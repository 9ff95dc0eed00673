// Package timesource provides local wall-clock time shifted by a configured
// UTC offset, and reports whether the system clock can be trusted yet.
package timesource

import (
	"sync"
	"time"
)

// minValidYear rejects the epoch-ish clock of a board that booted without
// network time.
const minValidYear = 2024

// UpdateInterval is how often the service refreshes the source.
const UpdateInterval = 24 * time.Hour

// Source is safe for concurrent use.
type Source struct {
	mu        sync.RWMutex
	now       func() time.Time
	offset    time.Duration
	available bool
}

// New returns a source for the given UTC offset in hours. now defaults to
// time.Now.
func New(now func() time.Time, offsetHours float64) *Source {
	if now == nil {
		now = time.Now
	}
	s := &Source{now: now}
	s.SetOffset(offsetHours)
	return s
}

// SetOffset changes the time zone offset in hours.
func (s *Source) SetOffset(hours float64) {
	s.mu.Lock()
	s.offset = time.Duration(hours * float64(time.Hour))
	s.mu.Unlock()
}

// Update re-checks the wall clock and reports availability.
func (s *Source) Update() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = s.now().UTC().Year() >= minValidYear
	return s.available
}

// Available reports whether the last Update saw a synchronized clock.
func (s *Source) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// LocalEpoch is the current local time as seconds since the Unix epoch.
func (s *Source) LocalEpoch() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Add(s.offset).Unix()
}

// LocalMidnight is the local epoch seconds of the start of the current local day.
func (s *Source) LocalMidnight() int64 {
	e := s.LocalEpoch()
	return e - mod(e, 86400)
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
