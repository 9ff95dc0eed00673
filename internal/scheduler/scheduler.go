// Package scheduler runs timed callbacks cooperatively on the control goroutine.
//
// Nothing here is safe for concurrent use. Every method must be called from the
// goroutine that calls Tick, which is how the controller keeps its state free of
// locks.
package scheduler

import "time"

// Handle identifies a registered callback. The zero Handle is never issued.
type Handle uint64

// Clock returns the current time. Tests inject a manual clock.
type Clock func() time.Time

type entry struct {
	id       Handle
	fn       func()
	period   time.Duration // zero for one-shot timeouts
	due      time.Time
	canceled bool
}

// Scheduler holds repeating intervals and one-shot timeouts.
type Scheduler struct {
	now     Clock
	entries []*entry
	byID    map[Handle]*entry
	lastID  Handle
	ticking bool
}

// New returns a scheduler reading time from clock, or from time.Now when nil.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		now:  clock,
		byID: make(map[Handle]*entry),
	}
}

// Now reports the scheduler's clock.
func (s *Scheduler) Now() time.Time { return s.now() }

// AddInterval calls fn every period until the handle is canceled.
// The first call happens one period from now.
func (s *Scheduler) AddInterval(fn func(), period time.Duration) Handle {
	if period <= 0 {
		period = time.Nanosecond
	}
	return s.add(fn, period, period)
}

// AddTimeout calls fn once after delay and then forgets it.
func (s *Scheduler) AddTimeout(fn func(), delay time.Duration) Handle {
	if delay < 0 {
		delay = 0
	}
	return s.add(fn, delay, 0)
}

// Defer queues fn for the next Tick.
func (s *Scheduler) Defer(fn func()) {
	s.add(fn, 0, 0)
}

func (s *Scheduler) add(fn func(), delay, period time.Duration) Handle {
	s.lastID++
	e := &entry{
		id:     s.lastID,
		fn:     fn,
		period: period,
		due:    s.now().Add(delay),
	}
	s.entries = append(s.entries, e)
	s.byID[e.id] = e
	return e.id
}

// Cancel removes a registration. Unknown, fired and already canceled handles
// are ignored.
func (s *Scheduler) Cancel(h Handle) {
	e, ok := s.byID[h]
	if !ok {
		return
	}
	e.canceled = true
	delete(s.byID, h)
	if !s.ticking {
		s.compact()
	}
}

// Pending reports whether h is still registered.
func (s *Scheduler) Pending(h Handle) bool {
	_, ok := s.byID[h]
	return ok
}

// Len is the number of live registrations.
func (s *Scheduler) Len() int { return len(s.byID) }

// Tick runs every callback that is due, in registration order. Callbacks
// registered while ticking wait for the next Tick. A callback canceled by an
// earlier callback in the same Tick is skipped.
func (s *Scheduler) Tick() {
	now := s.now()
	batch := make([]*entry, len(s.entries))
	copy(batch, s.entries)

	s.ticking = true
	for _, e := range batch {
		if e.canceled || now.Before(e.due) {
			continue
		}
		if e.period == 0 {
			e.canceled = true
			delete(s.byID, e.id)
		} else {
			e.due = e.due.Add(e.period)
			if !e.due.After(now) {
				// fell behind; skip the missed periods instead of bursting
				e.due = now.Add(e.period)
			}
		}
		e.fn()
	}
	s.ticking = false
	s.compact()
}

func (s *Scheduler) compact() {
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.canceled {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = live
}
