// Package endstop debounces the limit switch at the closed end of travel.
package endstop

import (
	"time"
)

// State is the debounced switch state.
type State int

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	switch s {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	default:
		return "unknown"
	}
}

// Input is the raw switch level; true means the switch is closed.
type Input interface {
	Read() (bool, error)
}

// DefaultHold is how long the raw input must stay closed to count as a press.
const DefaultHold = 20 * time.Millisecond

// Switch latches Pressed once the raw input has been closed for the hold time
// and Released as soon as it opens. Callbacks fire on edges only.
// It is polled from the control goroutine and is not safe for concurrent use.
type Switch struct {
	in   Input
	hold time.Duration

	raw      bool
	rawSince time.Time
	state    State

	onPress   func()
	onRelease func()
}

// New returns a released switch reading in. A negative hold uses DefaultHold.
func New(in Input, hold time.Duration) *Switch {
	if hold < 0 {
		hold = DefaultHold
	}
	return &Switch{in: in, hold: hold}
}

// OnPress sets the callback for the released-to-pressed edge.
func (s *Switch) OnPress(fn func()) { s.onPress = fn }

// OnRelease sets the callback for the pressed-to-released edge.
func (s *Switch) OnRelease(fn func()) { s.onRelease = fn }

// Handle samples the input once. On a read error the latched state is kept.
func (s *Switch) Handle(now time.Time) error {
	v, err := s.in.Read()
	if err != nil {
		return err
	}
	if v != s.raw || s.rawSince.IsZero() {
		s.raw = v
		s.rawSince = now
	}

	switch {
	case s.state == Released && s.raw && now.Sub(s.rawSince) >= s.hold:
		s.state = Pressed
		if s.onPress != nil {
			s.onPress()
		}
	case s.state == Pressed && !s.raw:
		s.state = Released
		if s.onRelease != nil {
			s.onRelease()
		}
	}
	return nil
}

// Pressed reports the latched state.
func (s *Switch) Pressed() bool { return s.state == Pressed }

// State returns the latched state.
func (s *Switch) State() State { return s.state }
