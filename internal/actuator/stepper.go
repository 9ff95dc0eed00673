// Package actuator drives a 4-wire stepper motor with a trapezoidal speed
// profile. The driver is advanced by calling Tick once per control loop pass.
package actuator

import (
	"math"
	"time"
)

const (
	// minSpeed keeps the last decelerating steps from crawling.
	minSpeed = 20.0
	// maxTickGap bounds the distance covered after a stalled loop pass.
	maxTickGap = 50 * time.Millisecond
)

// Stepper is not safe for concurrent use; it belongs to the control goroutine.
type Stepper struct {
	out Output

	enabled bool
	reverse bool
	moving  bool

	pos    int
	target int

	maxSpeed float64
	accel    float64
	speed    float64 // signed, steps/s
	frac     float64

	last time.Time
}

// NewStepper returns a disabled stepper writing coil steps to out.
// A nil out discards them.
func NewStepper(out Output) *Stepper {
	if out == nil {
		out = NopOutput{}
	}
	return &Stepper{out: out, maxSpeed: 100}
}

// Enable energizes the driver.
func (s *Stepper) Enable() error {
	s.enabled = true
	return s.out.Enable(true)
}

// Disable de-energizes the driver. A disabled driver cannot be moving.
func (s *Stepper) Disable() error {
	s.enabled = false
	s.halt()
	return s.out.Enable(false)
}

// Brake stops immediately at the current position.
func (s *Stepper) Brake() {
	s.target = s.pos
	s.halt()
}

// Reset stops the motor and zeroes the step counter at the current position.
func (s *Stepper) Reset() {
	s.pos = 0
	s.target = 0
	s.halt()
}

// SetReverse flips the physical direction of positive steps.
func (s *Stepper) SetReverse(r bool) { s.reverse = r }

// SetMaxSpeed sets the cruise speed in steps per second.
func (s *Stepper) SetMaxSpeed(v float64) {
	if v < minSpeed {
		v = minSpeed
	}
	s.maxSpeed = v
}

// SetAcceleration sets the acceleration in steps/s². Zero disables ramping.
func (s *Stepper) SetAcceleration(a float64) {
	if a < 0 {
		a = 0
	}
	s.accel = a
}

// SetTarget commands an absolute position.
func (s *Stepper) SetTarget(pos int) {
	s.target = pos
	if s.target != s.pos {
		s.moving = true
	}
}

// SetTargetRelative commands a position relative to the current one.
func (s *Stepper) SetTargetRelative(delta int) {
	s.SetTarget(s.pos + delta)
}

// SetCurrent redefines the current position without moving.
func (s *Stepper) SetCurrent(pos int) {
	s.pos = pos
	s.target = pos
	s.halt()
}

func (s *Stepper) Current() int  { return s.pos }
func (s *Stepper) Target() int   { return s.target }
func (s *Stepper) Moving() bool  { return s.moving }
func (s *Stepper) Enabled() bool { return s.enabled }

// Speed is the current signed speed in steps per second.
func (s *Stepper) Speed() float64 { return s.speed }

func (s *Stepper) halt() {
	s.moving = false
	s.speed = 0
	s.frac = 0
}

// Tick advances the motion profile to now and reports whether the motor is
// still moving. It returns the first error from the coil output.
func (s *Stepper) Tick(now time.Time) (bool, error) {
	if s.last.IsZero() {
		s.last = now
		return s.moving, nil
	}
	dt := now.Sub(s.last)
	s.last = now
	if dt > maxTickGap {
		dt = maxTickGap
	}
	if s.moving && !s.enabled {
		// a released driver drops whatever it was commanded
		s.target = s.pos
		s.halt()
	}
	if !s.moving || dt <= 0 {
		return s.moving, nil
	}

	remaining := s.target - s.pos
	if remaining == 0 {
		s.halt()
		return false, nil
	}
	s.speed = s.nextSpeed(remaining, dt.Seconds())
	s.frac += s.speed * dt.Seconds()

	n := int(s.frac)
	s.frac -= float64(n)
	if (n > 0 && remaining > 0 && n > remaining) || (n < 0 && remaining < 0 && n < remaining) {
		n = remaining
		s.frac = 0
	}

	var err error
	for ; n != 0 && err == nil; n -= sign(n) {
		err = s.step(sign(n))
	}
	if s.pos == s.target {
		s.halt()
	}
	return s.moving, err
}

func (s *Stepper) nextSpeed(remaining int, dt float64) float64 {
	dir := float64(sign(remaining))
	if s.accel == 0 {
		return dir * s.maxSpeed
	}
	if s.speed*dir < 0 {
		// heading away from the target after a retarget; slow down first
		return s.speed + dir*s.accel*dt
	}
	v := math.Abs(s.speed)
	if stopping := v * v / (2 * s.accel); float64(absInt(remaining)) <= stopping {
		v -= s.accel * dt
	} else {
		v += s.accel * dt
	}
	v = math.Max(minSpeed, math.Min(v, s.maxSpeed))
	return dir * v
}

func (s *Stepper) step(dir int) error {
	s.pos += dir
	if s.reverse {
		dir = -dir
	}
	return s.out.Step(dir)
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
