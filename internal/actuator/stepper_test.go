package actuator

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// run ticks s every 2ms until it stops or limit ticks pass, returning the tick count.
func run(t *testing.T, s *Stepper, start time.Time, limit int) (int, time.Time) {
	t.Helper()
	now := start
	for i := 1; i <= limit; i++ {
		now = now.Add(2 * time.Millisecond)
		moving, err := s.Tick(now)
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if !moving {
			return i, now
		}
	}
	t.Fatalf("stepper still moving after %d ticks (pos=%d target=%d)", limit, s.Current(), s.Target())
	return 0, now
}

func newEnabled(t *testing.T, out Output) *Stepper {
	t.Helper()
	s := NewStepper(out)
	if err := s.Enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	s.SetMaxSpeed(500)
	s.SetAcceleration(300)
	s.Tick(t0)
	return s
}

func TestStepper_ReachesAbsoluteTarget(t *testing.T) {
	rig := NewRig(1000)
	s := newEnabled(t, rig)
	s.SetTarget(400)
	if !s.Moving() {
		t.Fatalf("expected moving after SetTarget")
	}
	run(t, s, t0, 100000)
	if s.Current() != 400 {
		t.Fatalf("current=%d, want 400", s.Current())
	}
	if rig.Physical() != 1400 {
		t.Fatalf("physical=%d, want 1400", rig.Physical())
	}
}

func TestStepper_RelativeAndReverse(t *testing.T) {
	rig := NewRig(1000)
	s := newEnabled(t, rig)
	s.SetReverse(true)
	s.SetTargetRelative(-250)
	run(t, s, t0, 100000)
	if s.Current() != -250 {
		t.Fatalf("current=%d", s.Current())
	}
	if rig.Physical() != 1250 {
		t.Fatalf("reverse not applied: physical=%d", rig.Physical())
	}
}

func TestStepper_AccelerationLimitsSpeed(t *testing.T) {
	s := newEnabled(t, nil)
	s.SetTarget(100000)
	now := t0
	for i := 0; i < 50; i++ { // 100ms
		now = now.Add(2 * time.Millisecond)
		s.Tick(now)
	}
	// 300 steps/s² for 0.1s plus the speed floor
	if v := s.Speed(); v > minSpeed+300*0.1+1 {
		t.Fatalf("speed %.1f exceeds ramp", v)
	}
	for i := 0; i < 2000; i++ {
		now = now.Add(2 * time.Millisecond)
		s.Tick(now)
	}
	if v := s.Speed(); v != 500 {
		t.Fatalf("expected cruise at 500, got %.1f", v)
	}
}

func TestStepper_BrakeStopsImmediately(t *testing.T) {
	s := newEnabled(t, nil)
	s.SetTarget(5000)
	now := t0
	for i := 0; i < 200; i++ {
		now = now.Add(2 * time.Millisecond)
		s.Tick(now)
	}
	s.Brake()
	pos := s.Current()
	if s.Moving() || s.Target() != pos || s.Speed() != 0 {
		t.Fatalf("brake left motion: moving=%v target=%d pos=%d", s.Moving(), s.Target(), pos)
	}
	now = now.Add(2 * time.Millisecond)
	s.Tick(now)
	if s.Current() != pos {
		t.Fatalf("moved after brake")
	}
}

func TestStepper_DisabledDoesNotMove(t *testing.T) {
	s := newEnabled(t, nil)
	if err := s.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	s.SetTarget(100)
	moving, _ := s.Tick(t0.Add(10 * time.Millisecond))
	if s.Current() != 0 || moving {
		t.Fatalf("disabled stepper moved to %d (moving=%v)", s.Current(), moving)
	}
}

func TestStepper_ResetAndSetCurrent(t *testing.T) {
	s := newEnabled(t, nil)
	s.SetTarget(50)
	run(t, s, t0, 100000)
	s.Reset()
	if s.Current() != 0 || s.Target() != 0 || s.Moving() {
		t.Fatalf("reset: pos=%d target=%d moving=%v", s.Current(), s.Target(), s.Moving())
	}
	s.SetCurrent(-30)
	if s.Current() != -30 || s.Moving() {
		t.Fatalf("SetCurrent: pos=%d moving=%v", s.Current(), s.Moving())
	}
}

func TestStepper_SameTargetIsNotAMove(t *testing.T) {
	s := newEnabled(t, nil)
	s.SetTarget(0)
	if s.Moving() {
		t.Fatalf("target equal to position started a move")
	}
}

type failingOutput struct{ NopOutput }

func (failingOutput) Step(int) error { return errors.New("line busy") }

func TestStepper_OutputErrorSurfaces(t *testing.T) {
	s := newEnabled(t, failingOutput{})
	s.SetTarget(1000)
	var err error
	now := t0
	for i := 0; i < 100 && err == nil; i++ {
		now = now.Add(2 * time.Millisecond)
		_, err = s.Tick(now)
	}
	if err == nil {
		t.Fatalf("expected output error")
	}
}

func TestRig_SwitchAtBottom(t *testing.T) {
	r := NewRig(1)
	if p, _ := r.Read(); p {
		t.Fatalf("switch pressed above bottom")
	}
	_ = r.Step(-1)
	if p, _ := r.Read(); !p {
		t.Fatalf("switch not pressed at bottom")
	}
}
