package endstop

import (
	"errors"
	"testing"
	"time"
)

type fakeInput struct {
	v   bool
	err error
}

func (f *fakeInput) Read() (bool, error) { return f.v, f.err }

type counter struct{ press, release int }

func newWatched(in Input, hold time.Duration) (*Switch, *counter) {
	c := &counter{}
	s := New(in, hold)
	s.OnPress(func() { c.press++ })
	s.OnRelease(func() { c.release++ })
	return s, c
}

func TestSwitch_PressAfterHold(t *testing.T) {
	in := &fakeInput{}
	s, c := newWatched(in, 20*time.Millisecond)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = s.Handle(now)
	in.v = true
	for i := 0; i < 10; i++ {
		now = now.Add(2 * time.Millisecond)
		_ = s.Handle(now)
		if s.Pressed() && i < 9 {
			t.Fatalf("pressed after %d ms, hold is 20ms", (i+1)*2)
		}
	}
	now = now.Add(2 * time.Millisecond)
	_ = s.Handle(now)
	if !s.Pressed() || c.press != 1 {
		t.Fatalf("expected one press, got pressed=%v presses=%d", s.Pressed(), c.press)
	}
}

func TestSwitch_BounceIsIgnored(t *testing.T) {
	in := &fakeInput{}
	s, c := newWatched(in, 10*time.Millisecond)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		in.v = i%2 == 0
		now = now.Add(2 * time.Millisecond)
		_ = s.Handle(now)
	}
	if c.press != 0 || s.Pressed() {
		t.Fatalf("bouncing input produced a press")
	}
}

func TestSwitch_EdgeTriggered(t *testing.T) {
	in := &fakeInput{v: true}
	s, c := newWatched(in, 0)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		now = now.Add(time.Millisecond)
		_ = s.Handle(now)
	}
	in.v = false
	for i := 0; i < 5; i++ {
		now = now.Add(time.Millisecond)
		_ = s.Handle(now)
	}
	if c.press != 1 || c.release != 1 {
		t.Fatalf("press=%d release=%d, want 1/1", c.press, c.release)
	}
	if s.State() != Released || s.State().String() != "released" {
		t.Fatalf("state=%v", s.State())
	}
}

func TestSwitch_ReadErrorKeepsState(t *testing.T) {
	in := &fakeInput{v: true}
	s := New(in, 0)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.Handle(now)
	if !s.Pressed() {
		t.Fatalf("expected pressed")
	}
	in.err = errors.New("io")
	if err := s.Handle(now.Add(time.Millisecond)); err == nil {
		t.Fatalf("expected read error")
	}
	if !s.Pressed() {
		t.Fatalf("read error dropped the latch")
	}
}

func TestNew_NegativeHoldUsesDefault(t *testing.T) {
	if s := New(&fakeInput{}, -1); s.hold != DefaultHold {
		t.Fatalf("hold=%v", s.hold)
	}
}
