package timesource

import (
	"testing"
	"time"
)

func TestSource_AvailabilityFollowsClock(t *testing.T) {
	now := time.Date(1970, 1, 1, 0, 5, 0, 0, time.UTC)
	s := New(func() time.Time { return now }, 0)

	if s.Available() {
		t.Fatalf("available before first update")
	}
	if s.Update() {
		t.Fatalf("unsynchronized clock reported available")
	}
	now = time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)
	if !s.Update() || !s.Available() {
		t.Fatalf("synchronized clock not reported available")
	}
}

func TestSource_LocalTimes(t *testing.T) {
	utc := time.Date(2025, 5, 5, 21, 30, 0, 0, time.UTC)
	s := New(func() time.Time { return utc }, 5)

	wantLocal := utc.Add(5 * time.Hour).Unix() // 2025-05-06 02:30 local
	if got := s.LocalEpoch(); got != wantLocal {
		t.Fatalf("LocalEpoch=%d want %d", got, wantLocal)
	}
	wantMidnight := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC).Unix()
	if got := s.LocalMidnight(); got != wantMidnight {
		t.Fatalf("LocalMidnight=%d want %d", got, wantMidnight)
	}

	s.SetOffset(-3.5)
	wantMidnight = time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC).Unix()
	if got := s.LocalMidnight(); got != wantMidnight {
		t.Fatalf("LocalMidnight with negative offset=%d want %d", got, wantMidnight)
	}
}
