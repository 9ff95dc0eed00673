package deferred

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"controlling_shade/internal/scheduler"
)

// queue is a step-at-a-time dispatcher so tests can observe when continuations run.
type queue struct{ fns []func() }

func (q *queue) Defer(fn func()) { q.fns = append(q.fns, fn) }

// step runs everything queued so far; work queued meanwhile waits for the next step.
func (q *queue) step() {
	fns := q.fns
	q.fns = nil
	for _, fn := range fns {
		fn()
	}
}

func (q *queue) drain() {
	for i := 0; len(q.fns) > 0; i++ {
		if i > 1000 {
			panic("queue does not drain")
		}
		q.step()
	}
}

func TestSucceed_SingleAssignment(t *testing.T) {
	q := &queue{}
	p := New[int](q)
	if !p.Succeed(1) {
		t.Fatalf("first Succeed must report true")
	}
	if p.Succeed(2) || p.Fail(errors.New("late")) {
		t.Fatalf("second settlement must report false")
	}
	v, err := p.Result()
	if v != 1 || err != nil {
		t.Fatalf("result=(%d,%v)", v, err)
	}
}

func TestFail_NilErrorBecomesErrFailed(t *testing.T) {
	p := Failed[int](&queue{}, nil)
	if !errors.Is(p.Err(), ErrFailed) {
		t.Fatalf("err=%v, want ErrFailed", p.Err())
	}
}

func TestThen_ContinuationNeverRunsInline(t *testing.T) {
	q := &queue{}
	p := Resolved(q, 5)
	ran := false
	Then(p, func(v int) *Deferred[int] {
		ran = true
		return nil
	})
	if ran {
		t.Fatalf("continuation ran inline")
	}
	q.step()
	if !ran {
		t.Fatalf("continuation did not run on the next step")
	}
}

func TestThen_AttachedBeforeAndAfterSettlement(t *testing.T) {
	q := &queue{}
	p := New[string](q)
	var got []string
	Then(p, func(s string) *Deferred[struct{}] { got = append(got, "before:"+s); return nil })
	p.Succeed("x")
	Then(p, func(s string) *Deferred[struct{}] { got = append(got, "after:"+s); return nil })
	q.drain()

	if want := []string{"before:x", "after:x"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestThen_FlattensPendingResult(t *testing.T) {
	q := &queue{}
	inner := New[int](q)
	out := Then(Resolved(q, 2), func(v int) *Deferred[int] { return inner })
	q.drain()
	if out.Settled() {
		t.Fatalf("outer settled before inner")
	}
	inner.Succeed(42)
	q.drain()
	v, err := out.Result()
	if v != 42 || err != nil {
		t.Fatalf("result=(%d,%v)", v, err)
	}
}

func TestFailure_SkipsThenAndReachesFinally(t *testing.T) {
	q := &queue{}
	boom := errors.New("boom")
	var steps []string

	start := New[int](q)
	a := Then(start, func(int) *Deferred[int] {
		steps = append(steps, "a")
		return Failed[int](q, boom)
	})
	b := Then(a, func(int) *Deferred[int] {
		steps = append(steps, "b")
		return Resolved(q, 0)
	})
	c := Map(b, func(int) (int, error) {
		steps = append(steps, "c")
		return 0, nil
	})
	cleanups := 0
	end := c.Finally(func() { cleanups++ })

	start.Succeed(1)
	q.drain()

	if !reflect.DeepEqual(steps, []string{"a"}) {
		t.Fatalf("steps=%v, want only a", steps)
	}
	if cleanups != 1 {
		t.Fatalf("finally ran %d times", cleanups)
	}
	if !errors.Is(end.Err(), boom) {
		t.Fatalf("terminal err=%v", end.Err())
	}
}

func TestFinally_PassesOutcomeThrough(t *testing.T) {
	q := &queue{}
	ok := Resolved(q, "v").Finally(func() {})
	bad := Failed[string](q, errors.New("bad")).Finally(func() {})
	q.drain()

	if v, err := ok.Result(); v != "v" || err != nil {
		t.Fatalf("success altered: (%q,%v)", v, err)
	}
	if bad.Err() == nil || bad.Err().Error() != "bad" {
		t.Fatalf("failure altered: %v", bad.Err())
	}
}

func TestMap_ErrorFailsChain(t *testing.T) {
	q := &queue{}
	out := Map(Resolved(q, 3), func(v int) (bool, error) {
		return false, errors.New("nope")
	})
	q.drain()
	if out.Err() == nil {
		t.Fatalf("expected failure")
	}
}

func TestCatch_ObservesFailureOnly(t *testing.T) {
	q := &queue{}
	var seen []error
	Resolved(q, 1).Catch(func(err error) { seen = append(seen, err) })
	Failed[int](q, errors.New("x")).Catch(func(err error) { seen = append(seen, err) })
	q.drain()
	if len(seen) != 1 || seen[0].Error() != "x" {
		t.Fatalf("seen=%v", seen)
	}
}

func TestWithScheduler_OneStepPerTick(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := scheduler.New(func() time.Time { return now })

	p := New[int](s)
	doubled := Map(p, func(v int) (int, error) { return v * 2, nil })
	p.Succeed(21)

	if doubled.Settled() {
		t.Fatalf("settled before any tick")
	}
	s.Tick()
	if v, _ := doubled.Result(); !doubled.Settled() || v != 42 {
		t.Fatalf("after one tick: settled=%v v=%d", doubled.Settled(), v)
	}
}
