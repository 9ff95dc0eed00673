// Package deferred implements a single-assignment result with chained
// continuations, used to sequence multi-step hardware operations on the
// cooperative scheduler without blocking it.
package deferred

import "errors"

// ErrFailed is used when Fail is called with a nil error.
var ErrFailed = errors.New("deferred: failed")

// Dispatcher runs a function on the next cooperative step.
// *scheduler.Scheduler satisfies it.
type Dispatcher interface {
	Defer(fn func())
}

type state uint8

const (
	pending state = iota
	resolved
	failed
)

// Deferred is a result that settles exactly once, either with a value or an
// error. Continuations attached before or after settlement always run on a
// later cooperative step, never inline.
type Deferred[T any] struct {
	d     Dispatcher
	state state
	value T
	err   error
	conts []func()
}

// New returns a pending result.
func New[T any](d Dispatcher) *Deferred[T] {
	return &Deferred[T]{d: d}
}

// Resolved returns a result already settled with v.
func Resolved[T any](d Dispatcher, v T) *Deferred[T] {
	p := New[T](d)
	p.Succeed(v)
	return p
}

// Failed returns a result already settled with err.
func Failed[T any](d Dispatcher, err error) *Deferred[T] {
	p := New[T](d)
	p.Fail(err)
	return p
}

// Succeed settles the result with v. It reports false if already settled.
func (p *Deferred[T]) Succeed(v T) bool {
	if p.state != pending {
		return false
	}
	p.state = resolved
	p.value = v
	p.flush()
	return true
}

// Fail settles the result with err. It reports false if already settled.
func (p *Deferred[T]) Fail(err error) bool {
	if p.state != pending {
		return false
	}
	if err == nil {
		err = ErrFailed
	}
	p.state = failed
	p.err = err
	p.flush()
	return true
}

// Settled reports whether a terminal state was reached.
func (p *Deferred[T]) Settled() bool { return p.state != pending }

// Result returns the value and error. Both are zero while pending.
func (p *Deferred[T]) Result() (T, error) { return p.value, p.err }

// Err returns the failure, if any.
func (p *Deferred[T]) Err() error { return p.err }

func (p *Deferred[T]) flush() {
	conts := p.conts
	p.conts = nil
	for _, fn := range conts {
		p.d.Defer(fn)
	}
}

func (p *Deferred[T]) on(fn func()) {
	if p.state != pending {
		p.d.Defer(fn)
		return
	}
	p.conts = append(p.conts, fn)
}

func (p *Deferred[T]) settleFrom(src *Deferred[T]) {
	if src.state == failed {
		p.Fail(src.err)
		return
	}
	p.Succeed(src.value)
}

// Finally runs fn once when p settles, whatever the outcome, and returns a
// result carrying p's outcome unchanged.
func (p *Deferred[T]) Finally(fn func()) *Deferred[T] {
	out := New[T](p.d)
	p.on(func() {
		fn()
		out.settleFrom(p)
	})
	return out
}

// Catch runs fn with the error if p fails. The outcome passes through.
func (p *Deferred[T]) Catch(fn func(error)) *Deferred[T] {
	out := New[T](p.d)
	p.on(func() {
		if p.state == failed {
			fn(p.err)
		}
		out.settleFrom(p)
	})
	return out
}

// Then runs fn with p's value when p succeeds and follows the result fn
// returns. A failure of p skips fn and is carried into the returned result.
// A nil result from fn counts as success with the zero value.
func Then[T, U any](p *Deferred[T], fn func(T) *Deferred[U]) *Deferred[U] {
	out := New[U](p.d)
	p.on(func() {
		if p.state == failed {
			out.Fail(p.err)
			return
		}
		next := fn(p.value)
		if next == nil {
			var zero U
			out.Succeed(zero)
			return
		}
		next.on(func() { out.settleFrom(next) })
	})
	return out
}

// Map is Then for a synchronous step. A non-nil error fails the chain.
func Map[T, U any](p *Deferred[T], fn func(T) (U, error)) *Deferred[U] {
	out := New[U](p.d)
	p.on(func() {
		if p.state == failed {
			out.Fail(p.err)
			return
		}
		v, err := fn(p.value)
		if err != nil {
			out.Fail(err)
			return
		}
		out.Succeed(v)
	})
	return out
}
