package service

import (
	"context"
	"errors"
	"time"

	"controlling_shade/internal/logger"
)

// ErrRunnerStopped is returned by Do once the control loop has exited.
var ErrRunnerStopped = errors.New("control loop stopped")

// commandQueueSize bounds commands waiting for the next loop pass.
const commandQueueSize = 64

type command struct {
	fn   func() error
	done chan error
}

// Runner owns the control goroutine. Every touch of controller state happens
// inside Run, either in the tick function or in a command submitted with Do.
type Runner struct {
	interval time.Duration
	clock    func() time.Time
	tick     func(now time.Time)
	log      *logger.Logger

	// OnStart runs on the control goroutine before the first tick and
	// OnStop after the last one.
	OnStart func()
	OnStop  func()

	cmds    chan command
	stopped chan struct{}
}

func NewRunner(interval time.Duration, clock func() time.Time, tick func(now time.Time), log *logger.Logger) *Runner {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = 2 * time.Millisecond
	}
	return &Runner{
		interval: interval,
		clock:    clock,
		tick:     tick,
		log:      logger.OrNop(log),
		cmds:     make(chan command, commandQueueSize),
		stopped:  make(chan struct{}),
	}
}

// Run ticks at the configured interval until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.stopped)
	if r.OnStart != nil {
		r.OnStart()
	}

	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.log.Infow("control_loop_started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.drain()
			if r.OnStop != nil {
				r.OnStop()
			}
			r.log.Infow("control_loop_stopped")
			return
		case cmd := <-r.cmds:
			cmd.done <- cmd.fn()
		case <-t.C:
			r.drain()
			r.tick(r.clock())
		}
	}
}

func (r *Runner) drain() {
	for {
		select {
		case cmd := <-r.cmds:
			cmd.done <- cmd.fn()
		default:
			return
		}
	}
}

// Do runs fn on the control goroutine and returns its error.
func (r *Runner) Do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case r.cmds <- cmd:
	case <-r.stopped:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-r.stopped:
		// drained on the way out
		select {
		case err := <-cmd.done:
			return err
		default:
			return ErrRunnerStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped is closed when Run returns.
func (r *Runner) Stopped() <-chan struct{} { return r.stopped }
