package motion

import (
	"errors"
	"fmt"

	"controlling_shade/internal/deferred"
	"controlling_shade/internal/scheduler"
)

type done = struct{}

// Homing drives into the limit switch to establish the zero position.
//
// The procedure runs as a chain of phases: prepare (nudge away from the
// switch), coarse seek toward the switch, rewind until it releases, fine
// seek at the slow homing speed, then the calibration offset move. Any
// failing phase skips the rest. The motor is always left braked and
// disabled and the controller returns to StandBy.
//
// Homing is only accepted in StandBy.
func (c *Controller) Homing() *deferred.Deferred[done] {
	if c.state != StandBy {
		c.log.Warnw("homing_rejected", "state", c.state)
		return deferred.Failed[done](c.sch, fmt.Errorf("%w in state %s", ErrHomingForbidden, c.state))
	}

	c.setState(Homing)
	c.rt.Position = 0
	c.rt.PositionTarget = 0
	c.rt.Homed = false
	c.rt.Moving = true
	c.abort = nil
	c.notifyChanges()
	c.events.Emit(Event{Type: EventHomingStarted, Message: "Homing started"})

	st := c.cfg.Stepper
	cal := c.cfg.Calibration

	prepared := deferred.Then(deferred.Resolved(c.sch, done{}), func(done) *deferred.Deferred[bool] {
		c.log.Debugw("homing_phase", "phase", "prepare")
		if err := c.drv.Enable(); err != nil {
			return deferred.Failed[bool](c.sch, fmt.Errorf("enable actuator: %w", err))
		}
		c.drv.Reset()
		c.drv.SetMaxSpeed(float64(st.HomingSpeed))
		c.drv.SetTarget(st.HomingSteps)
		return c.waitPhase(false)
	})

	coarse := deferred.Then(prepared, func(bool) *deferred.Deferred[bool] {
		c.log.Debugw("homing_phase", "phase", "coarse_seek")
		c.drv.SetTargetRelative(-st.HomingStepsMax)
		return c.waitPhase(true)
	})

	rewound := deferred.Then(coarse, func(hit bool) *deferred.Deferred[bool] {
		if !hit {
			return deferred.Failed[bool](c.sch, ErrMovementLimit)
		}
		c.log.Debugw("homing_phase", "phase", "rewind")
		c.drv.Brake()
		c.drv.SetTargetRelative(st.HomingSteps)
		return c.waitPhase(false)
	})

	fine := deferred.Then(rewound, func(stillPressed bool) *deferred.Deferred[bool] {
		if stillPressed {
			return deferred.Failed[bool](c.sch, ErrEndstopNotReset)
		}
		c.log.Debugw("homing_phase", "phase", "fine_seek")
		c.drv.SetMaxSpeed(float64(st.HomingSpeedSecond))
		c.drv.SetTargetRelative(-int(st.HomingFineFactor * float64(st.HomingSteps)))
		return c.waitPhase(true)
	})

	offset := deferred.Then(fine, func(hit bool) *deferred.Deferred[bool] {
		if !hit {
			return deferred.Failed[bool](c.sch, ErrSecondMovementLimit)
		}
		c.log.Debugw("homing_phase", "phase", "apply_offset", "offset", cal.Offset)
		c.drv.Brake()
		c.drv.SetMaxSpeed(float64(st.HomingSpeed))
		c.drv.SetTargetRelative(cal.Offset)
		return c.waitPhase(false)
	})

	finalized := deferred.Map(offset, func(bool) (done, error) {
		c.rt.Homed = true
		c.rt.Offset = cal.Offset
		c.rt.Position = 0
		c.drv.Reset()
		c.log.Infow("homing_succeeded")
		c.events.Emit(Event{Type: EventHomingSucceeded, Message: "Homing succeeded"})
		return done{}, nil
	})

	c.homing = finalized.
		Catch(func(err error) {
			c.log.Errorw("homing_failed", "err", err)
			c.events.Emit(Event{
				Type:     EventHomingFailed,
				Message:  err.Error(),
				Metadata: map[string]any{"fault": isHardwareFault(err)},
			})
		}).
		Finally(c.finishHoming)
	return c.homing
}

// HomingIfNeeded succeeds at once when already homed, fails when a homing
// run is in progress and otherwise starts one.
func (c *Controller) HomingIfNeeded() *deferred.Deferred[done] {
	if c.rt.Homed {
		return deferred.Resolved(c.sch, done{})
	}
	if c.state == Homing {
		return deferred.Failed[done](c.sch, ErrHomingInProgress)
	}
	return c.Homing()
}

// HomeAndMove homes if needed and then moves to percent.
func (c *Controller) HomeAndMove(percent float64) *deferred.Deferred[done] {
	return deferred.Map(c.HomingIfNeeded(), func(done) (done, error) {
		err := c.MoveTo(percent)
		if errors.Is(err, ErrAlreadyInPosition) {
			err = nil
		}
		return done{}, err
	})
}

// HomingActive reports whether a homing chain is running.
func (c *Controller) HomingActive() bool { return c.homing != nil }

func (c *Controller) finishHoming() {
	c.drv.Brake()
	if err := c.drv.Disable(); err != nil {
		c.log.Warnw("actuator_disable_failed", "err", err)
	}
	c.rt.Moving = false
	c.notifyChanges()
	c.setState(StandBy)
	c.homing = nil
	c.abort = nil
}

// waitPhase is waitMotion for a homing phase. It fails when the run was
// stopped while the phase was in flight.
func (c *Controller) waitPhase(detect bool) *deferred.Deferred[bool] {
	return deferred.Then(c.waitMotion(detect), func(v bool) *deferred.Deferred[bool] {
		if c.abort != nil {
			return deferred.Failed[bool](c.sch, c.abort)
		}
		return deferred.Resolved(c.sch, v)
	})
}

// waitMotion resolves once the motor stops, or, with detect set, as soon as
// the switch is pressed. The value is whether the switch was pressed. The
// poll is removed when the result settles.
func (c *Controller) waitMotion(detect bool) *deferred.Deferred[bool] {
	p := deferred.New[bool](c.sch)
	var h scheduler.Handle
	h = c.sch.AddInterval(func() {
		if p.Settled() {
			return
		}
		pressed := c.sw.Pressed()
		if (pressed && detect) || !c.drv.Moving() {
			p.Succeed(pressed)
		}
	}, ServiceInterval)
	return p.Finally(func() { c.sch.Cancel(h) })
}

func isHardwareFault(err error) bool {
	return errors.Is(err, ErrMovementLimit) ||
		errors.Is(err, ErrEndstopNotReset) ||
		errors.Is(err, ErrSecondMovementLimit) ||
		errors.Is(err, ErrActuatorFault)
}
