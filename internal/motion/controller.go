// Package motion is the shade's motion controller: bounded moves, the homing
// procedure and the limit switch reaction. Everything runs on the control
// goroutine, driven by Tick and by callbacks on the cooperative scheduler.
package motion

import (
	"fmt"
	"math"
	"time"

	"controlling_shade/internal/deferred"
	"controlling_shade/internal/logger"
	"controlling_shade/internal/notify"
	"controlling_shade/internal/scheduler"
)

// Sender identifies controller publications on the bus.
const Sender = "motion"

const (
	ServiceInterval        = 2 * time.Millisecond
	StateNotifyInterval    = 10 * time.Second
	PositionNotifyInterval = 700 * time.Millisecond
)

// Options wires a Controller. Driver, Switch and Scheduler are required.
type Options struct {
	Driver    Driver
	Switch    Switch
	Scheduler Scheduler
	Bus       Publisher
	Events    EventSink
	Log       *logger.Logger
	Settings  Settings
}

type Controller struct {
	drv    Driver
	sw     Switch
	sch    Scheduler
	bus    Publisher
	events EventSink
	log    *logger.Logger

	cfg Settings

	state   AppState
	rt      RuntimeInfo
	homing  *deferred.Deferred[struct{}]
	// abort fails the running homing chain at its next phase boundary
	abort   error
	handles []scheduler.Handle

	lastSwitchErr string
}

func New(opts Options) *Controller {
	c := &Controller{
		drv:    opts.Driver,
		sw:     opts.Switch,
		sch:    opts.Scheduler,
		bus:    opts.Bus,
		events: opts.Events,
		log:    logger.OrNop(opts.Log),
		cfg:    opts.Settings,
	}
	if c.events == nil {
		c.events = nopSink{}
	}
	return c
}

// Begin configures the driver, hooks the limit switch and registers the
// service and notification loops. The controller enters Initializing.
func (c *Controller) Begin() {
	c.applyDriverConfig()
	if err := c.drv.Disable(); err != nil {
		c.log.Warnw("actuator_disable_failed", "err", err)
	}

	c.sw.OnPress(c.endstopTriggered)
	c.sw.OnRelease(c.endstopReleased)

	c.handles = append(c.handles,
		c.sch.AddInterval(c.service, ServiceInterval),
		c.sch.AddInterval(c.notifyState, StateNotifyInterval),
		c.sch.AddInterval(c.notifyPosition, PositionNotifyInterval),
	)
	c.setState(Initializing)
}

// Ready finishes initialization.
func (c *Controller) Ready() {
	if c.state == Initializing {
		c.setState(StandBy)
	}
}

// Shutdown stops the motor and removes the controller's loops.
func (c *Controller) Shutdown() {
	c.drv.Brake()
	if err := c.drv.Disable(); err != nil {
		c.log.Warnw("actuator_disable_failed", "err", err)
	}
	for _, h := range c.handles {
		c.sch.Cancel(h)
	}
	c.handles = nil
}

// Tick advances the actuator and samples the limit switch. Call it once per
// loop pass, before ticking the scheduler.
func (c *Controller) Tick(now time.Time) {
	if _, err := c.drv.Tick(now); err != nil {
		c.log.Errorw("actuator_tick_failed", "err", err)
		c.events.Emit(Event{Type: EventActuatorFault, Message: err.Error()})
		c.halt(fmt.Errorf("%w: %v", ErrActuatorFault, err))
	}
	if err := c.sw.Handle(now); err != nil {
		if msg := err.Error(); msg != c.lastSwitchErr {
			c.lastSwitchErr = msg
			c.log.Errorw("endstop_read_failed", "err", err)
		}
	} else {
		c.lastSwitchErr = ""
	}
}

func (c *Controller) State() AppState { return c.state }

func (c *Controller) Runtime() RuntimeInfo { return c.rt }

func (c *Controller) Snapshot() Snapshot {
	return Snapshot{State: c.state, Runtime: c.rt, EndstopPressed: c.sw.Pressed()}
}

// Settings returns the configuration in use.
func (c *Controller) Settings() Settings { return c.cfg }

// ApplySettings replaces the configuration. Calibration may change only in
// StandBy; nothing may change while moving or homing.
func (c *Controller) ApplySettings(s Settings) error {
	if c.state == Moving || c.state == Homing {
		return fmt.Errorf("%w: state %s", ErrNotStandBy, c.state)
	}
	if s.Calibration != c.cfg.Calibration && c.state != StandBy {
		return fmt.Errorf("%w: calibration is locked in state %s", ErrNotStandBy, c.state)
	}
	c.cfg = s
	c.applyDriverConfig()
	return nil
}

func (c *Controller) applyDriverConfig() {
	c.drv.SetReverse(c.cfg.Stepper.Reverse)
	c.drv.SetAcceleration(float64(c.cfg.Stepper.Acceleration))
	c.drv.SetMaxSpeed(float64(c.cfg.Stepper.OpenSpeed))
}

// Open moves to 0%, the home end of travel.
func (c *Controller) Open() error { return c.MoveTo(0) }

// Close moves to 100%, calibration.open_position steps from home.
func (c *Controller) Close() error { return c.MoveTo(100) }

// MoveTo moves to a percentage of travel, clamped to [0,100].
func (c *Controller) MoveTo(percent float64) error {
	k := math.Min(math.Max(percent, 0), 100) / 100
	if !c.rt.Homed {
		c.log.Infow("move_rejected", "reason", ErrNotHomed, "target", percent)
		return ErrNotHomed
	}
	c.rt.PositionTarget = k * 100
	c.publish(notify.PositionTarget, c.rt.PositionTarget)
	return c.MoveToStep(int(float64(c.cfg.Calibration.OpenPosition) * k))
}

// MoveToStep moves to an absolute step position. The cruise speed is the
// closing speed toward higher step counts and the opening speed otherwise.
func (c *Controller) MoveToStep(pos int) error {
	if !c.rt.Homed {
		c.log.Infow("move_rejected", "reason", ErrNotHomed, "step", pos)
		return ErrNotHomed
	}
	if pos == c.drv.Current() {
		c.log.Debugw("move_skipped", "reason", ErrAlreadyInPosition, "step", pos)
		return ErrAlreadyInPosition
	}

	switch c.state {
	case StandBy:
		if err := c.drv.Enable(); err != nil {
			return fmt.Errorf("enable actuator: %w", err)
		}
		c.rt.Moving = true
		c.notifyChanges()
		c.setState(Moving)
		c.events.Emit(Event{
			Type:     EventMoveStarted,
			Message:  fmt.Sprintf("Moving to step %d", pos),
			Metadata: map[string]any{"from": c.rt.Position, "to": pos, "target_percent": c.rt.PositionTarget},
		})
	case Moving:
		// retarget in flight
	default:
		return fmt.Errorf("%w: state %s", ErrNotStandBy, c.state)
	}

	speed := c.cfg.Stepper.OpenSpeed
	if pos > c.rt.Position {
		speed = c.cfg.Stepper.CloseSpeed
	}
	c.drv.SetMaxSpeed(float64(speed))
	c.drv.SetTarget(pos)
	c.log.Debugw("move", "step", pos, "speed", speed)
	return nil
}

// EmergencyStop brakes and releases the motor. Outside homing the controller
// returns to StandBy with the target resynchronized to where it stopped;
// during homing the running chain fails and cleans up after itself.
func (c *Controller) EmergencyStop() { c.halt(ErrHomingAborted) }

// halt stops the motor. A running homing chain fails with reason.
func (c *Controller) halt(reason error) {
	c.drv.Brake()
	if err := c.drv.Disable(); err != nil {
		c.log.Warnw("actuator_disable_failed", "err", err)
	}
	if c.state == Homing {
		c.log.Warnw("emergency_stop", "state", c.state, "reason", reason)
		if c.abort == nil {
			c.abort = reason
		}
		return
	}

	wasMoving := c.state == Moving
	c.rt.Moving = false
	if c.rt.Homed {
		c.rt.Position = c.drv.Current()
		c.rt.PositionTarget = float64(c.rt.Position) / float64(c.cfg.Calibration.OpenPosition) * 100
		c.publish(notify.PositionTarget, c.rt.PositionTarget)
	}
	c.notifyChanges()
	if c.state == Moving {
		c.setState(StandBy)
	}

	if wasMoving {
		c.log.Warnw("emergency_stop", "position", c.rt.Position, "target_percent", c.rt.PositionTarget)
		c.events.Emit(Event{
			Type:     EventEmergencyStop,
			Message:  "Motion stopped",
			Metadata: map[string]any{"position": c.rt.Position, "target_percent": c.rt.PositionTarget},
		})
	}
}

// ApplyOffset applies a changed calibration offset by shifting the step
// counter and driving back to the same logical position.
func (c *Controller) ApplyOffset() error {
	if c.state != StandBy {
		return fmt.Errorf("%w: state %s", ErrNotStandBy, c.state)
	}
	if !c.rt.Homed {
		return ErrNotHomed
	}
	newOffset := c.cfg.Calibration.Offset
	if newOffset == c.rt.Offset {
		return nil
	}

	pos := c.drv.Current()
	delta := newOffset - c.rt.Offset
	c.rt.Offset = newOffset
	c.drv.SetCurrent(pos - delta)
	c.rt.Position = pos - delta
	c.log.Infow("offset_applied", "offset", newOffset, "delta", delta)
	return c.MoveToStep(pos)
}

func (c *Controller) endstopTriggered() {
	c.log.Debugw("endstop_pressed", "state", c.state)
	if c.state == Moving {
		c.log.Warnw("endstop_pressed_while_moving")
		c.EmergencyStop()
	}
}

func (c *Controller) endstopReleased() {
	c.log.Debugw("endstop_released", "state", c.state)
}

func (c *Controller) service() {
	moving := c.drv.Moving()
	if c.state == Moving && !moving {
		c.drv.Brake()
		if err := c.drv.Disable(); err != nil {
			c.log.Warnw("actuator_disable_failed", "err", err)
		}
		c.rt.Moving = false
		c.rt.Position = c.drv.Current()
		c.setState(StandBy)
		c.notifyChanges()
		c.events.Emit(Event{
			Type:     EventMoveFinished,
			Message:  fmt.Sprintf("Reached step %d", c.rt.Position),
			Metadata: map[string]any{"position": c.rt.Position, "target_percent": c.rt.PositionTarget},
		})
	}
	if c.rt.Homed && moving {
		c.rt.Position = c.drv.Current()
	}
}

func (c *Controller) notifyState() {
	c.publish(notify.State, c.state)
	c.notifyChanges()
}

func (c *Controller) notifyPosition() {
	if c.state == Moving {
		c.publish(notify.Position, c.rt.Position)
	}
}

func (c *Controller) notifyChanges() {
	c.publish(notify.Homed, c.rt.Homed)
	c.publish(notify.Moving, c.rt.Moving)
	c.publish(notify.Position, c.rt.Position)
}

func (c *Controller) setState(s AppState) {
	if c.state == s {
		return
	}
	c.log.Infow("state_changed", "from", c.state, "to", s)
	c.state = s
	c.publish(notify.State, s)
}

func (c *Controller) publish(p notify.Property, v any) {
	if c.bus != nil {
		c.bus.Publish(Sender, p, v)
	}
}
