package motion

import (
	"errors"
	"time"

	"controlling_shade/internal/config"
	"controlling_shade/internal/notify"
	"controlling_shade/internal/scheduler"
)

// AppState is the controller's top-level state.
type AppState int

const (
	Uninitialized AppState = iota
	Initializing
	StandBy
	Moving
	Homing
)

func (s AppState) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case StandBy:
		return "StandBy"
	case Moving:
		return "Moving"
	case Homing:
		return "Homing"
	default:
		return "Unknown"
	}
}

// MarshalText lets the state appear by name in JSON payloads.
func (s AppState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// RuntimeInfo is owned by the Controller. Position is only meaningful when
// Homed is true.
type RuntimeInfo struct {
	Homed          bool    `json:"homed"`
	Moving         bool    `json:"moving"`
	Position       int     `json:"position"`
	PositionTarget float64 `json:"position_target"`
	Offset         int     `json:"offset"`
}

// Snapshot is a copy of the controller state for readers off the control goroutine.
type Snapshot struct {
	State          AppState    `json:"state"`
	Runtime        RuntimeInfo `json:"runtime"`
	EndstopPressed bool        `json:"endstop_pressed"`
}

var (
	ErrNotHomed            = errors.New("must home first")
	ErrAlreadyInPosition   = errors.New("already in position")
	ErrHomingForbidden     = errors.New("homing forbidden")
	ErrHomingInProgress    = errors.New("homing in progress")
	ErrNotStandBy          = errors.New("controller is not in StandBy")
	ErrMovementLimit       = errors.New("movement limit exceeded")
	ErrEndstopNotReset     = errors.New("endstop did not reset")
	ErrSecondMovementLimit = errors.New("second movement limit exceeded")
	ErrHomingAborted       = errors.New("homing aborted")
	ErrActuatorFault       = errors.New("actuator fault")
)

// Event types emitted to the EventSink.
const (
	EventHomingStarted   = "HOMING_STARTED"
	EventHomingSucceeded = "HOMING_SUCCEEDED"
	EventHomingFailed    = "HOMING_FAILED"
	EventMoveStarted     = "MOVE_STARTED"
	EventMoveFinished    = "MOVE_FINISHED"
	EventEmergencyStop   = "EMERGENCY_STOP"
	EventActuatorFault   = "ACTUATOR_FAULT"
)

// Event is a notable motion occurrence worth keeping in the history log.
type Event struct {
	Type     string
	Message  string
	Metadata map[string]any
}

// EventSink must not block the control goroutine.
type EventSink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Driver is the actuator surface used by the controller.
type Driver interface {
	Enable() error
	Disable() error
	Brake()
	Reset()
	SetReverse(bool)
	SetMaxSpeed(float64)
	SetAcceleration(float64)
	SetTarget(int)
	SetTargetRelative(int)
	SetCurrent(int)
	Current() int
	Moving() bool
	Tick(now time.Time) (bool, error)
}

// Switch is the debounced limit switch.
type Switch interface {
	Handle(now time.Time) error
	Pressed() bool
	OnPress(func())
	OnRelease(func())
}

// Scheduler is the cooperative timer the controller registers its loops on.
type Scheduler interface {
	AddInterval(fn func(), period time.Duration) scheduler.Handle
	AddTimeout(fn func(), delay time.Duration) scheduler.Handle
	Cancel(h scheduler.Handle)
	Defer(fn func())
}

// Publisher receives property changes.
type Publisher interface {
	Publish(sender string, p notify.Property, v any)
}

// Settings are the parts of the device configuration the controller reads.
type Settings struct {
	Stepper     config.StepperConfig
	Calibration config.CalibrationConfig
}
