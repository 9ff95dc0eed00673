// Package registry maps wire names of device settings to typed accessors.
//
// Transports read and write settings by name through Lookup. Each field owns
// a getter and a parser over config.Settings, so nothing outside config ever
// holds a pointer into the settings struct.
package registry

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"controlling_shade/internal/config"
)

type Kind int

const (
	Bool Kind = iota
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Group decides which component must react to a write.
type Group int

const (
	Stepper Group = iota
	Calibration
	NightMode
	System
)

func (g Group) String() string {
	switch g {
	case Stepper:
		return "stepper"
	case Calibration:
		return "calibration"
	case NightMode:
		return "night_mode"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

func (g Group) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

type ID int

const (
	Reverse ID = iota
	Resolution
	OpenSpeed
	CloseSpeed
	Acceleration
	HomingSpeed
	HomingSpeedSecond
	HomingSteps
	HomingStepsMax
	HomingFineFactor
	OpenPosition
	Offset
	NightEnabled
	NightStart
	NightEnd
	TimeZone
	InvertPosition
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
	ErrOutOfRange   = errors.New("value out of range")
)

// Field describes one writable setting.
type Field struct {
	ID    ID      `json:"-"`
	Name  string  `json:"name"`
	Kind  Kind    `json:"kind"`
	Group Group   `json:"group"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`

	get func(*config.Settings) any
	set func(*config.Settings, float64)
}

// Get reads the field from s.
func (f Field) Get(s config.Settings) any { return f.get(&s) }

// Set parses raw and returns a copy of s with the field changed. The result
// is normalized and validated as a whole.
func (f Field) Set(s config.Settings, raw string) (config.Settings, error) {
	v, err := f.parse(raw)
	if err != nil {
		return s, err
	}
	f.set(&s, v)
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (f Field) parse(raw string) (float64, error) {
	switch f.Kind {
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s expects a bool, got %q", ErrInvalidValue, f.Name, raw)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidValue, f.Name, raw)
		}
		return f.bound(float64(n))
	default:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, f.Name, raw)
		}
		return f.bound(x)
	}
}

func (f Field) bound(v float64) (float64, error) {
	if v < f.Min || v > f.Max {
		return 0, fmt.Errorf("%w: %s must be within [%g, %g], got %g", ErrOutOfRange, f.Name, f.Min, f.Max, v)
	}
	return v, nil
}

func boolField(id ID, name string, g Group, p func(*config.Settings) *bool) Field {
	return Field{ID: id, Name: name, Kind: Bool, Group: g,
		get: func(s *config.Settings) any { return *p(s) },
		set: func(s *config.Settings, v float64) { *p(s) = v != 0 },
	}
}

func intField(id ID, name string, g Group, min, max float64, p func(*config.Settings) *int) Field {
	return Field{ID: id, Name: name, Kind: Int, Group: g, Min: min, Max: max,
		get: func(s *config.Settings) any { return *p(s) },
		set: func(s *config.Settings, v float64) { *p(s) = int(v) },
	}
}

func floatField(id ID, name string, g Group, min, max float64, p func(*config.Settings) *float64) Field {
	return Field{ID: id, Name: name, Kind: Float, Group: g, Min: min, Max: max,
		get: func(s *config.Settings) any { return *p(s) },
		set: func(s *config.Settings, v float64) { *p(s) = v },
	}
}

var fields = []Field{
	boolField(Reverse, "reverse", Stepper, func(s *config.Settings) *bool { return &s.Stepper.Reverse }),
	intField(Resolution, "resolution", Stepper, 1, 1e6, func(s *config.Settings) *int { return &s.Stepper.Resolution }),
	intField(OpenSpeed, "open_speed", Stepper, 1, 2e4, func(s *config.Settings) *int { return &s.Stepper.OpenSpeed }),
	intField(CloseSpeed, "close_speed", Stepper, 1, 2e4, func(s *config.Settings) *int { return &s.Stepper.CloseSpeed }),
	intField(Acceleration, "acceleration", Stepper, 0, 1e5, func(s *config.Settings) *int { return &s.Stepper.Acceleration }),
	intField(HomingSpeed, "homing_speed", Stepper, 1, 2e4, func(s *config.Settings) *int { return &s.Stepper.HomingSpeed }),
	intField(HomingSpeedSecond, "homing_speed_second", Stepper, 1, 2e4, func(s *config.Settings) *int { return &s.Stepper.HomingSpeedSecond }),
	intField(HomingSteps, "homing_steps", Stepper, 1, 1e6, func(s *config.Settings) *int { return &s.Stepper.HomingSteps }),
	intField(HomingStepsMax, "homing_steps_max", Stepper, 1, 1e8, func(s *config.Settings) *int { return &s.Stepper.HomingStepsMax }),
	floatField(HomingFineFactor, "homing_fine_factor", Stepper, 1, 10, func(s *config.Settings) *float64 { return &s.Stepper.HomingFineFactor }),

	intField(OpenPosition, "open_position", Calibration, 1, 1e8, func(s *config.Settings) *int { return &s.Calibration.OpenPosition }),
	intField(Offset, "offset", Calibration, -1e6, 1e6, func(s *config.Settings) *int { return &s.Calibration.Offset }),

	boolField(NightEnabled, "night_mode_enabled", NightMode, func(s *config.Settings) *bool { return &s.NightMode.Enabled }),
	intField(NightStart, "night_mode_start_time", NightMode, 0, config.SecondsPerDay-1, func(s *config.Settings) *int { return &s.NightMode.StartTime }),
	intField(NightEnd, "night_mode_end_time", NightMode, 0, config.SecondsPerDay-1, func(s *config.Settings) *int { return &s.NightMode.EndTime }),

	floatField(TimeZone, "time_zone", System, -12, 14, func(s *config.Settings) *float64 { return &s.TimeZone }),
	boolField(InvertPosition, "invert_position", System, func(s *config.Settings) *bool { return &s.InvertPosition }),
}

var byName = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// Lookup finds a field by wire name.
func Lookup(name string) (Field, error) {
	f, ok := byName[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

// All returns every field in declaration order.
func All() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Values reads every field of s keyed by wire name.
func Values(s config.Settings) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Get(s)
	}
	return out
}

// Names returns the sorted wire names.
func Names() []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

// PositionTarget is the wire name of the move command.
const PositionTarget = "position_target"

// ParseTarget parses an inbound move target in percent, clamped to [0,100]
// and mirrored when the position is inverted.
func ParseTarget(s config.Settings, raw string) (float64, error) {
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(x) {
		return 0, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, PositionTarget, raw)
	}
	return DisplayTarget(s, x), nil
}

// DisplayTarget converts between the controller's percentage and the one
// shown to users. The mapping is its own inverse.
func DisplayTarget(s config.Settings, pct float64) float64 {
	pct = math.Min(math.Max(pct, 0), 100)
	if s.InvertPosition {
		return 100 - pct
	}
	return pct
}
