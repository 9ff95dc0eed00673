package actuator

// Rig simulates the mechanics when no GPIO chip is configured: it counts the
// physical steps the Stepper emits and closes a limit switch at the bottom
// of travel (physical position 0).
type Rig struct {
	physical int
	on       bool
}

// NewRig returns a rig whose carriage starts start steps above the switch.
func NewRig(start int) *Rig {
	return &Rig{physical: start}
}

func (r *Rig) Step(dir int) error {
	r.physical += dir
	return nil
}

func (r *Rig) Enable(on bool) error {
	r.on = on
	return nil
}

func (r *Rig) Close() error { return nil }

// Physical is the carriage position in steps above the switch.
func (r *Rig) Physical() int { return r.physical }

// Powered reports whether the coils are energized.
func (r *Rig) Powered() bool { return r.on }

// Read reports the raw limit switch level.
func (r *Rig) Read() (bool, error) {
	return r.physical <= 0, nil
}
