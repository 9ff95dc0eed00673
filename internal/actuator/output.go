package actuator

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Output receives physical steps from the Stepper.
type Output interface {
	// Step moves the rotor one half-step; dir is +1 or -1.
	Step(dir int) error
	// Enable energizes or releases the coils.
	Enable(on bool) error
	Close() error
}

// NopOutput discards every step.
type NopOutput struct{}

func (NopOutput) Step(int) error    { return nil }
func (NopOutput) Enable(bool) error { return nil }
func (NopOutput) Close() error      { return nil }

// halfStep is the 8-phase excitation sequence for a 28BYJ-48 style motor,
// one bit per coil line.
var halfStep = [8]int{
	0b0001,
	0b0011,
	0b0010,
	0b0110,
	0b0100,
	0b1100,
	0b1000,
	0b1001,
}

const coilLines = 4

// GPIOCoils drives the four coil lines (and an optional driver enable line)
// through the Linux GPIO character device.
type GPIOCoils struct {
	coils  *gpiocdev.Lines
	enable *gpiocdev.Line
	phase  int
	on     bool
	values []int
}

// OpenGPIOCoils requests the coil lines on chip. enablePin < 0 means the
// driver board has no enable input.
func OpenGPIOCoils(chip string, pins []int, enablePin int) (*GPIOCoils, error) {
	if len(pins) != coilLines {
		return nil, fmt.Errorf("stepper needs %d coil pins, got %d", coilLines, len(pins))
	}
	coils, err := gpiocdev.RequestLines(chip, pins, gpiocdev.AsOutput(0, 0, 0, 0), gpiocdev.WithConsumer("shade-stepper"))
	if err != nil {
		return nil, fmt.Errorf("request coil lines %v on %s: %w", pins, chip, err)
	}
	g := &GPIOCoils{coils: coils, values: make([]int, coilLines)}
	if enablePin >= 0 {
		g.enable, err = gpiocdev.RequestLine(chip, enablePin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("shade-stepper"))
		if err != nil {
			_ = coils.Close()
			return nil, fmt.Errorf("request enable line %d on %s: %w", enablePin, chip, err)
		}
	}
	return g, nil
}

func (g *GPIOCoils) Step(dir int) error {
	g.phase = (g.phase + dir + len(halfStep)) % len(halfStep)
	if !g.on {
		return nil
	}
	return g.write(halfStep[g.phase])
}

func (g *GPIOCoils) Enable(on bool) error {
	g.on = on
	pattern := 0
	if on {
		pattern = halfStep[g.phase]
	}
	if err := g.write(pattern); err != nil {
		return err
	}
	if g.enable == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	return g.enable.SetValue(v)
}

func (g *GPIOCoils) write(pattern int) error {
	for i := range g.values {
		g.values[i] = (pattern >> i) & 1
	}
	return g.coils.SetValues(g.values)
}

func (g *GPIOCoils) Close() error {
	err := g.Enable(false)
	err = errors.Join(err, g.coils.Close())
	if g.enable != nil {
		err = errors.Join(err, g.enable.Close())
	}
	return err
}
