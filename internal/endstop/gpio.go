package endstop

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOInput reads the switch from a GPIO character-device line with the
// internal pull-up enabled.
type GPIOInput struct {
	line *gpiocdev.Line
}

// OpenGPIO requests offset on chip. With activeHigh false a grounded line
// reads as closed, which is how a switch to GND against the pull-up is wired.
func OpenGPIO(chip string, offset int, activeHigh bool) (*GPIOInput, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("shade-endstop"),
	}
	if !activeHigh {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request endstop line %d on %s: %w", offset, chip, err)
	}
	return &GPIOInput{line: line}, nil
}

func (g *GPIOInput) Read() (bool, error) {
	v, err := g.line.Value()
	if err != nil {
		return false, fmt.Errorf("read endstop: %w", err)
	}
	return v == 1, nil
}

func (g *GPIOInput) Close() error { return g.line.Close() }
