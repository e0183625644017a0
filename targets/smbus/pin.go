//go:build linux

package smbus

import (
	"github.com/platinasystems/gpio"

	"voltmon/core"
)

// AlertPin samples the shared alert line through a sysfs GPIO.
type AlertPin struct {
	pin gpio.Pin
}

// NewAlertPin configures GPIO index as an input and returns its sampler.
func NewAlertPin(index int) (*AlertPin, error) {
	p := gpio.Pin(index) | gpio.IsInput
	if err := p.SetDirection(); err != nil {
		return nil, err
	}
	return &AlertPin{pin: p}, nil
}

// Level reads the line level. A failed read reports the line released, so a
// broken GPIO cannot look like a stuck alert.
func (a *AlertPin) Level() bool {
	v, err := a.pin.Value()
	if err != nil {
		return true
	}
	return v
}

// Input adapts the pin to the driver's sampler type.
func (a *AlertPin) Input() core.PinInput {
	return a.Level
}
