// Package pwm drives motor outputs with hardware PWM pins through periph.io.
package pwm

import (
	"flag"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/robotalks/rover/pkg/motor"
)

// Config defines the pins driving the outputs.
type Config struct {
	// Pins are pin names indexed by motor.ChannelID.
	Pins [motor.NumChannels]string
	// FreqHz is the PWM frequency.
	FreqHz uint
}

// Defaults
const (
	DefaultFreqHz uint = 5000
)

var defaultConfig = Config{
	Pins:   [motor.NumChannels]string{"GPIO6", "GPIO5", "GPIO4", "GPIO3"},
	FreqHz: DefaultFreqHz,
}

type pinsFlag struct {
	pins *[motor.NumChannels]string
}

// String implements flag.Value.
func (f pinsFlag) String() string {
	if f.pins == nil {
		return ""
	}
	return strings.Join(f.pins[:], ",")
}

// Set implements flag.Value.
func (f pinsFlag) Set(s string) error {
	names := strings.Split(s, ",")
	if len(names) != motor.NumChannels {
		return errors.Errorf("expect %d pins (fl,fr,bl,br), got %d", motor.NumChannels, len(names))
	}
	for n, name := range names {
		f.pins[n] = strings.TrimSpace(name)
	}
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Var(pinsFlag{pins: &defaultConfig.Pins}, "pwm-pins", "PWM pins for front-left,front-right,back-left,back-right.")
	flag.UintVar(&defaultConfig.FreqHz, "pwm-freq", defaultConfig.FreqHz, "PWM frequency (Hz).")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Output is a single PWM pin driving an actuator.
type Output struct {
	pin  gpio.PinOut
	freq physic.Frequency
}

// NewOutput wraps a pin.
func NewOutput(pin gpio.PinOut, freqHz uint) *Output {
	return &Output{pin: pin, freq: physic.Frequency(freqHz) * physic.Hertz}
}

// SetDuty implements motor.Output.
func (o *Output) SetDuty(duty uint16) error {
	return o.pin.PWM(DutyFrom(duty), o.freq)
}

// DutyFrom scales a 16-bit duty value to gpio.Duty.
func DutyFrom(duty uint16) gpio.Duty {
	return gpio.Duty(int64(duty) * int64(gpio.DutyMax) / int64(motor.DutyStopped))
}

// Open initializes the host drivers and opens all pins, every output
// is set to the stopped duty.
func (c *Config) Open() (outs [motor.NumChannels]motor.Output, err error) {
	if _, err = host.Init(); err != nil {
		return outs, errors.Wrap(err, "periph host init")
	}
	for n, name := range c.Pins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return outs, errors.Errorf("pin %q for %s not found", name, motor.ChannelID(n))
		}
		out := NewOutput(pin, c.FreqHz)
		if err = out.SetDuty(motor.DutyStopped); err != nil {
			return outs, errors.Wrapf(err, "init pin %q", name)
		}
		glog.Infof("%s on pin %s at %dHz", motor.ChannelID(n), name, c.FreqHz)
		outs[n] = out
	}
	return outs, nil
}
