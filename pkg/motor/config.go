package motor

import (
	"flag"
	"strconv"
	"time"
)

// Config defines the drivetrain tuning.
type Config struct {
	// MotorMax is the strongest duty ever commanded by SetSpeed.
	// It must be below DutyStopped, higher values draw less current.
	MotorMax uint16
	// JoltDuty is the kick duty used to overcome static friction.
	JoltDuty uint16
	// JoltTime is how long the kick lasts.
	JoltTime time.Duration
	// RampStep is the largest duty change per ramp step.
	RampStep uint16
	// RampInterval is the pause between ramp steps.
	RampInterval time.Duration
}

// Defaults
const (
	DefaultMotorMax     uint16 = 32000 // overcurrent protection trips above this
	DefaultJoltDuty     uint16 = 10000
	DefaultJoltTime            = 100 * time.Millisecond
	DefaultRampStep     uint16 = 2048
	DefaultRampInterval        = 10 * time.Millisecond
)

var defaultConfig = Config{
	MotorMax:     DefaultMotorMax,
	JoltDuty:     DefaultJoltDuty,
	JoltTime:     DefaultJoltTime,
	RampStep:     DefaultRampStep,
	RampInterval: DefaultRampInterval,
}

type dutyFlag struct {
	val *uint16
}

func newDutyFlag(val *uint16) *dutyFlag {
	return &dutyFlag{val: val}
}

// String implements flag.Value.
func (f *dutyFlag) String() string {
	if f.val == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*f.val), 10)
}

// Set implements flag.Value.
func (f *dutyFlag) Set(s string) error {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return err
	}
	*f.val = uint16(v)
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Var(newDutyFlag(&defaultConfig.MotorMax), "motor-max", "Strongest duty commanded, 0 is full drive and 65535 is stopped.")
	flag.Var(newDutyFlag(&defaultConfig.JoltDuty), "jolt-duty", "Duty of the kick before moving off.")
	flag.DurationVar(&defaultConfig.JoltTime, "jolt-time", defaultConfig.JoltTime, "Duration of the kick before moving off.")
	flag.Var(newDutyFlag(&defaultConfig.RampStep), "ramp-step", "Largest duty change per ramp step.")
	flag.DurationVar(&defaultConfig.RampInterval, "ramp-interval", defaultConfig.RampInterval, "Pause between ramp steps.")
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

// Ramp creates the Ramp described by the config.
func (c *Config) Ramp() *Ramp {
	return &Ramp{Step: c.RampStep, Interval: c.RampInterval}
}
