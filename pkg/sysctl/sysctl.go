// Package sysctl controls the host the rover runs on.
package sysctl

import (
	"flag"
	"os"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"
)

// Restarter brings the process or host back to a known state.
type Restarter interface {
	// Reload restarts the program without touching the host.
	Reload() error
	// Reset restarts the host.
	Reset() error
	// Restart restarts after an unattended fault.
	Restart() error
}

// Thermometer reports the controller temperature in Celsius.
type Thermometer interface {
	Temperature() (float64, error)
}

// ErrNoSensor indicates no temperature sensor was found.
var ErrNoSensor = errors.New("no temperature sensor")

// Config defines host control options.
type Config struct {
	// HardReset reboots the host on Reset instead of re-executing.
	HardReset bool
	// Sensor selects the sensor key, empty picks the hottest one.
	Sensor string
}

var defaultConfig Config

func init() {
	if val := os.Getenv("ROVER_SENSOR"); val != "" {
		defaultConfig.Sensor = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.HardReset, "hard-reset", defaultConfig.HardReset, "Reboot the host on reset")
	flag.StringVar(&defaultConfig.Sensor, "sensor", defaultConfig.Sensor, "Temperature sensor key")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewRestarter creates the Restarter for the running binary.
func (c *Config) NewRestarter() *ExecRestarter {
	return &ExecRestarter{HardReset: c.HardReset}
}

// NewThermometer creates a thermometer reading host sensors.
func (c *Config) NewThermometer() *HostThermometer {
	return &HostThermometer{Sensor: c.Sensor}
}

// HostThermometer reads hardware sensors of the host.
type HostThermometer struct {
	Sensor string
	// Sensors lists readings, defaults to host.SensorsTemperatures.
	Sensors func() ([]host.TemperatureStat, error)
}

// Temperature implements Thermometer.
func (t *HostThermometer) Temperature() (float64, error) {
	sensors := t.Sensors
	if sensors == nil {
		sensors = host.SensorsTemperatures
	}
	stats, err := sensors()
	if len(stats) == 0 {
		if err != nil {
			return 0, errors.Wrap(err, "read sensors")
		}
		return 0, ErrNoSensor
	}
	if err != nil {
		// some sensors may fail while others are readable.
		glog.V(2).Infof("read sensors: %v", err)
	}
	if t.Sensor != "" {
		for _, stat := range stats {
			if stat.SensorKey == t.Sensor {
				return stat.Temperature, nil
			}
		}
		return 0, errors.Wrapf(ErrNoSensor, "sensor %q", t.Sensor)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Temperature > stats[j].Temperature
	})
	return stats[0].Temperature, nil
}

func execArgs() (string, []string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", nil, errors.Wrap(err, "locate executable")
	}
	glog.Infof("re-exec %s %s", exe, strings.Join(os.Args[1:], " "))
	return exe, os.Args, nil
}
