package netcmd

import (
	"flag"
	"os"
	"time"
)

// Config defines the coordinator connection.
type Config struct {
	// Coordinator is the host:port of the coordinator.
	Coordinator string
	// LocalAddr overrides the node address, by default the local IPv4
	// address of the coordinator connection.
	LocalAddr string
	// Timeout bounds dialing and each receive.
	Timeout time.Duration
	// Gated drops motion commands unless this node is the controller.
	Gated bool
	// StopOnDisconnect stops all motors when the coordinator is lost.
	StopOnDisconnect bool
	// RedialMax caps the interval between reconnect attempts.
	RedialMax time.Duration
}

// Defaults
const (
	DefaultPort      = "5080"
	DefaultTimeout   = 5 * time.Second
	DefaultRedialMax = 30 * time.Second
)

var defaultConfig = Config{
	Coordinator:      "127.0.0.1:" + DefaultPort,
	Timeout:          DefaultTimeout,
	StopOnDisconnect: true,
	RedialMax:        DefaultRedialMax,
}

func init() {
	if val := os.Getenv("ROVER_COORDINATOR"); val != "" {
		defaultConfig.Coordinator = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Coordinator, "coordinator", defaultConfig.Coordinator, "Coordinator address host:port")
	flag.StringVar(&defaultConfig.LocalAddr, "local-addr", defaultConfig.LocalAddr, "Override local node address")
	flag.DurationVar(&defaultConfig.Timeout, "net-timeout", defaultConfig.Timeout, "Dial and receive timeout")
	flag.BoolVar(&defaultConfig.Gated, "net-gated", defaultConfig.Gated, "Accept motion commands only as controller")
	flag.BoolVar(&defaultConfig.StopOnDisconnect, "net-stop-on-disconnect", defaultConfig.StopOnDisconnect, "Stop motors when coordinator is lost")
	flag.DurationVar(&defaultConfig.RedialMax, "net-redial-max", defaultConfig.RedialMax, "Max interval between reconnects")
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
