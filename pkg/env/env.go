// Package env provides the identity of the node.
package env

import (
	"flag"
	"net"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/status"
)

const appID = "rover"

// MachineID retrieves an ID unique to the machine, hashed so the raw
// machine ID is not exposed.
func MachineID() (string, error) {
	return machineid.ProtectedID(appID)
}

// Config defines the node identity and telemetry broker.
type Config struct {
	// ID identifies the node in telemetry.
	ID string
	// Description is free text published in node metadata.
	Description string
	// MQTTBrokerURL is the telemetry broker,
	// e.g. mqtt://host:port/topic-prefix, empty disables telemetry.
	MQTTBrokerURL string
}

var defaultConfig = Config{
	MQTTBrokerURL: "",
}

func init() {
	if val := os.Getenv("ROVER_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("ROVER_ID"); val != "" {
		defaultConfig.ID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Node ID, machine ID by default")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Node description")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry")
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

// NodeID returns the configured ID, or the machine ID, or the host name.
func (c *Config) NodeID() string {
	if c.ID != "" {
		return c.ID
	}
	id, err := MachineID()
	if err == nil {
		return id
	}
	glog.Warningf("machine ID: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return appID
}

// NodeMeta builds the published metadata.
func (c *Config) NodeMeta(addr string) status.NodeMeta {
	return status.NodeMeta{
		ID:          c.NodeID(),
		Addr:        addr,
		Description: c.Description,
	}
}

// LocalIPv4 finds the local IPv4 address used to reach target (host:port).
// No packet is sent.
func LocalIPv4(target string) (string, error) {
	conn, err := net.Dial("udp4", target)
	if err != nil {
		return "", errors.Wrapf(err, "route to %s", target)
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return "", errors.Errorf("no IPv4 route to %s", target)
	}
	return addr.IP.To4().String(), nil
}
