package console

import (
	"flag"
	"os"

	"github.com/pkg/errors"

	fx "github.com/robotalks/rover/pkg/framework"
)

// Config defines the console transports.
type Config struct {
	// Serial is the device of the local line.
	Serial string
	// SerialBaud is the baud rate of Serial.
	SerialBaud uint
	// Stdio uses the controlling terminal as the local line.
	Stdio bool
	// Telnet is the listen address of telnet sessions.
	Telnet string
	// Websocket is the listen address of websocket sessions.
	Websocket string
}

// Defaults
const (
	DefaultSerialBaud uint = 115200
)

var defaultConfig = Config{
	SerialBaud: DefaultSerialBaud,
	Telnet:     ":23",
}

func init() {
	if val := os.Getenv("ROVER_SERIAL"); val != "" {
		defaultConfig.Serial = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Serial console device")
	flag.UintVar(&defaultConfig.SerialBaud, "serial-baud", defaultConfig.SerialBaud, "Serial console baud rate")
	flag.BoolVar(&defaultConfig.Stdio, "stdio", defaultConfig.Stdio, "Use the terminal as local console")
	flag.StringVar(&defaultConfig.Telnet, "telnet", defaultConfig.Telnet, "Telnet console listen address, empty disables")
	flag.StringVar(&defaultConfig.Websocket, "websocket", defaultConfig.Websocket, "Websocket console listen address, empty disables")
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

// Transports are the opened console channels and the servers feeding them.
type Transports struct {
	// Channels are ordered by priority.
	Channels []Channel
	Servers  []fx.Runnable
}

// Open opens the configured transports. A network session outranks the
// local line.
func (c *Config) Open() (*Transports, error) {
	t := &Transports{}
	if c.Telnet != "" || c.Websocket != "" {
		session := NewSession("net")
		t.Channels = append(t.Channels, session)
		if c.Telnet != "" {
			t.Servers = append(t.Servers, &TelnetServer{Addr: c.Telnet, Session: session})
		}
		if c.Websocket != "" {
			t.Servers = append(t.Servers, &WebsocketServer{Addr: c.Websocket, Session: session})
		}
	}
	var port *Port
	var err error
	switch {
	case c.Serial != "":
		port, err = OpenSerial(c.Serial, c.SerialBaud)
	case c.Stdio:
		port, err = OpenStdio()
	}
	if err != nil {
		return nil, err
	}
	if port != nil {
		t.Channels = append(t.Channels, port)
	}
	if len(t.Channels) == 0 {
		return nil, errors.New("no console transport configured")
	}
	return t, nil
}

// Close disconnects all channels.
func (t *Transports) Close() error {
	var errs fx.AggregatedError
	for _, ch := range t.Channels {
		errs.Add(ch.Disconnect())
	}
	return errs.Aggregate()
}
