package motor

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSuperseded indicates an in-flight ramp was cancelled by Stop.
	ErrSuperseded = errors.New("superseded by stop")
)

// HardwareWriteFault is returned when an Output rejects a duty value.
// It is not recoverable by the motor package.
type HardwareWriteFault struct {
	Channel ChannelID
	Duty    uint16
	Err     error
}

// Error implements error.
func (e *HardwareWriteFault) Error() string {
	return fmt.Sprintf("hardware write fault on %s (duty %d): %v", e.Channel, e.Duty, e.Err)
}

// Unwrap returns the underlying output error.
func (e *HardwareWriteFault) Unwrap() error {
	return e.Err
}

// IsHardwareWriteFault checks whether err carries a HardwareWriteFault.
func IsHardwareWriteFault(err error) bool {
	var fault *HardwareWriteFault
	return errors.As(err, &fault)
}
