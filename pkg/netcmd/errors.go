package netcmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedFrame indicates a frame violates the wire format.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrTransportClosed indicates the connection to the coordinator is gone.
	ErrTransportClosed = errors.New("transport closed")
	// ErrReceiveTimeout indicates no frame arrived within the read deadline.
	ErrReceiveTimeout = errors.New("receive timeout")
)

// MalformedFrameError describes why a line is not a frame.
type MalformedFrameError struct {
	Line   string
	Reason string
}

// Error implements error.
func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame %q: %s", e.Line, e.Reason)
}

// Is matches ErrMalformedFrame.
func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

// InvalidArgumentsError is returned when a command carries bad arguments.
type InvalidArgumentsError struct {
	Command string
	Args    []string
	Usage   string
}

// Error implements error.
func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments %q for %s, usage: %s", strings.Join(e.Args, " "), e.Command, e.Usage)
}

// IsInvalidArguments checks if err is an InvalidArgumentsError.
func IsInvalidArguments(err error) bool {
	var e *InvalidArgumentsError
	return errors.As(err, &e)
}
