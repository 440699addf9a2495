package console

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoInput is returned by ReadByte when nothing is buffered.
	ErrNoInput = errors.New("no input")
	// ErrTakeover indicates a higher priority channel took over the console.
	ErrTakeover = errors.New("console taken over")
	// ErrQuit ends the console loop.
	ErrQuit = errors.New("quit")
	// ErrNotConnected indicates the channel has no connection.
	ErrNotConnected = errors.New("not connected")
)

// InvalidArgumentsError is returned by a command invoked with bad arguments.
type InvalidArgumentsError struct {
	Command string
	Args    []string
	Usage   string
}

// Error implements error.
func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments %q for %s", strings.Join(e.Args, " "), e.Command)
}

// IsInvalidArguments checks if err is an InvalidArgumentsError.
func IsInvalidArguments(err error) bool {
	var e *InvalidArgumentsError
	return errors.As(err, &e)
}
