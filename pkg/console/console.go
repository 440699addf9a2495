// Package console multiplexes the local line and network sessions into
// one interactive command console.
package console

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/motor"
)

// DefaultPrompt is printed before each command line.
const DefaultPrompt = "> "

// Console reads commands from a Mux and executes them.
type Console struct {
	Mux        *Mux
	Dispatcher *Dispatcher
	Prompt     string
	// OnQuit is invoked when the quit command ends the loop.
	OnQuit func()
}

// New creates a Console over mux with the commands of cmds and help.
func New(mux *Mux, cmds *Commands) *Console {
	cmds.Mux = mux
	d := NewDispatcher(mux).AddCmd(cmds.Cmds()...)
	d.AddCmd(HelpCmd(d))
	return &Console{Mux: mux, Dispatcher: d, Prompt: DefaultPrompt}
}

// Name implements framework.Named.
func (c *Console) Name() string {
	return "console"
}

// Run implements framework.Runnable. It returns nil on quit and the
// error of a command that failed writing motor outputs.
func (c *Console) Run(ctx context.Context) error {
	for {
		c.Mux.Write([]byte(c.Prompt))
		tokens, err := c.Mux.ReadCommand(ctx)
		if err != nil {
			return err
		}
		err = c.Dispatcher.Dispatch(ctx, tokens)
		switch {
		case err == nil:
		case err == ErrQuit:
			glog.Info("console quit")
			if c.OnQuit != nil {
				c.OnQuit()
			}
			return nil
		case IsInvalidArguments(err):
			glog.V(2).Info(err)
		case motor.IsHardwareWriteFault(err):
			return err
		default:
			glog.Errorf("%s: %v", tokens[0], err)
			c.Mux.Printf("Error: %v\r\n", err)
		}
	}
}
