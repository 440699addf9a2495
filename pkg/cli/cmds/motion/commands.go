// Package motion provides the shell commands driving vehicles.
package motion

import (
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rover/pkg/cli/sh"
	"github.com/robotalks/rover/pkg/netcmd"
)

func percentArg(cmd, usage string, args []string, n int) error {
	v, err := strconv.Atoi(args[n])
	if err != nil || v < -100 || v > 100 {
		return &netcmd.InvalidArgumentsError{Command: cmd, Args: args, Usage: usage}
	}
	return nil
}

// ForwardFrame builds a forward frame for target.
func ForwardFrame(target string, args []string) (netcmd.Frame, error) {
	if len(args) != 1 {
		return netcmd.Frame{}, &netcmd.InvalidArgumentsError{Command: netcmd.CmdForward, Args: args, Usage: netcmd.UsageForward}
	}
	if err := percentArg(netcmd.CmdForward, netcmd.UsageForward, args, 0); err != nil {
		return netcmd.Frame{}, err
	}
	return netcmd.NewFrame(target, append([]string{netcmd.CmdForward}, args...)...), nil
}

// MoveFrame builds a move frame for target.
func MoveFrame(target string, args []string) (netcmd.Frame, error) {
	invalid := &netcmd.InvalidArgumentsError{Command: netcmd.CmdMove, Args: args, Usage: netcmd.UsageMove}
	if len(args) != 2 || (args[0] != "0" && args[0] != "1") {
		return netcmd.Frame{}, invalid
	}
	if err := percentArg(netcmd.CmdMove, netcmd.UsageMove, args, 1); err != nil {
		return netcmd.Frame{}, err
	}
	return netcmd.NewFrame(target, append([]string{netcmd.CmdMove}, args...)...), nil
}

func sendBuilt(build func(string, []string) (netcmd.Frame, error)) func(c *ishell.Context) {
	return sh.MustBeConnected(func(c *ishell.Context) {
		f, err := build(sh.ShellFrom(c).Target, c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		sh.SendFrame(c, f)
	})
}

var (
	// ForwardCmd drives both sides of the target.
	ForwardCmd = ishell.Cmd{
		Name:    netcmd.CmdForward,
		Aliases: []string{"f"},
		Help:    "PERCENT(-100..100)",
		Func:    sendBuilt(ForwardFrame),
	}

	// MoveCmd drives one side of the target.
	MoveCmd = ishell.Cmd{
		Name:    netcmd.CmdMove,
		Aliases: []string{"m"},
		Help:    "SIDE(0 left, 1 right) PERCENT(-100..100)",
		Func:    sendBuilt(MoveFrame),
	}

	// StopCmd stops the target.
	StopCmd = ishell.Cmd{
		Name:    netcmd.CmdStop,
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.SendFrame(c, netcmd.NewFrame(sh.ShellFrom(c).Target, netcmd.CmdStop))
		}),
	}
)

func init() {
	sh.AddCmds(&ForwardCmd, &MoveCmd, &StopCmd)
}
