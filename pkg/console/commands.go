package console

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/robotalks/rover/pkg/motor"
	"github.com/robotalks/rover/pkg/sysctl"
)

// Drivetrain is the motion surface used by the console.
type Drivetrain interface {
	SetSpeed(ctx context.Context, s motor.Side, percent int) error
	SetSpeeds(ctx context.Context, left, right int) error
	Stop() error
	Duties() [motor.NumChannels]uint16
}

// UsageSet is the usage of the set command.
const UsageSet = "set <0|1|2> <percent>"

// SideBoth selects both sides in the set command.
const SideBoth = 2

// Commands builds the command set of the vehicle console.
type Commands struct {
	Mux         *Mux
	Drivetrain  Drivetrain
	Restarter   sysctl.Restarter
	Thermometer sysctl.Thermometer
}

// Cmds returns all commands.
func (c *Commands) Cmds() []*Cmd {
	return []*Cmd{
		{Name: "reload", Aliases: []string{"rel"}, Help: "disconnect sessions and reload the program", Func: c.reload},
		{Name: "reset", Aliases: []string{"res", "rst"}, Help: "reset the controller", Func: c.reset},
		{Name: "set", Aliases: []string{"s"}, Help: UsageSet + ", side 2 is both", Func: c.set},
		{Name: "view", Aliases: []string{"v"}, Help: "show motor duties", Func: c.view},
		{Name: "stop", Aliases: []string{"st"}, Help: "stop all motors", Func: c.stop},
		{Name: "quit", Aliases: []string{"q"}, Help: "quit the console", Func: c.quit},
		{Name: "temp", Aliases: []string{"t"}, Help: "show controller temperature", Func: c.temp},
	}
}

func (c *Commands) reload(ctx context.Context, out io.Writer, args []string) error {
	if c.Mux != nil {
		c.Mux.DisconnectSessions()
	}
	return c.Restarter.Reload()
}

func (c *Commands) reset(ctx context.Context, out io.Writer, args []string) error {
	return c.Restarter.Reset()
}

func (c *Commands) set(ctx context.Context, out io.Writer, args []string) error {
	invalid := &InvalidArgumentsError{Command: "set", Args: args, Usage: UsageSet}
	if len(args) != 2 {
		return invalid
	}
	side, err := strconv.Atoi(args[0])
	if err != nil || side < 0 || side > SideBoth {
		return invalid
	}
	percent, err := strconv.Atoi(args[1])
	if err != nil {
		return invalid
	}
	if side == SideBoth {
		return c.Drivetrain.SetSpeeds(ctx, percent, percent)
	}
	return c.Drivetrain.SetSpeed(ctx, motor.Side(side), percent)
}

func (c *Commands) view(ctx context.Context, out io.Writer, args []string) error {
	d := c.Drivetrain.Duties()
	fmt.Fprintf(out, "fl: %d fr: %d bl: %d br: %d\r\n",
		d[motor.FrontLeft], d[motor.FrontRight], d[motor.BackLeft], d[motor.BackRight])
	return nil
}

func (c *Commands) stop(ctx context.Context, out io.Writer, args []string) error {
	return c.Drivetrain.Stop()
}

func (c *Commands) quit(ctx context.Context, out io.Writer, args []string) error {
	return ErrQuit
}

func (c *Commands) temp(ctx context.Context, out io.Writer, args []string) error {
	t, err := c.Thermometer.Temperature()
	if err != nil {
		fmt.Fprintf(out, "temperature unavailable: %v\r\n", err)
		return nil
	}
	fmt.Fprintf(out, "%.1f C\r\n", t)
	return nil
}
