package console

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Cmd is a console command.
type Cmd struct {
	Name    string
	Aliases []string
	Help    string
	Func    func(ctx context.Context, out io.Writer, args []string) error
}

// Dispatcher maps the first token of a command line to a Cmd.
type Dispatcher struct {
	Out io.Writer

	cmds  []*Cmd
	index map[string]*Cmd
}

// NewDispatcher creates a Dispatcher writing responses to out.
func NewDispatcher(out io.Writer) *Dispatcher {
	return &Dispatcher{Out: out, index: make(map[string]*Cmd)}
}

// AddCmd registers commands, later registrations win on name clashes.
func (d *Dispatcher) AddCmd(cmds ...*Cmd) *Dispatcher {
	for _, cmd := range cmds {
		d.cmds = append(d.cmds, cmd)
		d.index[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			d.index[alias] = cmd
		}
	}
	return d
}

// Cmds returns the registered commands sorted by name.
func (d *Dispatcher) Cmds() []*Cmd {
	cmds := append([]*Cmd(nil), d.cmds...)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Lookup finds a command by name or alias.
func (d *Dispatcher) Lookup(name string) *Cmd {
	return d.index[name]
}

// Dispatch executes a tokenized command line. Empty input is ignored
// and unknown commands are reported on Out. Usage is printed for
// InvalidArgumentsError before it is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	cmd := d.Lookup(tokens[0])
	if cmd == nil {
		fmt.Fprint(d.Out, "Invalid command!\r\n")
		return nil
	}
	err := cmd.Func(ctx, d.Out, tokens[1:])
	if e, ok := err.(*InvalidArgumentsError); ok {
		fmt.Fprintf(d.Out, "Usage: %s\r\n", e.Usage)
	}
	return err
}

// HelpCmd lists the commands of d.
func HelpCmd(d *Dispatcher) *Cmd {
	return &Cmd{
		Name:    "help",
		Aliases: []string{"h"},
		Help:    "list commands",
		Func: func(ctx context.Context, out io.Writer, args []string) error {
			for _, cmd := range d.Cmds() {
				names := append([]string{cmd.Name}, cmd.Aliases...)
				fmt.Fprintf(out, "%-20s %s\r\n", strings.Join(names, "|"), cmd.Help)
			}
			return nil
		},
	}
}
