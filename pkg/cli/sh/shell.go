// Package sh provides the ishell backed operator shell talking to the
// coordinator.
package sh

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/netcmd"
)

// Shell is the operator shell.
type Shell struct {
	Interactive bool
	// Role is announced after connecting, admin or slave.
	Role string
	// Target is the address of sent frames.
	Target      string
	Coordinator string

	Shell *ishell.Shell
	// Out receives frames from the coordinator, the shell when nil.
	Out io.Writer

	lock sync.Mutex
	conn *netcmd.Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
	dialTimeout       = 5 * time.Second
)

var (
	// flags

	evalOnly bool
	role     = netcmd.CmdAdmin

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&TargetCmd,
		&SendCmd,
		&VoteCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.StringVar(&role, "role", role, "Role announced to the coordinator: admin or slave.")
	conf := netcmd.Default()
	flag.StringVar(&conf.Coordinator, "coordinator", conf.Coordinator, "Coordinator address, empty to connect later.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(coordinator string) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Role:        role,
		Target:      netcmd.BroadcastAddr,
		Coordinator: coordinator,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).IsConnected() {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// SendFrame sends f and reports the error in the shell.
func SendFrame(c *ishell.Context, f netcmd.Frame) error {
	err := ShellFrom(c).SendFrame(f)
	if err != nil {
		c.Err(err)
	}
	return err
}

// ParseTarget validates an IPv4 target address.
func ParseTarget(s string) (string, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return "", errors.Errorf("invalid IPv4 address %q", s)
	}
	return addr.String(), nil
}

// IsConnected indicates a coordinator connection is open.
func (s *Shell) IsConnected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conn != nil
}

// Connect dials the coordinator and announces the role.
func (s *Shell) Connect(ctx context.Context, addr string) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "connect %s", addr)
	}
	conn := netcmd.NewConn(nc, 0)
	if err = conn.Send(netcmd.NewFrame(netcmd.BroadcastAddr, s.Role)); err != nil {
		conn.Close()
		return err
	}
	s.Disconnect()
	s.lock.Lock()
	s.conn = conn
	s.lock.Unlock()
	go s.receive(conn)
	s.updatePrompt()
	return nil
}

// Disconnect closes the coordinator connection.
func (s *Shell) Disconnect() {
	s.lock.Lock()
	conn := s.conn
	s.conn = nil
	s.lock.Unlock()
	if conn != nil {
		conn.Close()
		s.updatePrompt()
	}
}

// SetTarget changes the address of sent frames.
func (s *Shell) SetTarget(addr string) {
	s.lock.Lock()
	s.Target = addr
	s.lock.Unlock()
	s.updatePrompt()
}

// Send sends tokens to the current target.
func (s *Shell) Send(tokens ...string) error {
	s.lock.Lock()
	target := s.Target
	s.lock.Unlock()
	return s.SendFrame(netcmd.NewFrame(target, tokens...))
}

// SendFrame sends a frame to the coordinator.
func (s *Shell) SendFrame(f netcmd.Frame) error {
	s.lock.Lock()
	conn := s.conn
	s.lock.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.Send(f)
}

func (s *Shell) receive(conn *netcmd.Conn) {
	for {
		f, err := conn.Receive()
		switch {
		case err == nil:
			s.printf("<< %s\n", f)
		case errors.Is(err, netcmd.ErrMalformedFrame):
			s.printf("<< %v\n", err)
		default:
			s.lock.Lock()
			current := s.conn == conn
			if current {
				s.conn = nil
			}
			s.lock.Unlock()
			if current {
				s.printf("disconnected: %v\n", err)
				s.updatePrompt()
			}
			return
		}
	}
}

func (s *Shell) printf(format string, args ...interface{}) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format, args...)
		return
	}
	if s.Shell != nil {
		s.Shell.Printf(format, args...)
	}
}

func (s *Shell) updatePrompt() {
	if s.Shell == nil {
		return
	}
	s.lock.Lock()
	connected, target := s.conn != nil, s.Target
	s.lock.Unlock()
	if !connected {
		s.Shell.SetPrompt(unconnectedPrompt)
		return
	}
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", target))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Coordinator != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Coordinator)
		}
		if err := s.Connect(context.Background(), s.Coordinator); err != nil {
			log.Fatalln(err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects the coordinator.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[HOST:PORT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			addr := s.Coordinator
			if len(c.Args) > 0 {
				addr = c.Args[0]
			}
			if addr == "" {
				c.Err(fmt.Errorf("coordinator address required"))
				return
			}
			if err := s.Connect(context.Background(), addr); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects the coordinator.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// TargetCmd shows or sets the target address.
	TargetCmd = ishell.Cmd{
		Name:    "target",
		Aliases: []string{"t"},
		Help:    "[IPv4], 0.0.0.0 for all",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 0 {
				c.Println(s.Target)
				return
			}
			addr, err := ParseTarget(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s.SetTarget(addr)
		},
	}

	// SendCmd sends raw tokens to the target.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "TOKENS...",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("command cannot be empty"))
				return
			}
			if err := ShellFrom(c).Send(c.Args...); err != nil {
				c.Err(err)
			}
		}),
	}

	// VoteCmd starts an election on all nodes.
	VoteCmd = ishell.Cmd{
		Name:    "vote",
		Aliases: []string{"v"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			SendFrame(c, netcmd.NewFrame(netcmd.BroadcastAddr, netcmd.CmdVote))
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(netcmd.Default().Coordinator).Run(flag.Args()...)
}
