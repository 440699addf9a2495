package netcmd

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	fx "github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/motor"
)

// Drivetrain is the motion surface driven by the protocol.
type Drivetrain interface {
	Forward(ctx context.Context, percent int) error
	SetSpeed(ctx context.Context, s motor.Side, percent int) error
	Stop() error
}

// Usages
const (
	UsageForward = "forward <percent>"
	UsageMove    = "move <0|1> <percent>"
)

const motionQueueSize = 16

// Client connects to the coordinator and executes the frames it sends.
type Client struct {
	Config
	Drivetrain Drivetrain
	Election   *Election
	// Dial opens the coordinator connection, TCP to Config.Coordinator
	// by default.
	Dial func(ctx context.Context) (net.Conn, error)
}

// NewClient creates a Client.
func NewClient(conf Config, dt Drivetrain) *Client {
	return &Client{
		Config:     conf,
		Drivetrain: dt,
		Election:   &Election{},
	}
}

// Name implements framework.Named.
func (c *Client) Name() string {
	return "netcmd"
}

// Run implements framework.Runnable. It keeps a connection to the
// coordinator, reconnecting with exponential backoff until ctx is done
// or a fatal error happens.
func (c *Client) Run(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = 0
	if c.RedialMax > 0 {
		exp.MaxInterval = c.RedialMax
	}
	err := backoff.RetryNotify(func() error {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		exp.Reset()
		glog.Infof("connected to coordinator %s", conn.RemoteAddr())
		err = c.Serve(ctx, conn)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !errors.Is(err, ErrTransportClosed) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(exp, ctx), func(err error, d time.Duration) {
		glog.Warningf("coordinator %s: %v, retry in %s", c.Coordinator, err, d)
	})
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return err
}

func (c *Client) dial(ctx context.Context) (*Conn, error) {
	dial := c.Dial
	if dial == nil {
		dial = func(ctx context.Context) (net.Conn, error) {
			d := &net.Dialer{Timeout: c.Timeout}
			return d.DialContext(ctx, "tcp", c.Coordinator)
		}
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrTransportClosed, "dial %s: %v", c.Coordinator, err)
	}
	return NewConn(conn, c.Timeout), nil
}

// Serve announces this node on conn and executes received frames until
// the connection is lost or ctx is done. Motion commands are queued and
// executed in order so the receive loop is never blocked by a ramp, and
// stop takes effect immediately.
// The connection is closed when Serve returns.
func (c *Client) Serve(ctx context.Context, conn *Conn) error {
	g, gctx := errgroup.WithContext(ctx)
	q := &motionQueue{ch: make(chan func(context.Context) error, motionQueueSize)}
	g.Go(func() error { return q.run(gctx) })
	g.Go(func() error {
		return fx.RunWithContextCloser(gctx, conn, func() error {
			if err := conn.Send(NewFrame(BroadcastAddr, CmdSlave)); err != nil {
				return err
			}
			for {
				f, err := conn.Receive()
				switch {
				case err == nil:
				case errors.Is(err, ErrReceiveTimeout):
					continue
				case errors.Is(err, ErrMalformedFrame):
					glog.Warning(err)
					continue
				default:
					return err
				}
				if err = c.dispatch(gctx, conn, f, q); err != nil {
					if IsInvalidArguments(err) {
						glog.Warning(err)
						continue
					}
					return err
				}
			}
		})
	})
	err := g.Wait()
	if c.StopOnDisconnect {
		q.drain()
		if stopErr := c.Drivetrain.Stop(); stopErr != nil {
			return (&fx.AggregatedError{}).Add(err, stopErr).Aggregate()
		}
	}
	return err
}

// Dispatch executes a single frame, replying to peer where the protocol
// requires. Frames not addressed to this node are ignored.
func (c *Client) Dispatch(ctx context.Context, peer Peer, f Frame) error {
	return c.dispatch(ctx, peer, f, nil)
}

func (c *Client) dispatch(ctx context.Context, peer Peer, f Frame, q *motionQueue) error {
	local := c.localAddr(peer)
	if !f.AddressedTo(local) {
		glog.V(4).Infof("ignore %s", f)
		return nil
	}
	switch f.Command() {
	case CmdVote:
		ballot, err := c.Election.Vote()
		if err != nil {
			return err
		}
		return peer.Send(NewFrame(BroadcastAddr, strconv.Itoa(int(ballot))))
	case CmdMaster:
		if f.Addr != local {
			glog.Warningf("ignore unaddressed %s", f)
			return nil
		}
		c.Election.Assign()
	case CmdForward:
		args := f.Args()
		if len(args) != 1 {
			return &InvalidArgumentsError{Command: CmdForward, Args: args, Usage: UsageForward}
		}
		percent, err := strconv.Atoi(args[0])
		if err != nil {
			return &InvalidArgumentsError{Command: CmdForward, Args: args, Usage: UsageForward}
		}
		if c.gated(f) {
			return nil
		}
		return q.push(ctx, func(ctx context.Context) error {
			return c.Drivetrain.Forward(ctx, percent)
		})
	case CmdMove:
		side, percent, err := parseMove(f.Args())
		if err != nil {
			return err
		}
		if c.gated(f) {
			return nil
		}
		return q.push(ctx, func(ctx context.Context) error {
			return c.Drivetrain.SetSpeed(ctx, side, percent)
		})
	case CmdStop:
		q.drain()
		return c.Drivetrain.Stop()
	case CmdSlave, CmdAdmin, CmdUnauthorized:
		glog.V(2).Infof("ignore %s", f)
	default:
		glog.Warningf("unknown command: %s", f)
	}
	return nil
}

func (c *Client) localAddr(peer Peer) string {
	if c.LocalAddr != "" {
		return c.LocalAddr
	}
	return peer.LocalAddr()
}

func (c *Client) gated(f Frame) bool {
	if c.Gated && !c.Election.IsController() {
		glog.Warningf("not controller, drop %s", f)
		return true
	}
	return false
}

func parseMove(args []string) (motor.Side, int, error) {
	invalid := &InvalidArgumentsError{Command: CmdMove, Args: args, Usage: UsageMove}
	if len(args) != 2 {
		return 0, 0, invalid
	}
	side, err := strconv.Atoi(args[0])
	if err != nil || !motor.Side(side).IsValid() {
		return 0, 0, invalid
	}
	percent, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, invalid
	}
	return motor.Side(side), percent, nil
}

// motionQueue executes motion commands in order on a single goroutine.
// A nil queue executes inline.
type motionQueue struct {
	ch chan func(context.Context) error
}

func (q *motionQueue) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-q.ch:
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

// push never blocks the receive loop. When the queue is full the oldest
// pending motion is dropped.
func (q *motionQueue) push(ctx context.Context, fn func(context.Context) error) error {
	if q == nil {
		return fn(ctx)
	}
	for {
		select {
		case q.ch <- fn:
			return nil
		default:
		}
		select {
		case <-q.ch:
			glog.Warning("motion queue full, drop oldest")
		default:
		}
	}
}

func (q *motionQueue) drain() {
	if q == nil {
		return
	}
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}
