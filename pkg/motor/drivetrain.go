package motor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	fx "github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/status"
)

// Side is one side of the vehicle.
type Side int

// Sides
const (
	Left Side = iota
	Right

	// NumSides is the number of sides.
	NumSides = 2
)

// String implements fmt.Stringer.
func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// IsValid checks the side is either Left or Right.
func (s Side) IsValid() bool {
	return s == Left || s == Right
}

// ClampPercent bounds a signed speed percentage to [-100, 100].
func ClampPercent(percent int) int {
	if percent > 100 {
		return 100
	}
	if percent < -100 {
		return -100
	}
	return percent
}

// TargetDuty maps a speed percentage linearly from DutyStopped (0%)
// to motorMax (100%). The sign of percent is ignored.
func TargetDuty(percent int, motorMax uint16) uint16 {
	percent = ClampPercent(percent)
	if percent < 0 {
		percent = -percent
	}
	span := int64(DutyStopped) - int64(motorMax)
	return uint16((int64(DutyStopped)*100 - span*int64(percent)) / 100)
}

type side struct {
	lock  sync.Mutex
	fwd   *Channel
	rev   *Channel
	speed int32
}

// channels returns the channel to energize and the one to pin stopped.
func (s *side) channels(reverse bool) (active, inactive *Channel) {
	if reverse {
		return s.rev, s.fwd
	}
	return s.fwd, s.rev
}

// Drivetrain composes the four outputs into a left and a right side.
// The forward channel of the left side is FrontLeft and its reverse
// channel is BackLeft, likewise FrontRight and BackRight for the right side.
type Drivetrain struct {
	Config
	Indicator status.Indicator
	Clock     clock.Clock

	channels [NumChannels]*Channel
	sides    [NumSides]side

	// hwLock serializes output writes. epoch is bumped by Stop
	// so ramps started before it no longer write.
	hwLock sync.Mutex
	epoch  uint64
}

// NewDrivetrain creates a Drivetrain. Outputs are indexed by ChannelID.
func NewDrivetrain(conf Config, outputs [NumChannels]Output) *Drivetrain {
	d := &Drivetrain{
		Config:    conf,
		Indicator: status.Nop{},
		Clock:     clock.New(),
	}
	for n, out := range outputs {
		d.channels[n] = NewChannel(ChannelID(n), out)
	}
	d.sides[Left].fwd, d.sides[Left].rev = d.channels[FrontLeft], d.channels[BackLeft]
	d.sides[Right].fwd, d.sides[Right].rev = d.channels[FrontRight], d.channels[BackRight]
	return d
}

// Channel gets the channel by ID.
func (d *Drivetrain) Channel(id ChannelID) *Channel {
	return d.channels[id]
}

// Duties returns the last written duty of every channel, indexed by ChannelID.
func (d *Drivetrain) Duties() (duties [NumChannels]uint16) {
	for n, ch := range d.channels {
		duties[n] = ch.Duty()
	}
	return
}

// Speed returns the last signed speed requested for a side.
func (d *Drivetrain) Speed(s Side) int {
	return int(atomic.LoadInt32(&d.sides[s].speed))
}

// IsStopped indicates all channels are de-energized.
func (d *Drivetrain) IsStopped() bool {
	for _, ch := range d.channels {
		if !ch.IsStopped() {
			return false
		}
	}
	return true
}

// SetSpeed ramps one side to a signed speed percentage.
// The opposite direction channel is pinned stopped before ramping.
// A Stop issued after the call started wins over it.
func (d *Drivetrain) SetSpeed(ctx context.Context, s Side, percent int) error {
	return swallowSuperseded(d.setSpeed(ctx, d.currentEpoch(), s, percent))
}

// SetSpeeds ramps both sides concurrently.
func (d *Drivetrain) SetSpeeds(ctx context.Context, left, right int) error {
	return swallowSuperseded(d.setSpeeds(ctx, d.currentEpoch(), left, right))
}

// Jolt kicks one side with JoltDuty for JoltTime and stops it again.
// It is meant to overcome static friction when the vehicle is stopped.
func (d *Drivetrain) Jolt(ctx context.Context, s Side, reverse bool) error {
	if !s.IsValid() {
		return errors.Errorf("invalid side %d", int(s))
	}
	return swallowSuperseded(d.jolt(ctx, d.currentEpoch(), reverse, s))
}

// Forward drives both sides at the same speed, with a jolt first
// if the vehicle is stopped.
func (d *Drivetrain) Forward(ctx context.Context, percent int) error {
	epoch := d.currentEpoch()
	percent = ClampPercent(percent)
	if percent != 0 && d.IsStopped() {
		if err := d.jolt(ctx, epoch, percent < 0, Left, Right); err != nil {
			return swallowSuperseded(err)
		}
	}
	return swallowSuperseded(d.setSpeeds(ctx, epoch, percent, percent))
}

func (d *Drivetrain) setSpeeds(ctx context.Context, epoch uint64, left, right int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.setSpeed(ctx, epoch, Left, left) })
	g.Go(func() error { return d.setSpeed(ctx, epoch, Right, right) })
	return g.Wait()
}

func (d *Drivetrain) setSpeed(ctx context.Context, epoch uint64, s Side, percent int) error {
	if !s.IsValid() {
		return errors.Errorf("invalid side %d", int(s))
	}
	sd := &d.sides[s]
	sd.lock.Lock()
	defer sd.lock.Unlock()

	d.Indicator.Activity()
	defer d.Indicator.Idle()

	percent = ClampPercent(percent)
	active, inactive := sd.channels(percent < 0)
	target := TargetDuty(percent, d.MotorMax)
	glog.V(2).Infof("set %s to %d%%: %s -> %d", s, percent, active.ID, target)

	d.hwLock.Lock()
	err := ErrSuperseded
	if d.epoch == epoch {
		if err = inactive.write(DutyStopped); err == nil {
			atomic.StoreInt32(&sd.speed, int32(percent))
		}
	}
	d.hwLock.Unlock()
	if err != nil {
		return err
	}

	return d.ramp().Run(ctx, active.Duty(), target, func(duty uint16) error {
		return d.writeIn(epoch, active, duty)
	})
}

func swallowSuperseded(err error) error {
	if err == ErrSuperseded {
		glog.V(2).Info("superseded by stop")
		return nil
	}
	return err
}

// Stop immediately de-energizes all channels without ramping.
// Ramps in flight perform no further writes.
func (d *Drivetrain) Stop() error {
	d.hwLock.Lock()
	defer d.hwLock.Unlock()
	d.epoch++
	var errs fx.AggregatedError
	for _, ch := range d.channels {
		errs.Add(ch.write(DutyStopped))
	}
	for n := range d.sides {
		atomic.StoreInt32(&d.sides[n].speed, 0)
	}
	glog.V(2).Info("stop")
	return errs.Aggregate()
}

func (d *Drivetrain) currentEpoch() uint64 {
	d.hwLock.Lock()
	defer d.hwLock.Unlock()
	return d.epoch
}

func (d *Drivetrain) ramp() *Ramp {
	r := d.Config.Ramp()
	r.Clock = d.Clock
	return r
}

func (d *Drivetrain) writeIn(epoch uint64, ch *Channel, duty uint16) error {
	d.hwLock.Lock()
	defer d.hwLock.Unlock()
	if d.epoch != epoch {
		return ErrSuperseded
	}
	return ch.write(duty)
}

// jolt expects sides in ascending order. It returns ErrSuperseded if
// Stop was called after epoch was taken.
func (d *Drivetrain) jolt(ctx context.Context, epoch uint64, reverse bool, sides ...Side) error {
	for _, s := range sides {
		sd := &d.sides[s]
		sd.lock.Lock()
		defer sd.lock.Unlock()
	}

	d.Indicator.Activity()
	defer d.Indicator.Idle()

	var kicked []*Channel
	d.hwLock.Lock()
	err := ErrSuperseded
	if d.epoch == epoch {
		err = nil
		for _, s := range sides {
			active, inactive := d.sides[s].channels(reverse)
			glog.V(2).Infof("jolt %s: %s -> %d", s, active.ID, d.JoltDuty)
			if err = inactive.write(DutyStopped); err != nil {
				break
			}
			kicked = append(kicked, active)
			if err = active.write(d.JoltDuty); err != nil {
				break
			}
		}
	}
	d.hwLock.Unlock()

	if err == nil {
		clk := d.Clock
		if clk == nil {
			clk = clock.New()
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-clk.After(d.JoltTime):
		}
	}

	errs := (&fx.AggregatedError{}).Add(err)
	d.hwLock.Lock()
	for _, ch := range kicked {
		errs.Add(ch.write(DutyStopped))
	}
	superseded := d.epoch != epoch
	d.hwLock.Unlock()
	if err == nil && superseded && len(errs.Errors) == 0 {
		return ErrSuperseded
	}
	return errs.Aggregate()
}
