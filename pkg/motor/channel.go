package motor

import (
	"sync/atomic"
)

// DutyStopped is the duty value of a de-energized output.
const DutyStopped uint16 = 65535

// ChannelID identifies a physical actuator output.
type ChannelID int

// Channel identities.
const (
	FrontLeft ChannelID = iota
	FrontRight
	BackLeft
	BackRight

	// NumChannels is the number of actuator outputs.
	NumChannels = 4
)

var channelNames = [NumChannels]string{"front-left", "front-right", "back-left", "back-right"}

// String implements fmt.Stringer.
func (id ChannelID) String() string {
	if id < 0 || int(id) >= NumChannels {
		return "unknown"
	}
	return channelNames[id]
}

// Output writes duty values to a physical actuator.
type Output interface {
	SetDuty(duty uint16) error
}

// OutputFunc is the func form of Output.
type OutputFunc func(duty uint16) error

// SetDuty implements Output.
func (f OutputFunc) SetDuty(duty uint16) error {
	return f(duty)
}

// Channel is one actuator output together with its last commanded duty.
type Channel struct {
	ID ChannelID

	out  Output
	duty uint32
}

// NewChannel creates a Channel assumed to be stopped.
func NewChannel(id ChannelID, out Output) *Channel {
	return &Channel{ID: id, out: out, duty: uint32(DutyStopped)}
}

// Duty returns the last successfully written duty.
func (c *Channel) Duty() uint16 {
	return uint16(atomic.LoadUint32(&c.duty))
}

// IsStopped indicates the channel is de-energized.
func (c *Channel) IsStopped() bool {
	return c.Duty() == DutyStopped
}

func (c *Channel) write(duty uint16) error {
	if err := c.out.SetDuty(duty); err != nil {
		return &HardwareWriteFault{Channel: c.ID, Duty: duty, Err: err}
	}
	atomic.StoreUint32(&c.duty, uint32(duty))
	return nil
}
