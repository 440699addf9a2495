// Package fake implements in-memory motor outputs.
package fake

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/motor"
)

// Write is one recorded duty write.
type Write struct {
	Channel motor.ChannelID
	Duty    uint16
}

// Recorder records the writes of all outputs it creates, in order.
type Recorder struct {
	lock   sync.Mutex
	writes []Write
	fail   map[motor.ChannelID]error
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[motor.ChannelID]error)}
}

// Outputs creates one output per channel, indexed by ChannelID.
func (r *Recorder) Outputs() (outs [motor.NumChannels]motor.Output) {
	for n := range outs {
		id := motor.ChannelID(n)
		outs[n] = motor.OutputFunc(func(duty uint16) error {
			return r.record(id, duty)
		})
	}
	return
}

// FailOn makes writes to a channel fail with err, nil clears it.
func (r *Recorder) FailOn(id motor.ChannelID, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err == nil {
		delete(r.fail, id)
	} else {
		r.fail[id] = err
	}
}

// Writes returns all writes so far.
func (r *Recorder) Writes() []Write {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Write(nil), r.writes...)
}

// WritesTo returns duties written to a single channel.
func (r *Recorder) WritesTo(id motor.ChannelID) (duties []uint16) {
	for _, w := range r.Writes() {
		if w.Channel == id {
			duties = append(duties, w.Duty)
		}
	}
	return
}

// Reset forgets recorded writes.
func (r *Recorder) Reset() {
	r.lock.Lock()
	r.writes = nil
	r.lock.Unlock()
}

func (r *Recorder) record(id motor.ChannelID, duty uint16) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.fail[id]; err != nil {
		return err
	}
	r.writes = append(r.writes, Write{Channel: id, Duty: duty})
	if glog.V(4) {
		glog.Infof("%s <- %d", id, duty)
	}
	return nil
}
