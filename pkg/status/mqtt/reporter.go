package mqtt

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/motor"
	"github.com/robotalks/rover/pkg/status"
)

// Source provides the vehicle state to report.
type Source interface {
	Duties() [motor.NumChannels]uint16
	Speed(motor.Side) int
	IsStopped() bool
}

// Topics relative to the node.
const (
	TopicMeta   = "meta"
	TopicStatus = "status"
)

// DefaultInterval is the heartbeat interval of status reports.
const DefaultInterval = 5 * time.Second

// Reporter publishes node metadata and status reports.
// It is a status.Indicator, a report is published every time the
// vehicle becomes idle, on role changes and periodically.
type Reporter struct {
	Queue    *Queue
	Meta     status.NodeMeta
	Source   Source
	Interval time.Duration
	Clock    clock.Clock

	controller int32
	busy       int32
}

// NewReporter creates a Reporter connected to brokerURL. The metadata
// is retained and cleared by a will when the node goes away.
func NewReporter(brokerURL string, meta status.NodeMeta, src Source) (*Reporter, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+meta.ID+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rover:" + meta.ID)
	}
	r := NewReporterWith(NewQueue(opts, prefix), meta, src)
	return r, nil
}

// NewReporterWith creates a Reporter on an existing Queue.
func NewReporterWith(q *Queue, meta status.NodeMeta, src Source) *Reporter {
	r := &Reporter{
		Queue:    q,
		Meta:     meta,
		Source:   src,
		Interval: DefaultInterval,
		Clock:    clock.New(),
	}
	q.OnConnect = func(*Queue) {
		r.publishMeta()
		r.Publish()
	}
	return r
}

// Name implements framework.Named.
func (r *Reporter) Name() string {
	return "reporter"
}

// Activity implements status.Indicator.
func (r *Reporter) Activity() {
	atomic.AddInt32(&r.busy, 1)
}

// Idle implements status.Indicator.
func (r *Reporter) Idle() {
	if atomic.AddInt32(&r.busy, -1) <= 0 {
		r.Publish()
	}
}

// RoleChanged records the controller role and reports it.
func (r *Reporter) RoleChanged(controller bool) {
	var val int32
	if controller {
		val = 1
	}
	atomic.StoreInt32(&r.controller, val)
	r.Publish()
}

// Snapshot builds a report from the current state.
func (r *Reporter) Snapshot() *status.Report {
	rep := &status.Report{
		LeftSpeed:  int32(r.Source.Speed(motor.Left)),
		RightSpeed: int32(r.Source.Speed(motor.Right)),
		Moving:     !r.Source.IsStopped(),
		Timestamp:  r.Clock.Now().UnixNano() / int64(time.Millisecond),
	}
	if atomic.LoadInt32(&r.controller) != 0 {
		rep.Role = status.RoleController
	}
	for _, duty := range r.Source.Duties() {
		rep.Duties = append(rep.Duties, uint32(duty))
	}
	return rep
}

// Publish sends a report if connected.
func (r *Reporter) Publish() {
	if !r.Queue.Client.IsConnected() {
		return
	}
	data, err := r.Snapshot().Encode()
	if err != nil {
		glog.Errorf("encode report: %v", err)
		return
	}
	r.Queue.Pub(r.Meta.ID+"/"+TopicStatus, data)
}

// Run implements framework.Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	if err := r.Queue.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// paho keeps reconnecting only after a first success.
		glog.Errorf("MQTT connect: %v", err)
		return err
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := r.Clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Queue.PubWith(r.Meta.ID+"/"+TopicMeta, nil, 1, true).WaitTimeout(time.Second)
			r.Queue.Close()
			return ctx.Err()
		case <-ticker.C:
			r.Publish()
		}
	}
}

func (r *Reporter) publishMeta() {
	meta, err := json.Marshal(&r.Meta)
	if err != nil {
		glog.Errorf("encode meta: %v", err)
		return
	}
	r.Queue.PubWith(r.Meta.ID+"/"+TopicMeta, meta, 1, true)
}
