package netcmd

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Election holds whether this node is the assigned controller.
// The role is decided by the coordinator, the node only reacts.
type Election struct {
	// Rand is the ballot source, crypto/rand by default.
	Rand io.Reader

	lock       sync.Mutex
	controller bool
	observers  []func(bool)
}

// IsController indicates this node was assigned the controller role.
func (e *Election) IsController() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.controller
}

// Assign grants the controller role.
func (e *Election) Assign() {
	e.set(true)
}

// Reset falls back to follower.
func (e *Election) Reset() {
	e.set(false)
}

// Vote starts a new round: the node becomes a follower and draws a
// random ballot.
func (e *Election) Vote() (byte, error) {
	e.Reset()
	src := e.Rand
	if src == nil {
		src = rand.Reader
	}
	var ballot [1]byte
	if _, err := io.ReadFull(src, ballot[:]); err != nil {
		return 0, errors.Wrap(err, "draw ballot")
	}
	return ballot[0], nil
}

// OnChange registers an observer invoked on every role transition.
func (e *Election) OnChange(fn func(controller bool)) {
	e.lock.Lock()
	e.observers = append(e.observers, fn)
	e.lock.Unlock()
}

func (e *Election) set(controller bool) {
	e.lock.Lock()
	changed := e.controller != controller
	e.controller = controller
	observers := e.observers
	e.lock.Unlock()
	if !changed {
		return
	}
	glog.Infof("controller role: %v", controller)
	for _, fn := range observers {
		fn(controller)
	}
}
