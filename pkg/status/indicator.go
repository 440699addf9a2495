// Package status reports vehicle activity to the outside world.
package status

import (
	"github.com/golang/glog"
)

// Indicator signals that the vehicle is busy changing motor state.
type Indicator interface {
	// Activity is called before a motor command starts.
	Activity()
	// Idle is called once the motor command settled.
	Idle()
}

// Nop is an Indicator doing nothing.
type Nop struct{}

// Activity implements Indicator.
func (Nop) Activity() {}

// Idle implements Indicator.
func (Nop) Idle() {}

// LogIndicator logs activity changes at verbose level.
type LogIndicator struct{}

// Activity implements Indicator.
func (LogIndicator) Activity() {
	glog.V(2).Info("activity")
}

// Idle implements Indicator.
func (LogIndicator) Idle() {
	glog.V(2).Info("idle")
}

// Indicators fans out to multiple indicators.
type Indicators []Indicator

// Activity implements Indicator.
func (l Indicators) Activity() {
	for _, ind := range l {
		ind.Activity()
	}
}

// Idle implements Indicator.
func (l Indicators) Idle() {
	for _, ind := range l {
		ind.Idle()
	}
}

// Add appends more indicators.
func (l *Indicators) Add(inds ...Indicator) {
	*l = append(*l, inds...)
}
