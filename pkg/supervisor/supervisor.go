// Package supervisor runs the loops of the vehicle under a fault boundary.
//
// A fault stops the motors first. When somebody is attached to the
// local console the fault is reported there and the process halts for
// inspection, otherwise the vehicle restarts to get back to a known
// state.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	fx "github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/sysctl"
)

// Fault is an unhandled error or panic of a supervised loop.
type Fault struct {
	Name  string
	Err   error
	Stack []byte
}

// Error implements error.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Name, f.Err)
}

// Unwrap returns the cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Trace formats the fault with its stack.
func (f *Fault) Trace() string {
	return fmt.Sprintf("FAULT in %s: %v\n%s", f.Name, f.Err, f.Stack)
}

// Stopper puts the motors in a safe state.
type Stopper interface {
	Stop() error
}

// Supervisor applies the fault policy.
type Supervisor struct {
	Motors    Stopper
	Restarter sysctl.Restarter
	// Attended reports whether someone is at the local console.
	Attended func() bool
	// Console receives fault traces when attended.
	Console io.Writer
}

// Guard runs fn and handles a fault of it. It returns nil if fn
// finished normally or was canceled, the Fault when attended, or the
// error of the restart otherwise.
func (s *Supervisor) Guard(ctx context.Context, name string, fn func(context.Context) error) error {
	fault := run(ctx, name, fn)
	if fault == nil {
		return nil
	}
	return s.handle(fault)
}

// Runnable wraps a Runnable so it runs guarded.
func (s *Supervisor) Runnable(name string, r fx.Runnable) fx.Runnable {
	return fx.NamedRun(name, fx.RunnableFunc(func(ctx context.Context) error {
		return s.Guard(ctx, name, r.Run)
	}))
}

func run(ctx context.Context, name string, fn func(context.Context) error) (fault *Fault) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = errors.Errorf("panic: %v", r)
			}
			fault = &Fault{Name: name, Err: err, Stack: debug.Stack()}
		}
	}()
	err := fn(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return &Fault{Name: name, Err: err, Stack: []byte(fmt.Sprintf("%+v", err))}
}

func (s *Supervisor) handle(fault *Fault) error {
	glog.Errorf("%s", fault.Trace())
	if s.Motors != nil {
		if err := s.Motors.Stop(); err != nil {
			glog.Errorf("stop motors: %v", err)
		}
	}
	if s.Attended != nil && s.Attended() {
		if s.Console != nil {
			fmt.Fprintf(s.Console, "\r\n%s\r\n", fault.Trace())
		}
		return fault
	}
	glog.Warning("unattended fault, restarting")
	glog.Flush()
	if s.Restarter == nil {
		return fault
	}
	if err := s.Restarter.Restart(); err != nil {
		return (&fx.AggregatedError{}).Add(fault, errors.Wrap(err, "restart")).Aggregate()
	}
	return nil
}
