//go:build !linux && !darwin

package sysctl

import "github.com/pkg/errors"

// ExecRestarter is not supported on this platform.
type ExecRestarter struct {
	HardReset  bool
	BeforeExec func()
}

var errUnsupported = errors.New("restart not supported")

// Reload implements Restarter.
func (r *ExecRestarter) Reload() error { return errUnsupported }

// Reset implements Restarter.
func (r *ExecRestarter) Reset() error { return errUnsupported }

// Restart implements Restarter.
func (r *ExecRestarter) Restart() error { return errUnsupported }
