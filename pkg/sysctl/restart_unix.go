//go:build linux || darwin

package sysctl

import (
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ExecRestarter replaces the running process with a fresh instance of
// the same binary.
type ExecRestarter struct {
	HardReset bool
	// BeforeExec runs before the process is replaced, usually stopping
	// the motors and flushing logs.
	BeforeExec func()
}

// Reload implements Restarter.
func (r *ExecRestarter) Reload() error {
	return r.exec()
}

// Reset implements Restarter.
func (r *ExecRestarter) Reset() error {
	if !r.HardReset {
		return r.exec()
	}
	r.prepare()
	glog.Warning("rebooting host")
	unix.Sync()
	return errors.Wrap(reboot(), "reboot")
}

// Restart implements Restarter.
func (r *ExecRestarter) Restart() error {
	return r.exec()
}

func (r *ExecRestarter) prepare() {
	if r.BeforeExec != nil {
		r.BeforeExec()
	}
	glog.Flush()
}

func (r *ExecRestarter) exec() error {
	exe, args, err := execArgs()
	if err != nil {
		return err
	}
	r.prepare()
	return errors.Wrap(unix.Exec(exe, args, os.Environ()), "exec")
}
