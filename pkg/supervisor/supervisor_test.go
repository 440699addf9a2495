package supervisor

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/motor"
	"github.com/robotalks/rover/pkg/motor/fake"
)

type fakeRestarter struct {
	restarts int
	err      error
}

func (r *fakeRestarter) Reload() error { return nil }
func (r *fakeRestarter) Reset() error  { return nil }
func (r *fakeRestarter) Restart() error {
	r.restarts++
	return r.err
}

type supervisorTestEnv struct {
	sv        *Supervisor
	dt        *motor.Drivetrain
	restarter *fakeRestarter
	console   bytes.Buffer
	attended  bool
}

func newSupervisorTestEnv() *supervisorTestEnv {
	env := &supervisorTestEnv{restarter: &fakeRestarter{}}
	env.dt = motor.NewDrivetrain(motor.Config{MotorMax: 32768}, fake.NewRecorder().Outputs())
	env.sv = &Supervisor{
		Motors:    env.dt,
		Restarter: env.restarter,
		Attended:  func() bool { return env.attended },
		Console:   &env.console,
	}
	return env
}

func (e *supervisorTestEnv) move(t *testing.T) {
	require.NoError(t, e.dt.SetSpeed(context.Background(), motor.Left, 100))
	require.False(t, e.dt.IsStopped())
}

func TestGuardClean(t *testing.T) {
	env := newSupervisorTestEnv()
	env.move(t)
	require.NoError(t, env.sv.Guard(context.Background(), "loop", func(context.Context) error {
		return nil
	}))
	require.NoError(t, env.sv.Guard(context.Background(), "loop", func(context.Context) error {
		return errors.Wrap(context.Canceled, "shutdown")
	}))
	require.False(t, env.dt.IsStopped())
	require.Zero(t, env.restarter.restarts)
}

func TestGuardAttendedFault(t *testing.T) {
	env := newSupervisorTestEnv()
	env.attended = true
	env.move(t)
	cause := &motor.HardwareWriteFault{Channel: motor.FrontLeft, Err: errors.New("bus error")}
	err := env.sv.Guard(context.Background(), "net", func(context.Context) error {
		return cause
	})
	var fault *Fault
	require.True(t, errors.As(err, &fault))
	require.Equal(t, "net", fault.Name)
	require.True(t, motor.IsHardwareWriteFault(err))
	require.True(t, env.dt.IsStopped())
	require.Contains(t, env.console.String(), "FAULT in net")
	require.Zero(t, env.restarter.restarts)
}

func TestGuardPanic(t *testing.T) {
	env := newSupervisorTestEnv()
	env.attended = true
	env.move(t)
	err := env.sv.Guard(context.Background(), "console", func(context.Context) error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	var fault *Fault
	require.True(t, errors.As(err, &fault))
	require.Contains(t, string(fault.Stack), "supervisor_test.go")
	require.True(t, env.dt.IsStopped())
}

func TestGuardUnattendedRestarts(t *testing.T) {
	env := newSupervisorTestEnv()
	env.move(t)
	require.NoError(t, env.sv.Guard(context.Background(), "net", func(context.Context) error {
		panic("boom")
	}))
	require.Equal(t, 1, env.restarter.restarts)
	require.True(t, env.dt.IsStopped())
	require.Empty(t, env.console.String())

	env.restarter.err = errors.New("exec failed")
	err := env.sv.Guard(context.Background(), "net", func(context.Context) error {
		return errors.New("broken")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exec failed")
	require.Equal(t, 2, env.restarter.restarts)
}
