package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/motor"
	"github.com/robotalks/rover/pkg/motor/fake"
)

type fakeRestarter struct {
	reloads, resets, restarts int
}

func (r *fakeRestarter) Reload() error  { r.reloads++; return nil }
func (r *fakeRestarter) Reset() error   { r.resets++; return nil }
func (r *fakeRestarter) Restart() error { r.restarts++; return nil }

type fakeThermometer struct {
	temp float64
	err  error
}

func (t *fakeThermometer) Temperature() (float64, error) {
	return t.temp, t.err
}

type dispatcherTestEnv struct {
	t          *testing.T
	out        bytes.Buffer
	dispatcher *Dispatcher
	dt         *motor.Drivetrain
	rec        *fake.Recorder
	restarter  *fakeRestarter
	therm      *fakeThermometer
}

func newDispatcherTestEnv(t *testing.T) *dispatcherTestEnv {
	env := &dispatcherTestEnv{t: t, rec: fake.NewRecorder(), restarter: &fakeRestarter{}, therm: &fakeThermometer{temp: 42.25}}
	env.dt = motor.NewDrivetrain(motor.Config{MotorMax: 32768, RampStep: 8192}, env.rec.Outputs())
	cmds := &Commands{Drivetrain: env.dt, Restarter: env.restarter, Thermometer: env.therm}
	env.dispatcher = NewDispatcher(&env.out).AddCmd(cmds.Cmds()...)
	env.dispatcher.AddCmd(HelpCmd(env.dispatcher))
	return env
}

func (e *dispatcherTestEnv) run(tokens ...string) error {
	e.out.Reset()
	return e.dispatcher.Dispatch(context.Background(), tokens)
}

func TestDispatchSetBothReverse(t *testing.T) {
	env := newDispatcherTestEnv(t)
	require.NoError(t, env.run("set", "2", "-100"))
	require.Equal(t, [motor.NumChannels]uint16{65535, 65535, 32768, 32768}, env.dt.Duties())
	require.NoError(t, env.run("v"))
	require.Equal(t, "fl: 65535 fr: 65535 bl: 32768 br: 32768\r\n", env.out.String())
	require.NoError(t, env.run("st"))
	require.True(t, env.dt.IsStopped())
}

func TestDispatchSetOneSide(t *testing.T) {
	env := newDispatcherTestEnv(t)
	require.NoError(t, env.run("s", "1", "50"))
	require.Equal(t, [motor.NumChannels]uint16{65535, 49151, 65535, 65535}, env.dt.Duties())
	require.NoError(t, env.run("s", "0", "-50"))
	require.Equal(t, [motor.NumChannels]uint16{65535, 49151, 49151, 65535}, env.dt.Duties())
}

func TestDispatchSetInvalid(t *testing.T) {
	testCases := [][]string{
		{"set", "9", "5"},
		{"set", "-1", "5"},
		{"set", "1"},
		{"set", "1", "2", "3"},
		{"set", "x", "5"},
		{"s", "1", "fast"},
	}
	for _, tc := range testCases {
		env := newDispatcherTestEnv(t)
		err := env.run(tc...)
		require.Error(t, err)
		require.True(t, IsInvalidArguments(err))
		require.Equal(t, "Usage: set <0|1|2> <percent>\r\n", env.out.String())
		require.Empty(t, env.rec.Writes())
	}
}

func TestDispatchInvalidCommand(t *testing.T) {
	env := newDispatcherTestEnv(t)
	require.NoError(t, env.run("fly", "1"))
	require.Equal(t, "Invalid command!\r\n", env.out.String())
	require.NoError(t, env.run())
	require.Empty(t, env.out.String())
}

func TestDispatchSystemCommands(t *testing.T) {
	env := newDispatcherTestEnv(t)
	require.Equal(t, ErrQuit, env.run("q"))
	require.Equal(t, ErrQuit, env.run("quit"))

	require.NoError(t, env.run("rel"))
	require.NoError(t, env.run("rst"))
	require.NoError(t, env.run("res"))
	require.Equal(t, 1, env.restarter.reloads)
	require.Equal(t, 2, env.restarter.resets)

	require.NoError(t, env.run("t"))
	require.Equal(t, "42.2 C\r\n", env.out.String())
	env.therm.err = errors.New("no sensor")
	require.NoError(t, env.run("temp"))
	require.Contains(t, env.out.String(), "unavailable")

	require.NoError(t, env.run("h"))
	require.Contains(t, env.out.String(), "set|s")
	require.Contains(t, env.out.String(), "reset|res|rst")
}

func TestConsoleRun(t *testing.T) {
	local := newTestConn()
	mux := NewMux(NewPort("local", KindSerial, local))
	rec := fake.NewRecorder()
	dt := motor.NewDrivetrain(motor.Config{MotorMax: 32768, RampStep: 8192}, rec.Outputs())
	restarter := &fakeRestarter{}
	c := New(mux, &Commands{Drivetrain: dt, Restarter: restarter, Thermometer: &fakeThermometer{}})
	quit := false
	c.OnQuit = func() { quit = true }

	go local.send(t, "s 0 100\rs 5 5\rjump\r\x03quit\r")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	require.True(t, quit)
	require.Equal(t, uint16(32768), dt.Channel(motor.FrontLeft).Duty())
	out := local.output()
	require.Contains(t, out, "> s 0 100\r\n> ")
	require.Contains(t, out, "Usage: set <0|1|2> <percent>\r\n")
	require.Contains(t, out, "Invalid command!\r\n")
}

func TestConsoleRunHardwareFault(t *testing.T) {
	local := newTestConn()
	mux := NewMux(NewPort("local", KindSerial, local))
	rec := fake.NewRecorder()
	rec.FailOn(motor.BackRight, errors.New("bus error"))
	dt := motor.NewDrivetrain(motor.Config{MotorMax: 32768}, rec.Outputs())
	c := New(mux, &Commands{Drivetrain: dt, Restarter: &fakeRestarter{}, Thermometer: &fakeThermometer{}})

	go local.send(t, "stop\r")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Run(ctx)
	require.True(t, motor.IsHardwareWriteFault(err))
}
