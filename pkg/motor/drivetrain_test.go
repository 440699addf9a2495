package motor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/motor"
	"github.com/robotalks/rover/pkg/motor/fake"
)

type countingIndicator struct {
	lock     sync.Mutex
	activity int
	idle     int
}

func (i *countingIndicator) Activity() {
	i.lock.Lock()
	i.activity++
	i.lock.Unlock()
}

func (i *countingIndicator) Idle() {
	i.lock.Lock()
	i.idle++
	i.lock.Unlock()
}

func newTestDrivetrain(conf motor.Config) (*motor.Drivetrain, *fake.Recorder) {
	rec := fake.NewRecorder()
	return motor.NewDrivetrain(conf, rec.Outputs()), rec
}

func testConfig() motor.Config {
	return motor.Config{
		MotorMax: 32768,
		JoltDuty: 10000,
		RampStep: 4096,
	}
}

func TestTargetDuty(t *testing.T) {
	testCases := []struct {
		percent int
		max     uint16
		expect  uint16
	}{
		{0, 32768, 65535},
		{50, 32768, 49151},
		{-50, 32768, 49151},
		{100, 32768, 32768},
		{-100, 32768, 32768},
		{150, 32768, 32768},
		{100, 32000, 32000},
		{100, 0, 0},
		{1, 0, 64879},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expect, motor.TargetDuty(tc.percent, tc.max), "percent %d max %d", tc.percent, tc.max)
	}
	for _, max := range []uint16{0, 1000, 32000, 32768, 65534} {
		for p := -100; p <= 100; p++ {
			a := p
			if a < 0 {
				a = -a
			}
			expect := uint16(65535 - float64(65535-int(max))*float64(a)/100)
			duty := motor.TargetDuty(p, max)
			require.Equal(t, expect, duty, "percent %d max %d", p, max)
			require.True(t, duty >= max)
		}
	}
}

func TestSetSpeedRightHalf(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	require.NoError(t, d.SetSpeed(context.Background(), motor.Right, 50))
	require.Equal(t, [motor.NumChannels]uint16{65535, 49151, 65535, 65535}, d.Duties())
	require.Empty(t, rec.WritesTo(motor.FrontLeft))
	require.Empty(t, rec.WritesTo(motor.BackLeft))
	require.Equal(t, []uint16{65535}, rec.WritesTo(motor.BackRight))
	require.Equal(t, []uint16{61439, 57343, 53247, 49151}, rec.WritesTo(motor.FrontRight))
	require.Equal(t, 50, d.Speed(motor.Right))
	require.Equal(t, 0, d.Speed(motor.Left))
	require.False(t, d.IsStopped())
}

func TestSetSpeedPinsOppositeFirst(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	ctx := context.Background()
	require.NoError(t, d.SetSpeed(ctx, motor.Left, 100))
	rec.Reset()
	require.NoError(t, d.SetSpeed(ctx, motor.Left, -100))
	writes := rec.Writes()
	require.NotEmpty(t, writes)
	require.Equal(t, fake.Write{Channel: motor.FrontLeft, Duty: 65535}, writes[0])
	for _, w := range writes[1:] {
		require.Equal(t, motor.BackLeft, w.Channel)
	}
	require.Equal(t, uint16(32768), writes[len(writes)-1].Duty)
	require.Equal(t, -100, d.Speed(motor.Left))
}

func TestSetSpeedsBothReverse(t *testing.T) {
	d, _ := newTestDrivetrain(testConfig())
	require.NoError(t, d.SetSpeeds(context.Background(), -100, -100))
	require.Equal(t, [motor.NumChannels]uint16{65535, 65535, 32768, 32768}, d.Duties())
}

func TestSetSpeedZeroStopsSide(t *testing.T) {
	d, _ := newTestDrivetrain(testConfig())
	ctx := context.Background()
	require.NoError(t, d.SetSpeed(ctx, motor.Left, 80))
	require.False(t, d.IsStopped())
	require.NoError(t, d.SetSpeed(ctx, motor.Left, 0))
	require.True(t, d.IsStopped())
}

func TestSetSpeedInvalidSide(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	err := d.SetSpeed(context.Background(), motor.Side(2), 10)
	require.Error(t, err)
	require.Equal(t, "invalid side 2", err.Error())
	require.Empty(t, rec.Writes())
}

func TestStopInterruptsRamp(t *testing.T) {
	conf := testConfig()
	conf.RampStep = 1
	conf.RampInterval = time.Millisecond
	d, rec := newTestDrivetrain(conf)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.SetSpeed(context.Background(), motor.Left, 100)
	}()
	for len(rec.WritesTo(motor.FrontLeft)) < 3 {
		time.Sleep(time.Millisecond)
	}
	require.False(t, d.IsStopped())

	start := time.Now()
	require.NoError(t, d.Stop())
	require.True(t, time.Since(start) < 100*time.Millisecond)
	require.True(t, d.IsStopped())
	written := len(rec.Writes())

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ramp not terminated")
	}
	require.Len(t, rec.Writes(), written)
	require.Equal(t, [motor.NumChannels]uint16{65535, 65535, 65535, 65535}, d.Duties())
	require.Equal(t, 0, d.Speed(motor.Left))
}

func TestStopDuringForwardJolt(t *testing.T) {
	conf := testConfig()
	conf.JoltTime = 100 * time.Millisecond
	d, rec := newTestDrivetrain(conf)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Forward(context.Background(), 50)
	}()
	for len(rec.WritesTo(motor.FrontLeft)) == 0 {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, uint16(10000), rec.WritesTo(motor.FrontLeft)[0])
	require.NoError(t, d.Stop())

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("forward not terminated")
	}
	require.True(t, d.IsStopped())
	require.Equal(t, [motor.NumChannels]uint16{65535, 65535, 65535, 65535}, d.Duties())
	require.Equal(t, 0, d.Speed(motor.Left))
	require.Equal(t, 0, d.Speed(motor.Right))
	for _, duty := range rec.WritesTo(motor.FrontRight)[1:] {
		require.Equal(t, uint16(65535), duty)
	}
}

func TestStopIdempotent(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	require.True(t, d.IsStopped())
	require.Len(t, rec.Writes(), 2*motor.NumChannels)
}

func TestStopReportsFaultsAndContinues(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	rec.FailOn(motor.FrontRight, errors.New("bus error"))
	err := d.Stop()
	require.Error(t, err)
	require.True(t, motor.IsHardwareWriteFault(err))
	require.Len(t, rec.Writes(), motor.NumChannels-1)
}

func TestHardwareFaultPropagates(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	busErr := errors.New("bus error")
	rec.FailOn(motor.FrontLeft, busErr)
	err := d.SetSpeed(context.Background(), motor.Left, 10)
	require.Error(t, err)
	var fault *motor.HardwareWriteFault
	require.True(t, errors.As(err, &fault))
	require.Equal(t, motor.FrontLeft, fault.Channel)
	require.True(t, errors.Is(err, busErr))
	require.True(t, d.IsStopped())
}

func TestJolt(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	require.NoError(t, d.Jolt(context.Background(), motor.Right, true))
	require.Equal(t, []fake.Write{
		{Channel: motor.FrontRight, Duty: 65535},
		{Channel: motor.BackRight, Duty: 10000},
		{Channel: motor.BackRight, Duty: 65535},
	}, rec.Writes())
	require.True(t, d.IsStopped())
	require.Error(t, d.Jolt(context.Background(), motor.Side(-1), false))
}

func TestForwardJoltsFromStop(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	ctx := context.Background()
	require.NoError(t, d.Forward(ctx, 100))
	require.Equal(t, uint16(10000), rec.WritesTo(motor.FrontLeft)[0])
	require.Equal(t, uint16(10000), rec.WritesTo(motor.FrontRight)[0])
	require.Equal(t, [motor.NumChannels]uint16{32768, 32768, 65535, 65535}, d.Duties())

	// Already moving, no more jolts.
	rec.Reset()
	require.NoError(t, d.Forward(ctx, 50))
	for _, w := range rec.Writes() {
		require.NotEqual(t, uint16(10000), w.Duty)
	}
	require.Equal(t, [motor.NumChannels]uint16{49151, 49151, 65535, 65535}, d.Duties())
}

func TestForwardZeroNoJolt(t *testing.T) {
	d, rec := newTestDrivetrain(testConfig())
	require.NoError(t, d.Forward(context.Background(), 0))
	for _, w := range rec.Writes() {
		require.Equal(t, uint16(65535), w.Duty)
	}
}

func TestIndicator(t *testing.T) {
	d, _ := newTestDrivetrain(testConfig())
	ind := &countingIndicator{}
	d.Indicator = ind
	require.NoError(t, d.SetSpeeds(context.Background(), 10, 20))
	require.Equal(t, 2, ind.activity)
	require.Equal(t, 2, ind.idle)
}
