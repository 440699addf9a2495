package motor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestRampSteps(t *testing.T) {
	testCases := []struct {
		name    string
		step    uint16
		current uint16
		target  uint16
		expect  []uint16
	}{
		{name: "no-op", step: 10, current: 100, target: 100, expect: []uint16{}},
		{name: "exact", step: 10, current: 100, target: 130, expect: []uint16{110, 120, 130}},
		{name: "clamped up", step: 10, current: 100, target: 125, expect: []uint16{110, 120, 125}},
		{name: "clamped down", step: 10, current: 125, target: 100, expect: []uint16{115, 105, 100}},
		{name: "single", step: 1000, current: 65535, target: 65000, expect: []uint16{65000}},
		{name: "zero step", step: 0, current: 65535, target: 0, expect: []uint16{0}},
		{name: "near top", step: 4096, current: 60000, target: 65535, expect: []uint16{64096, 65535}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := &Ramp{Step: tc.step}
			require.Equal(t, tc.expect, r.Steps(tc.current, tc.target))
			require.Equal(t, len(tc.expect), r.StepCount(tc.current, tc.target))
		})
	}
}

func TestRampNeverOvershoots(t *testing.T) {
	for _, step := range []uint16{1, 7, 1000, 2048, 33535, 65535} {
		r := &Ramp{Step: step}
		for _, pair := range [][2]uint16{{65535, 32000}, {32000, 65535}, {0, 65535}, {65535, 0}, {12345, 12346}} {
			current, target := pair[0], pair[1]
			steps := r.Steps(current, target)
			diff := int(target) - int(current)
			if diff < 0 {
				diff = -diff
			}
			require.Len(t, steps, (diff+int(step)-1)/int(step))
			require.Equal(t, target, steps[len(steps)-1])
			prev := current
			for _, duty := range steps {
				if target > current {
					require.True(t, duty > prev && duty <= target)
				} else {
					require.True(t, duty < prev && duty >= target)
				}
				require.True(t, absDiff(prev, duty) <= uint32(step))
				prev = duty
			}
		}
	}
}

func TestRampRunApplyError(t *testing.T) {
	r := &Ramp{Step: 10}
	var applied []uint16
	err := r.Run(context.Background(), 0, 100, func(duty uint16) error {
		applied = append(applied, duty)
		if duty == 30 {
			return ErrSuperseded
		}
		return nil
	})
	require.Equal(t, ErrSuperseded, err)
	require.Equal(t, []uint16{10, 20, 30}, applied)
}

func TestRampRunWaitsBetweenSteps(t *testing.T) {
	clk := clock.NewMock()
	r := &Ramp{Step: 10, Interval: time.Second, Clock: clk}
	appliedCh := make(chan uint16, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(context.Background(), 0, 30, func(duty uint16) error {
			appliedCh <- duty
			return nil
		})
	}()
	// The first step is written without waiting.
	require.Equal(t, uint16(10), <-appliedCh)
	for _, expect := range []uint16{20, 30} {
		select {
		case duty := <-appliedCh:
			t.Fatalf("step %d applied before interval", duty)
		case <-time.After(10 * time.Millisecond):
		}
		clk.Add(time.Second)
		require.Equal(t, expect, <-appliedCh)
	}
	require.NoError(t, <-errCh)
}

func TestRampRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Ramp{Step: 1, Interval: time.Hour}
	err := r.Run(ctx, 0, 100, func(duty uint16) error {
		cancel()
		return nil
	})
	require.True(t, errors.Is(err, context.Canceled))
}
