package motor

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Ramp moves a duty value to a target in bounded steps.
type Ramp struct {
	// Step is the largest duty change applied at once.
	// Zero jumps straight to the target.
	Step uint16
	// Interval is the pause between consecutive steps.
	Interval time.Duration
	// Clock provides the pause, defaults to the wall clock.
	Clock clock.Clock
}

// StepCount returns the number of writes a ramp from current to target needs.
func (r *Ramp) StepCount(current, target uint16) int {
	diff := absDiff(current, target)
	if diff == 0 {
		return 0
	}
	if r.Step == 0 {
		return 1
	}
	return int((diff + uint32(r.Step) - 1) / uint32(r.Step))
}

// Steps returns the duty values visited after current, ending exactly at target.
func (r *Ramp) Steps(current, target uint16) []uint16 {
	steps := make([]uint16, 0, r.StepCount(current, target))
	for duty := current; duty != target; {
		duty = r.next(duty, target)
		steps = append(steps, duty)
	}
	return steps
}

// Run applies each step through apply, pausing Interval between steps.
// It stops at the first error returned by apply.
func (r *Ramp) Run(ctx context.Context, current, target uint16, apply func(uint16) error) error {
	clk := r.Clock
	if clk == nil {
		clk = clock.New()
	}
	for duty, first := current, true; duty != target; first = false {
		if !first && r.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(r.Interval):
			}
		}
		duty = r.next(duty, target)
		if err := apply(duty); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ramp) next(duty, target uint16) uint16 {
	if r.Step == 0 || absDiff(duty, target) <= uint32(r.Step) {
		return target
	}
	if target > duty {
		return duty + r.Step
	}
	return duty - r.Step
}

func absDiff(a, b uint16) uint32 {
	if a > b {
		return uint32(a - b)
	}
	return uint32(b - a)
}
