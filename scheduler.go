package main

import (
	"errors"
	"fmt"
	"math"
)

// ===========================================================================
// LEARNING RATE SCHEDULES
// ===========================================================================
//
// A schedule maps the current training step to a multiplier on the base
// learning rate. Four kinds are supported:
//
//   constant              flat at the base rate
//   constant_with_warmup  linear ramp over warmup steps, then flat
//   linear                warmup ramp, then linear decay to zero at the
//                         final training step
//   cosine                warmup ramp, then half-cycle cosine decay to zero
//
// LR() reads the rate for the current step; Step() advances. The runner
// calls them in that order, once per training batch: the rate in effect for
// a step is the one read before the schedule advances.
//
// ===========================================================================

// ErrUnknownSchedule is returned for a schedule kind outside the closed set.
var ErrUnknownSchedule = errors.New("unknown learning rate schedule")

// ScheduleKind identifies a learning rate schedule shape.
type ScheduleKind int

const (
	// ScheduleConstant keeps the learning rate flat at the base value.
	ScheduleConstant ScheduleKind = iota

	// ScheduleConstantWithWarmup ramps linearly over the warmup steps, then
	// stays flat.
	ScheduleConstantWithWarmup

	// ScheduleLinear ramps up over warmup, then decays linearly to zero at
	// the final training step.
	ScheduleLinear

	// ScheduleCosine ramps up over warmup, then follows half a cosine cycle
	// down to zero.
	ScheduleCosine
)

// String returns the schedule kind's configuration name.
func (k ScheduleKind) String() string {
	switch k {
	case ScheduleConstant:
		return "constant"
	case ScheduleConstantWithWarmup:
		return "constant_with_warmup"
	case ScheduleLinear:
		return "linear"
	case ScheduleCosine:
		return "cosine"
	default:
		return fmt.Sprintf("schedule(%d)", int(k))
	}
}

// ParseScheduleKind maps a configuration name to a ScheduleKind.
func ParseScheduleKind(s string) (ScheduleKind, error) {
	switch s {
	case "constant":
		return ScheduleConstant, nil
	case "constant_with_warmup":
		return ScheduleConstantWithWarmup, nil
	case "linear":
		return ScheduleLinear, nil
	case "cosine":
		return ScheduleCosine, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSchedule, s)
	}
}

// LRScheduler tracks the current step and produces the learning rate for it.
type LRScheduler struct {
	kind       ScheduleKind
	baseLR     float64
	multiplier func(step int) float64
	step       int
}

// NewLRScheduler builds a scheduler of the requested kind. warmupSteps and
// totalSteps shape the warmup and decay segments; constant ignores both and
// constant_with_warmup ignores totalSteps.
func NewLRScheduler(kind ScheduleKind, baseLR float64, warmupSteps, totalSteps int) (*LRScheduler, error) {
	var multiplier func(step int) float64

	switch kind {
	case ScheduleConstant:
		multiplier = constantSchedule()
	case ScheduleConstantWithWarmup:
		multiplier = constantWithWarmupSchedule(warmupSteps)
	case ScheduleLinear:
		multiplier = linearSchedule(warmupSteps, totalSteps)
	case ScheduleCosine:
		multiplier = cosineSchedule(warmupSteps, totalSteps)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchedule, kind)
	}

	return &LRScheduler{
		kind:       kind,
		baseLR:     baseLR,
		multiplier: multiplier,
	}, nil
}

// Kind returns the schedule kind.
func (s *LRScheduler) Kind() ScheduleKind {
	return s.kind
}

// LR returns the learning rate for the current step.
func (s *LRScheduler) LR() float64 {
	return s.baseLR * s.multiplier(s.step)
}

// Step advances the schedule by one training step.
func (s *LRScheduler) Step() {
	s.step++
}

// CurrentStep returns the number of times Step has been called.
func (s *LRScheduler) CurrentStep() int {
	return s.step
}

func constantSchedule() func(int) float64 {
	return func(int) float64 { return 1.0 }
}

func constantWithWarmupSchedule(warmupSteps int) func(int) float64 {
	return func(step int) float64 {
		if step < warmupSteps {
			return float64(step) / float64(maxInt(1, warmupSteps))
		}
		return 1.0
	}
}

func linearSchedule(warmupSteps, totalSteps int) func(int) float64 {
	return func(step int) float64 {
		if step < warmupSteps {
			return float64(step) / float64(maxInt(1, warmupSteps))
		}
		remaining := float64(totalSteps-step) / float64(maxInt(1, totalSteps-warmupSteps))
		return math.Max(0, remaining)
	}
}

func cosineSchedule(warmupSteps, totalSteps int) func(int) float64 {
	return func(step int) float64 {
		if step < warmupSteps {
			return float64(step) / float64(maxInt(1, warmupSteps))
		}
		progress := float64(step-warmupSteps) / float64(maxInt(1, totalSteps-warmupSteps))
		return math.Max(0, 0.5*(1.0+math.Cos(math.Pi*progress)))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
