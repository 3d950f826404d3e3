// Package sched converts host wall-clock deltas into bounded core runs and
// keeps the frame timing statistics.
package sched

import (
	"math"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
)

// BaseSpeed is the speed factor of real-time emulation.
const BaseSpeed = 1.0

// speedEpsilon absorbs the rounding of 1/k in float64.
const speedEpsilon = 1e-9

const (
	fpsWindowTicks = 2 * core.TicksPerSecond // fps refresh, emulated time
	dutyWindow     = 500 * time.Millisecond  // duty refresh, wall time
)

// Config tunes the scheduler.
type Config struct {
	// MaxDelta caps one Tick's delta so a host stall does not turn into a
	// long catch-up burst.
	MaxDelta time.Duration
	// Timeout bounds the wall time one Tick may spend in the core. Zero
	// disables it.
	Timeout time.Duration
	// Now is the wall clock used for the timeout and duty statistics.
	Now func() time.Time
}

func (c *Config) Defaults() {
	if c.MaxDelta <= 0 {
		c.MaxDelta = 50 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Hooks are invoked from inside Tick. Frame runs on every new frame and
// Audio whenever the core reports a full audio buffer.
type Hooks struct {
	Frame func(ev core.Event)
	Audio func(speed float64)
}

// Result is the outcome of one Tick.
type Result struct {
	NewFrame bool
	Events   core.Event
	TimedOut bool
	Ticks    uint64 // core ticks actually run
}

// Fault reports whether the core stopped on a breakpoint or invalid opcode.
func (r Result) Fault() bool { return r.Events.Fault() }

// Timing is the frame timing snapshot.
type Timing struct {
	Frames uint64
	FPS    float64
	Duty   float64 // percent of the tick budget spent in the core, 0..100
}

// Scheduler drives one core. Not safe for concurrent use.
type Scheduler struct {
	cfg   Config
	core  core.Core
	hooks Hooks
	speed float64

	carry float64 // fractional ticks owed to the next Tick

	// fps window
	frames      uint64
	markTick    uint64
	markFrames  uint64
	markSeconds float64
	fps         float64

	// duty window
	budget time.Duration
	busy   time.Duration
	duty   float64
}

func New(cfg Config, c core.Core, hooks Hooks) *Scheduler {
	cfg.Defaults()
	return &Scheduler{cfg: cfg, core: c, hooks: hooks, speed: BaseSpeed, markTick: c.Ticks()}
}

// ValidSpeed reports whether f is an integer multiple or divisor of the
// base speed, at most core.MaxSpeedRatio away from it.
func ValidSpeed(f float64) bool {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	r := f / BaseSpeed
	if r < 1 {
		r = 1 / r
	}
	if r > core.MaxSpeedRatio+speedEpsilon {
		return false
	}
	return math.Abs(r-math.Round(r)) < speedEpsilon
}

// Speed sets the speed factor. Invalid factors are rejected and the
// previous factor is kept.
func (s *Scheduler) Speed(f float64) bool {
	if !ValidSpeed(f) {
		return false
	}
	s.speed = f
	return true
}

// Factor returns the current speed factor.
func (s *Scheduler) Factor() float64 { return s.speed }

func (s *Scheduler) Timing() Timing {
	return Timing{Frames: s.frames, FPS: s.fps, Duty: s.duty}
}

// Tick runs the core for delta of host time scaled by the speed factor.
func (s *Scheduler) Tick(delta time.Duration) Result {
	if delta < 0 {
		delta = 0
	}
	if delta > s.cfg.MaxDelta {
		delta = s.cfg.MaxDelta
	}
	s.carry += delta.Seconds() * core.TicksPerSecond * s.speed / BaseSpeed
	n := uint64(s.carry)
	s.carry -= float64(n)

	start := s.cfg.Now()
	first := s.core.Ticks()
	target := first + n
	var res Result
	for {
		ev := s.core.RunUntil(target)
		res.Events |= ev
		if ev.Has(core.EventNewFrame) {
			res.NewFrame = true
			s.frames++
			if s.hooks.Frame != nil {
				s.hooks.Frame(ev)
			}
		}
		if ev.Has(core.EventAudioFull) && s.hooks.Audio != nil {
			s.hooks.Audio(s.speed)
		}
		if ev.Has(core.EventTickReached) || ev.Fault() {
			break
		}
		if s.cfg.Timeout > 0 && s.cfg.Now().Sub(start) >= s.cfg.Timeout {
			res.TimedOut = true
			break
		}
	}
	res.Ticks = s.core.Ticks() - first
	s.account(delta, s.cfg.Now().Sub(start))
	return res
}

func (s *Scheduler) account(delta, busy time.Duration) {
	s.markSeconds += delta.Seconds()
	if ran := s.core.Ticks() - s.markTick; ran >= fpsWindowTicks {
		if s.markSeconds > 0 {
			s.fps = float64(s.frames-s.markFrames) / s.markSeconds
		}
		s.markTick = s.core.Ticks()
		s.markFrames = s.frames
		s.markSeconds = 0
	}

	s.budget += delta
	s.busy += busy
	if s.budget >= dutyWindow {
		d := 100 * float64(s.busy) / float64(s.budget)
		s.duty = math.Max(0, math.Min(100, d))
		s.budget, s.busy = 0, 0
	}
}
