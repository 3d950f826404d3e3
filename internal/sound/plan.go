package sound

import (
	"math"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
)

// Plan maps source frames to output frames: every Stride-th source frame
// is kept and each kept frame is written Repeat times.
type Plan struct {
	Stride int
	Repeat int
}

// PlanFor returns the plan for a speed factor relative to base. Faster
// speeds decimate, slower speeds repeat.
func PlanFor(speed, base float64) Plan {
	if speed <= 0 || base <= 0 {
		return Plan{Stride: 1, Repeat: 1}
	}
	r := speed / base
	switch {
	case r > 1:
		return Plan{Stride: ratio(r), Repeat: 1}
	case r < 1:
		return Plan{Stride: 1, Repeat: ratio(1 / r)}
	}
	return Plan{Stride: 1, Repeat: 1}
}

// ratio rounds r to an integer in 1..core.MaxSpeedRatio.
func ratio(r float64) int {
	if math.IsNaN(r) || r < 1 {
		return 1
	}
	if r > core.MaxSpeedRatio {
		return core.MaxSpeedRatio
	}
	return int(math.Round(r))
}

// Frames is the number of output frames the plan yields for n source frames.
func (p Plan) Frames(n int) int {
	if p.Stride <= 0 || p.Repeat <= 0 {
		return 0
	}
	return n / p.Stride * p.Repeat
}
