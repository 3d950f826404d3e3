package sound

import (
	"fmt"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
)

// SampleKind is the linear sample representation of a PCM stream.
type SampleKind int

const (
	KindU8  SampleKind = iota // unsigned 8-bit, midpoint 0x80 (core output)
	KindS16                   // signed 16-bit little endian
	KindF32                   // 32-bit float little endian, -1..1
)

func (k SampleKind) Size() int {
	switch k {
	case KindS16:
		return 2
	case KindF32:
		return 4
	}
	return 1
}

func (k SampleKind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindS16:
		return "s16"
	case KindF32:
		return "f32"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Format describes interleaved PCM.
type Format struct {
	Rate     int
	Channels int
	Kind     SampleKind
}

// Source is the fixed format the core produces.
var Source = Format{Rate: core.AudioRate, Channels: core.AudioChannels, Kind: KindU8}

// FrameSize is the size in bytes of one frame (one sample per channel).
func (f Format) FrameSize() int { return f.Channels * f.Kind.Size() }

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.Rate, f.Channels, f.Kind)
}

// Sink is the host audio device. Queued reports the bytes handed over but
// not yet played; the pipeline never blocks on the sink. Queue must not
// retain buf after it returns.
type Sink interface {
	Format() Format
	Queued() int
	Queue(buf []byte) error
	Close() error
}

// SinkOpener opens a host sink. want is the format the pipeline would
// like; the returned sink may negotiate something else.
type SinkOpener func(want Format) (Sink, error)

// Override may intercept an assembled buffer before it reaches the sink.
// Returning true means the override handled delivery.
type Override interface {
	Intercept(buf []byte, f Format) bool
}

// OverrideFunc adapts a function to Override.
type OverrideFunc func(buf []byte, f Format) bool

func (fn OverrideFunc) Intercept(buf []byte, f Format) bool { return fn(buf, f) }
