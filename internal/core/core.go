// Package core describes the emulation core as seen by the host bridge.
// The bridge never looks inside the core; it only drives it through Core.
package core

import "image/color"

// TicksPerSecond is the core's tick rate at 1x speed (DMG master clock).
const TicksPerSecond = 4194304

// MaxSpeedRatio bounds the speed factor: at most this many times faster
// or slower than real time.
const MaxSpeedRatio = 64

// Screen dimensions of the framebuffer returned by Core.Framebuffer (RGBA).
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Event is the bitmask returned by Core.RunUntil.
type Event uint8

const (
	EventNewFrame      Event = 1 << iota // a frame was completed (vblank)
	EventAudioFull                       // the audio buffer is ready to be consumed
	EventTickReached                     // the requested tick boundary was reached
	EventBreakpoint                      // execution stopped on a breakpoint
	EventInvalidOpcode                   // execution stopped on an invalid opcode
)

// Has reports whether all bits of o are set in e.
func (e Event) Has(o Event) bool { return e&o == o }

// Fault reports whether e carries a core-reported fault.
func (e Event) Fault() bool { return e&(EventBreakpoint|EventInvalidOpcode) != 0 }

// Variant selects the device capability set.
type Variant int

const (
	VariantBase Variant = iota
	VariantExtended
)

func (v Variant) String() string {
	if v == VariantExtended {
		return "extended"
	}
	return "base"
}

// Buttons is the joypad state.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

// Audio format produced by Core.AudioBuffer: unsigned 8-bit interleaved frames.
const (
	AudioRate     = 44100
	AudioChannels = 2
)

// Core is the contract of the emulation core.
type Core interface {
	// Read and Write access guest memory through the bus.
	Read(addr uint16) byte
	Write(addr uint16, value byte)

	// RunUntil advances the core up to tick and returns early on any event.
	// It never blocks.
	RunUntil(tick uint64) Event
	// Ticks returns the current tick counter.
	Ticks() uint64

	// Framebuffer returns the last completed frame as RGBA pixels.
	Framebuffer() []byte

	// AudioBuffer returns the pending U8 interleaved samples and
	// ConsumeAudio marks them as read.
	AudioBuffer() []byte
	ConsumeAudio()

	// SetJoypad installs the callback used by the core to sample buttons.
	SetJoypad(fn func() Buttons)

	// SetPalette overrides one of the four classic (DMG) shades.
	SetPalette(index int, c color.RGBA)
	Palette(index int) color.RGBA

	// ExternalRAM returns a copy of the battery-backed RAM image and
	// LoadExternalRAM restores it.
	ExternalRAM() []byte
	LoadExternalRAM(data []byte) bool

	Close()
}

// Factory constructs a core for a ROM.
type Factory func(rom []byte, variant Variant) (Core, error)
