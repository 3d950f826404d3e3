package emu

import (
	"errors"
	"image/color"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/bus"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
)

// Guest is a program driven by the machine once per completed frame. It
// stands in for guest code: it sees memory through the machine and may
// draw, produce sound, or raise faults.
type Guest interface {
	Frame(m *Machine)
}

// GuestFunc adapts a function to Guest.
type GuestFunc func(m *Machine)

func (f GuestFunc) Frame(m *Machine) { f(m) }

// Machine is the reference core. It keeps DMG timing (frames, audio
// sample cadence, divider, RTC time base) and the memory map, and leaves
// instruction execution to the attached Guest.
type Machine struct {
	cfg     Config
	variant core.Variant
	header  *cart.Header
	bus     *bus.Bus
	closed  bool

	ticks     uint64
	nextFrame uint64
	frames    uint64

	fb      []byte // RGBA 160x144*4
	shades  []byte // shade index (0..3) per pixel
	palette [4]color.RGBA

	audio       []byte // U8 interleaved stereo
	audioFrames uint64 // frames produced since power on
	audioSource func() (l, r byte)

	joypad      func() core.Buttons
	breakpoints map[uint64]struct{}
	pending     core.Event // faults raised by the guest
}

var _ core.Core = (*Machine)(nil)

// ErrROMTooSmall is returned for images that cannot hold a cartridge header.
var ErrROMTooSmall = errors.New("emu: ROM too small to contain header")

func New(cfg Config, rom []byte, variant core.Variant) (*Machine, error) {
	cfg.Defaults()
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return nil, ErrROMTooSmall
	}
	m := &Machine{
		cfg:         cfg,
		variant:     variant,
		header:      h,
		bus:         bus.New(rom),
		nextFrame:   uint64(cfg.FrameTicks),
		fb:          make([]byte, core.ScreenWidth*core.ScreenHeight*4),
		shades:      make([]byte, core.ScreenWidth*core.ScreenHeight),
		palette:     defaultPalette(h),
		breakpoints: make(map[uint64]struct{}),
	}
	if c, ok := m.bus.Cart().(cart.Clocked); ok {
		// The RTC follows emulated time so speed changes apply to it too.
		c.SetClock(func() int64 { return int64(m.ticks / core.TicksPerSecond) })
	}
	m.render()
	return m, nil
}

// Factory returns a core.Factory building machines with cfg.
func Factory(cfg Config) core.Factory {
	return func(rom []byte, variant core.Variant) (core.Core, error) {
		return New(cfg, rom, variant)
	}
}

// Header returns the parsed cartridge header.
func (m *Machine) Header() *cart.Header { return m.header }

// Variant reports the device variant the machine was built for.
func (m *Machine) Variant() core.Variant { return m.variant }

// Frames returns the number of completed frames.
func (m *Machine) Frames() uint64 { return m.frames }

func (m *Machine) Read(addr uint16) byte { return m.bus.Read(addr) }

func (m *Machine) Write(addr uint16, value byte) { m.bus.Write(addr, value) }

func (m *Machine) Ticks() uint64 { return m.ticks }

// SetBreakpoint stops the next RunUntil that crosses tick.
func (m *Machine) SetBreakpoint(tick uint64) { m.breakpoints[tick] = struct{}{} }

// Fault reports ev (EventBreakpoint or EventInvalidOpcode) from the running RunUntil.
func (m *Machine) Fault(ev core.Event) {
	m.pending |= ev & (core.EventBreakpoint | core.EventInvalidOpcode)
}

// SetAudioSource installs the generator sampled at the audio rate. Without
// one the machine outputs the unsigned midpoint.
func (m *Machine) SetAudioSource(fn func() (l, r byte)) { m.audioSource = fn }

// SetShade sets the shade (0..3) of one LCD pixel.
func (m *Machine) SetShade(x, y int, shade byte) {
	if x < 0 || y < 0 || x >= core.ScreenWidth || y >= core.ScreenHeight {
		return
	}
	m.shades[y*core.ScreenWidth+x] = shade & 0x03
}

func (m *Machine) RunUntil(target uint64) core.Event {
	if m.closed {
		return core.EventTickReached
	}
	var ev core.Event
	for m.ticks < target {
		stop := target
		if m.nextFrame < stop {
			stop = m.nextFrame
		}
		// Stop where the audio buffer fills so buffers have a steady size.
		if need := m.cfg.AudioFrames - len(m.audio)/core.AudioChannels; need > 0 {
			at := ((m.audioFrames+uint64(need))*core.TicksPerSecond + core.AudioRate - 1) / core.AudioRate
			if at > m.ticks && at < stop {
				stop = at
			}
		}
		for bp := range m.breakpoints {
			if bp > m.ticks && bp < stop {
				stop = bp
			}
		}
		m.bus.Tick(int(stop - m.ticks))
		m.ticks = stop
		m.produceAudio()

		if _, ok := m.breakpoints[m.ticks]; ok {
			delete(m.breakpoints, m.ticks)
			m.pending |= core.EventBreakpoint
		}
		if m.ticks == m.nextFrame {
			m.endFrame()
			ev |= core.EventNewFrame
		}
		if len(m.audio) >= m.cfg.AudioFrames*core.AudioChannels {
			ev |= core.EventAudioFull
		}
		ev |= m.pending
		m.pending = 0
		if ev != 0 {
			break
		}
	}
	if m.ticks >= target {
		ev |= core.EventTickReached
	}
	return ev
}

func (m *Machine) produceAudio() {
	want := m.ticks * core.AudioRate / core.TicksPerSecond
	limit := 4 * m.cfg.AudioFrames * core.AudioChannels
	for ; m.audioFrames < want; m.audioFrames++ {
		l, r := byte(0x80), byte(0x80)
		if m.audioSource != nil {
			l, r = m.audioSource()
		}
		// Nobody is draining: keep only the most recent half.
		if len(m.audio) >= limit {
			m.audio = m.audio[:copy(m.audio, m.audio[limit/2:])]
		}
		m.audio = append(m.audio, l, r)
	}
}

func (m *Machine) endFrame() {
	m.frames++
	m.nextFrame += uint64(m.cfg.FrameTicks)
	if m.joypad != nil {
		m.bus.SetJoypadState(joypadBits(m.joypad()))
	}
	m.bus.RequestInterrupt(bus.IntVBlank)
	if m.cfg.Guest != nil {
		m.cfg.Guest.Frame(m)
	}
	m.render()
}

func (m *Machine) render() {
	for i, s := range m.shades {
		c := m.palette[s&0x03]
		m.fb[i*4+0] = c.R
		m.fb[i*4+1] = c.G
		m.fb[i*4+2] = c.B
		m.fb[i*4+3] = 0xFF
	}
}

func joypadBits(b core.Buttons) byte {
	var v byte
	set := func(on bool, bit byte) {
		if on {
			v |= bit
		}
	}
	set(b.Right, bus.JoypRight)
	set(b.Left, bus.JoypLeft)
	set(b.Up, bus.JoypUp)
	set(b.Down, bus.JoypDown)
	set(b.A, bus.JoypA)
	set(b.B, bus.JoypB)
	set(b.Select, bus.JoypSelect)
	set(b.Start, bus.JoypStart)
	return v
}

func (m *Machine) Framebuffer() []byte { return m.fb }

func (m *Machine) AudioBuffer() []byte { return m.audio }

func (m *Machine) ConsumeAudio() { m.audio = m.audio[:0] }

func (m *Machine) SetJoypad(fn func() core.Buttons) { m.joypad = fn }

func (m *Machine) SetPalette(index int, c color.RGBA) {
	if index < 0 || index >= len(m.palette) {
		return
	}
	c.A = 0xFF
	m.palette[index] = c
	m.render()
}

func (m *Machine) Palette(index int) color.RGBA {
	if index < 0 || index >= len(m.palette) {
		return color.RGBA{}
	}
	return m.palette[index]
}

// ExternalRAM returns the battery-backed image (RAM plus RTC footer), or nil.
func (m *Machine) ExternalRAM() []byte {
	if bb, ok := m.bus.Cart().(cart.BatteryBacked); ok {
		return bb.SaveRAM()
	}
	return nil
}

func (m *Machine) LoadExternalRAM(data []byte) bool {
	if bb, ok := m.bus.Cart().(cart.BatteryBacked); ok {
		bb.LoadRAM(data)
		return true
	}
	return false
}

// SetSerialWriter connects an io.Writer to receive bytes written to the serial port (FF01/FF02).
func (m *Machine) SetSerialWriter(w interface{ Write([]byte) (int, error) }) {
	m.bus.SetSerialWriter(w)
}

func (m *Machine) Close() { m.closed = true }
