// Package bridge is the host-facing surface of the emulator: one Session
// owns a core, its scheduler, the extension channels, the audio pipeline
// and the cartridge clock.
package bridge

import (
	"encoding/binary"
	"image/color"
	"log/slog"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/rtc"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sched"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

// Stats is a snapshot of a session.
type Stats struct {
	Open      bool
	Paused    bool
	Variant   core.Variant
	Title     string
	Speed     float64
	Frames    uint64
	FPS       float64
	Duty      float64
	Audio     sound.Stats
	LastFault core.Event
}

// Session is the host bridge. Calls made while no ROM is open return false.
// A Session is single threaded: Open, Close and Update must not overlap.
type Session struct {
	cfg   Config
	log   *slog.Logger
	speed float64

	open    bool
	paused  bool
	stopped bool
	variant core.Variant
	header  *cart.Header

	core     core.Core
	sched    *sched.Scheduler
	mux      *ext.Multiplexer
	audio    *sound.Pipeline
	clock    *rtc.Clock
	source   InputSource
	input    ext.Input
	override sound.Override
	fault    core.Event
}

func New(cfg Config) *Session {
	cfg.Defaults()
	return &Session{cfg: cfg, log: cfg.Logger, speed: sched.BaseSpeed}
}

func (s *Session) now() time.Time {
	if s.cfg.Host != nil {
		return s.cfg.Host.Now()
	}
	return time.Now()
}

// Open loads rom. It fails when a session is already open or the core
// cannot be built. An extended session is downgraded to the base variant
// when the ROM does not advertise extension support.
func (s *Session) Open(rom []byte, opts Options) bool {
	if s.open {
		s.log.Warn("open: session already open")
		return false
	}
	h, err := cart.ParseHeader(rom)
	if err != nil {
		s.log.Error("open: bad ROM", "err", err)
		return false
	}
	variant := opts.Variant
	if variant == core.VariantExtended && !h.Extended() {
		s.log.Info("ROM has no extension support, using base variant", "title", h.Title)
		variant = core.VariantBase
	}
	c, err := s.cfg.Factory(rom, variant)
	if err != nil {
		s.log.Error("open: core", "err", err)
		return false
	}
	if len(opts.PersistedRAM) > 0 && !c.LoadExternalRAM(opts.PersistedRAM) {
		s.log.Warn("persisted RAM ignored: cartridge has no battery", "title", h.Title)
	}

	s.core, s.header, s.variant = c, h, variant
	s.source = opts.Input
	s.input = ext.Input{}
	s.paused, s.stopped, s.fault = false, false, 0
	c.SetJoypad(s.joypad)

	s.audio = sound.New(s.cfg.Sound, opts.Audio, s.log)
	s.sched = sched.New(s.cfg.Sched, c, sched.Hooks{Frame: s.onFrame, Audio: s.onAudio})
	s.sched.Speed(s.speed)

	s.mux = nil
	if variant == core.VariantExtended {
		var host ext.Host
		if s.cfg.Host != nil {
			host = s.cfg.Host
		}
		s.mux = ext.New(c, relay{s}, host, s.log)
		s.mux.Open(ext.Platform{OS: ext.CurrentOS(), Editor: opts.Editor, Locale: s.cfg.Locale})
	}

	s.clock = nil
	if h.HasRTC() {
		s.clock = rtc.New(c)
		s.clock.Open(s.now())
	}

	s.open = true
	s.log.Info("session open", "title", h.Title, "cart", h.CartTypeStr, "variant", variant,
		"rtc", h.HasRTC(), "audio", s.audio.HasSink())
	return true
}

// Close ends the session. When persisted is not nil it receives the
// battery-backed RAM image (nil for carts without a battery).
func (s *Session) Close(persisted *[]byte) bool {
	if !s.open {
		return false
	}
	if persisted != nil {
		*persisted = s.core.ExternalRAM()
	}
	if err := s.audio.Close(); err != nil {
		s.log.Warn("audio sink close", "err", err)
	}
	s.core.Close()
	s.core, s.sched, s.mux, s.audio, s.clock = nil, nil, nil, nil, nil
	s.open = false
	return true
}

// Update advances the session by delta of host time and presents the
// latest frame on surface. It returns false once the session should end:
// it is closed or the guest asked to stop.
func (s *Session) Update(delta time.Duration, surface Surface, allowInput bool, modifiers byte, override sound.Override) bool {
	if !s.open {
		return false
	}
	if s.stopped {
		return false
	}
	if s.paused {
		return true
	}
	s.input.Enabled = allowInput
	s.input.Modifiers = modifiers
	if s.source != nil && allowInput {
		s.source.Sample(&s.input)
	}
	s.override = override

	res := s.sched.Tick(delta)
	if s.clock != nil {
		s.clock.Advance(float64(res.Ticks) / core.TicksPerSecond)
	}
	if res.Fault() {
		s.fault = res.Events & (core.EventBreakpoint | core.EventInvalidOpcode)
		s.log.Warn("core fault", "events", res.Events, "ticks", s.core.Ticks())
	}
	if res.TimedOut {
		s.log.Debug("update timed out", "ticks", res.Ticks)
	}
	if res.NewFrame && surface != nil {
		surface.WritePixels(s.core.Framebuffer())
	}
	return !s.stopped
}

func (s *Session) joypad() core.Buttons {
	if !s.input.Enabled {
		return core.Buttons{}
	}
	return s.input.Buttons
}

func (s *Session) onFrame(core.Event) {
	if s.mux != nil {
		s.mux.Poll(&s.input)
	}
}

func (s *Session) onAudio(speed float64) {
	s.audio.Deliver(s.core.AudioBuffer(), speed, sched.BaseSpeed, s.override)
	s.core.ConsumeAudio()
}

func (s *Session) Pause() bool {
	if !s.open {
		return false
	}
	s.paused = true
	return true
}

func (s *Session) Resume() bool {
	if !s.open {
		return false
	}
	s.paused = false
	return true
}

// Speed sets the emulation speed factor. Only integer multiples and
// integer divisors of 1 are accepted; on failure the factor is unchanged.
// It may be called before Open.
func (s *Session) Speed(f float64) bool {
	if !sched.ValidSpeed(f) {
		return false
	}
	s.speed = f
	if s.sched != nil {
		s.sched.Speed(f)
	}
	return true
}

// Stroke queues one key for the guest. Keys beyond the queue capacity are
// dropped and reported as false, as is ext.KeyNone, which the guest reads
// as an empty register.
func (s *Session) Stroke(key byte) bool {
	if !s.open || key == ext.KeyNone {
		return false
	}
	return s.input.Keys.Push(key)
}

func (s *Session) ReadRAM(addr uint16) (byte, bool) {
	if !s.open {
		return 0, false
	}
	return s.core.Read(addr), true
}

// ReadRAM16 reads a little-endian word.
func (s *Session) ReadRAM16(addr uint16) (uint16, bool) {
	if !s.open {
		return 0, false
	}
	return binary.LittleEndian.Uint16([]byte{s.core.Read(addr), s.core.Read(addr + 1)}), true
}

func (s *Session) WriteRAM(addr uint16, v byte) bool {
	if !s.open {
		return false
	}
	s.core.Write(addr, v)
	return true
}

// WriteRAM16 writes a little-endian word.
func (s *Session) WriteRAM16(addr, v uint16) bool {
	if !s.open {
		return false
	}
	s.core.Write(addr, byte(v))
	s.core.Write(addr+1, byte(v>>8))
	return true
}

// ReadPersistedRAM returns the battery-backed RAM image.
func (s *Session) ReadPersistedRAM() ([]byte, bool) {
	if !s.open {
		return nil, false
	}
	return s.core.ExternalRAM(), true
}

// WritePersistedRAM restores a battery-backed RAM image.
func (s *Session) WritePersistedRAM(buf []byte) bool {
	if !s.open {
		return false
	}
	return s.core.LoadExternalRAM(buf)
}

// ClassicPalette returns one of the four DMG shades.
func (s *Session) ClassicPalette(index int) (color.RGBA, bool) {
	if !s.open || index < 0 || index > 3 {
		return color.RGBA{}, false
	}
	return s.core.Palette(index), true
}

func (s *Session) SetClassicPalette(index int, c color.RGBA) bool {
	if !s.open || index < 0 || index > 3 {
		return false
	}
	s.core.SetPalette(index, c)
	return true
}

// Variant returns the variant the session runs as, after any downgrade.
func (s *Session) Variant() core.Variant { return s.variant }

func (s *Session) Stats() Stats {
	st := Stats{Open: s.open, Paused: s.paused, Variant: s.variant, Speed: s.speed, LastFault: s.fault}
	if !s.open {
		return st
	}
	t := s.sched.Timing()
	st.Title = s.header.Title
	st.Frames, st.FPS, st.Duty = t.Frames, t.FPS, t.Duty
	st.Audio = s.audio.Stats()
	return st
}
