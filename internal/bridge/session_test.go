package bridge

import (
	"image/color"
	"testing"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

const frame = 50 * time.Millisecond

func testROM(cartType, ramCode byte, extended bool) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x0134:], "BRIDGE")
	if extended {
		copy(rom[0x013F:], cart.ExtensionSignature)
	}
	rom[0x0147] = cartType
	rom[0x0149] = ramCode
	return rom
}

type listener struct {
	streams [][]byte
	cursors []ext.Cursor
	stops   int
}

func (l *listener) Streamed(b []byte)    { l.streams = append(l.streams, append([]byte(nil), b...)) }
func (l *listener) Sync(string)          {}
func (l *listener) Debug(string)         {}
func (l *listener) Cursor(c ext.Cursor)  { l.cursors = append(l.cursors, c) }
func (l *listener) Paused()              {}
func (l *listener) Stopped()             { l.stops++ }

type host struct {
	now  time.Time
	urls []string
}

func (h *host) OpenURL(u string) error   { h.urls = append(h.urls, u); return nil }
func (h *host) RevealPath(string) error  { return nil }
func (h *host) Execute(string) error     { return nil }
func (h *host) Now() time.Time           { return h.now }

type sink struct {
	queued int
	bufs   int
}

func (s *sink) Format() sound.Format {
	return sound.Format{Rate: core.AudioRate, Channels: 2, Kind: sound.KindS16}
}
func (s *sink) Queued() int          { return s.queued }
func (s *sink) Queue([]byte) error   { s.bufs++; return nil }
func (s *sink) Close() error         { return nil }

type surface struct{ frames int }

func (s *surface) WritePixels([]byte) { s.frames++ }

// harness opens sessions on the reference core with guest driving it.
type harness struct {
	machine *emu.Machine
	list    *listener
	host    *host
	session *Session
}

func newHarness(guest emu.GuestFunc) *harness {
	h := &harness{
		list: &listener{},
		host: &host{now: time.Date(2024, 3, 3, 12, 34, 56, 0, time.UTC)},
	}
	h.session = New(Config{
		Factory: func(rom []byte, v core.Variant) (core.Core, error) {
			var g emu.Guest
			if guest != nil {
				g = guest
			}
			m, err := emu.New(emu.Config{Guest: g}, rom, v)
			h.machine = m
			return m, err
		},
		Listener: h.list,
		Host:     h.host,
		Locale:   3,
	})
	return h
}

func (h *harness) run(n int) {
	for i := 0; i < n; i++ {
		h.session.Update(frame, nil, true, 0, nil)
	}
}

func TestSession_LifecycleAndStateErrors(t *testing.T) {
	h := newHarness(nil)
	s := h.session
	if s.Update(frame, nil, true, 0, nil) || s.Pause() || s.Stroke(1) || s.WriteRAM(0xC000, 1) {
		t.Fatalf("calls before Open succeeded")
	}
	if _, ok := s.ReadRAM(0xC000); ok {
		t.Fatalf("ReadRAM before Open succeeded")
	}
	if !s.Open(testROM(0x13, 0x02, false), Options{}) {
		t.Fatalf("Open failed")
	}
	if s.Open(testROM(0x00, 0x00, false), Options{}) {
		t.Fatalf("second Open succeeded")
	}

	s.WriteRAM(0x0000, 0x0A)
	s.WriteRAM(0xA000, 0x77)
	var saved []byte
	if !s.Close(&saved) {
		t.Fatalf("Close failed")
	}
	if len(saved) == 0 || saved[0] != 0x77 {
		t.Fatalf("persisted RAM not returned (%d bytes)", len(saved))
	}
	if s.Close(nil) {
		t.Fatalf("second Close succeeded")
	}

	if !s.Open(testROM(0x13, 0x02, false), Options{PersistedRAM: saved}) {
		t.Fatalf("reopen failed")
	}
	s.WriteRAM(0x0000, 0x0A)
	if v, _ := s.ReadRAM(0xA000); v != 0x77 {
		t.Fatalf("restored RAM got %02X want 77", v)
	}
}

func TestSession_DowngradesWithoutSignature(t *testing.T) {
	h := newHarness(nil)
	h.session.Open(testROM(0x00, 0x00, false), Options{Variant: core.VariantExtended, Editor: true})
	if h.session.Variant() != core.VariantBase {
		t.Fatalf("variant got %s want base", h.session.Variant())
	}
	h.run(3)
	for a := ext.RegPlatform; a <= ext.RegShellStatus; a++ {
		if v, _ := h.session.ReadRAM(a); v != 0 {
			t.Fatalf("register %04X touched in base mode: %02X", a, v)
		}
	}
}

func TestSession_PlatformWrittenAtOpen(t *testing.T) {
	h := newHarness(nil)
	h.session.Open(testROM(0x00, 0x00, true), Options{Variant: core.VariantExtended, Editor: true})
	if h.session.Variant() != core.VariantExtended {
		t.Fatalf("extended ROM downgraded")
	}
	p, _ := h.session.ReadRAM(ext.RegPlatform)
	if p&0x80 == 0 || p&0x0F != byte(ext.CurrentOS()) {
		t.Fatalf("platform register got %02X", p)
	}
	if l, _ := h.session.ReadRAM(ext.RegLocale); l != 3 {
		t.Fatalf("locale register got %d want 3", l)
	}
}

func TestSession_StreamAndShellThroughGuest(t *testing.T) {
	msg := []byte("HI")
	sent := 0
	shell := false
	guest := emu.GuestFunc(func(m *emu.Machine) {
		if !shell {
			cmd := "http://example.com"
			for i := 0; i < len(cmd); i++ {
				m.Write(ext.RegShellBuffer+uint16(i), cmd[i])
			}
			m.Write(ext.RegShellStatus, 0x02)
			shell = true
		}
		if ext.Status(m.Read(ext.RegStreamStatus)) != ext.StatusReady {
			return
		}
		switch {
		case sent < len(msg):
			m.Write(ext.RegStreamData, msg[sent])
			m.Write(ext.RegStreamStatus, 0x02)
			sent++
		case sent == len(msg):
			m.Write(ext.RegStreamStatus, 0x03)
			sent++
		}
	})
	h := newHarness(guest)
	h.session.Open(testROM(0x00, 0x00, true), Options{Variant: core.VariantExtended})
	h.run(5)

	if len(h.list.streams) != 1 || string(h.list.streams[0]) != "HI" {
		t.Fatalf("streams got %q", h.list.streams)
	}
	if len(h.host.urls) != 1 || h.host.urls[0] != "http://example.com" {
		t.Fatalf("urls got %q", h.host.urls)
	}
}

func TestSession_StrokeRendezvous(t *testing.T) {
	var got []byte
	guest := emu.GuestFunc(func(m *emu.Machine) {
		if k := m.Read(ext.RegKey); k != ext.KeyNone {
			got = append(got, k)
			m.Write(ext.RegKey, ext.KeyNone)
		}
	})
	h := newHarness(guest)
	h.session.Open(testROM(0x00, 0x00, true), Options{Variant: core.VariantExtended})
	if h.session.Stroke(ext.KeyNone) {
		t.Fatalf("Stroke(KeyNone) accepted")
	}
	h.session.Stroke(65)
	h.session.Stroke(66)
	h.run(4)
	if string(got) != "AB" {
		t.Fatalf("keys got %v want [65 66]", got)
	}
}

func TestSession_InputSourceAndModifiers(t *testing.T) {
	h := newHarness(nil)
	src := InputFunc(func(in *ext.Input) {
		in.Buttons = core.Buttons{A: true}
		in.HasPointer = true
		in.Pointer = ext.Pointer{X: 10, Y: 20, Buttons: 1}
	})
	h.session.Open(testROM(0x00, 0x00, true), Options{Variant: core.VariantExtended, Input: src})
	h.session.Update(frame, nil, true, 0x09, nil)
	if v, _ := h.session.ReadRAM(ext.RegJoypad); v != ext.PadA {
		t.Fatalf("joypad got %02X", v)
	}
	if x, _ := h.session.ReadRAM(ext.RegTouchX); x != 10 {
		t.Fatalf("touch x got %d", x)
	}
	if m, _ := h.session.ReadRAM(ext.RegModifiers); m != 0x09 {
		t.Fatalf("modifiers got %02X", m)
	}
	h.session.Update(frame, nil, false, 0x09, nil)
	if m, _ := h.session.ReadRAM(ext.RegModifiers); m != 0 {
		t.Fatalf("modifiers with input disabled got %02X", m)
	}
}

func TestSession_SpeedScalesTicks(t *testing.T) {
	h := newHarness(nil)
	s := h.session
	if s.Speed(1.5) {
		t.Fatalf("Speed(1.5) accepted")
	}
	if !s.Speed(2) {
		t.Fatalf("Speed(2) rejected before open")
	}
	s.Open(testROM(0x00, 0x00, false), Options{})
	s.Update(10*time.Millisecond, nil, false, 0, nil)
	if got := h.machine.Ticks(); got != 83886 {
		t.Fatalf("2x ticks got %d want 83886", got)
	}
	if s.Speed(3.5) || s.Stats().Speed != 2 {
		t.Fatalf("rejected speed changed the factor")
	}
}

func TestSession_BackpressureDropsWithoutError(t *testing.T) {
	h := newHarness(nil)
	sk := &sink{queued: 1 << 30}
	h.session.Open(testROM(0x00, 0x00, false), Options{
		Audio: func(sound.Format) (sound.Sink, error) { return sk, nil },
	})
	if !h.session.Update(frame, nil, false, 0, nil) {
		t.Fatalf("Update reported stop")
	}
	st := h.session.Stats().Audio
	if sk.bufs != 0 || st.Delivered != 0 || st.Dropped == 0 {
		t.Fatalf("backpressure: queued=%d stats=%+v", sk.bufs, st)
	}

	sk.queued = 0
	h.run(1)
	if sk.bufs == 0 {
		t.Fatalf("no buffer delivered once the sink drained")
	}
}

func TestSession_OverrideAndMissingSink(t *testing.T) {
	h := newHarness(nil)
	h.session.Open(testROM(0x00, 0x00, false), Options{})
	n := 0
	ov := sound.OverrideFunc(func([]byte, sound.Format) bool { n++; return true })
	h.session.Update(frame, nil, false, 0, ov)
	if n == 0 || h.session.Stats().Audio.Intercepted != uint64(n) {
		t.Fatalf("override calls=%d stats=%+v", n, h.session.Stats().Audio)
	}
	h.session.Update(frame, nil, false, 0, nil)
	if h.session.Stats().Audio.Discarded == 0 {
		t.Fatalf("audio without sink was not discarded")
	}
}

func TestSession_RTCSeededFromHostClock(t *testing.T) {
	h := newHarness(nil)
	s := h.session
	s.Open(testROM(0x10, 0x02, false), Options{})
	h.run(12) // more than one auto latch

	read := func(sel byte) byte {
		s.WriteRAM(0x4000, sel)
		v, _ := s.ReadRAM(0xA000)
		return v
	}
	if hr := read(0x0A); hr != 12 {
		t.Fatalf("hours got %d want 12", hr)
	}
	if mi := read(0x09); mi != 34 {
		t.Fatalf("minutes got %d want 34", mi)
	}
	day := int(read(0x0B)) | int(read(0x0C)&0x01)<<8
	if day != 63 {
		t.Fatalf("day got %d want 63", day)
	}
	if read(0x0C)&0x40 != 0 {
		t.Fatalf("clock halted after open")
	}
}

func TestSession_PauseResumeAndPresent(t *testing.T) {
	h := newHarness(nil)
	s := h.session
	s.Open(testROM(0x00, 0x00, false), Options{})
	surf := &surface{}
	s.Update(frame, surf, false, 0, nil)
	if surf.frames == 0 {
		t.Fatalf("no frame presented")
	}
	s.Pause()
	before := h.machine.Ticks()
	if !s.Update(frame, surf, false, 0, nil) || h.machine.Ticks() != before {
		t.Fatalf("paused session advanced")
	}
	s.Resume()
	s.Update(frame, surf, false, 0, nil)
	if h.machine.Ticks() == before {
		t.Fatalf("resumed session did not advance")
	}
}

func TestSession_StopCommandEndsUpdates(t *testing.T) {
	guest := emu.GuestFunc(func(m *emu.Machine) {
		m.Write(ext.RegShellBuffer, '[')
		m.Write(ext.RegShellBuffer+1, ']')
		m.Write(ext.RegShellStatus, 0x02)
	})
	h := newHarness(guest)
	h.session.Open(testROM(0x00, 0x00, true), Options{Variant: core.VariantExtended})
	if h.session.Update(frame, nil, false, 0, nil) {
		t.Fatalf("Update continued after stop")
	}
	if h.list.stops == 0 {
		t.Fatalf("listener not told about stop")
	}
}

func TestSession_FaultIsReportedNotFatal(t *testing.T) {
	guest := emu.GuestFunc(func(m *emu.Machine) { m.Fault(core.EventInvalidOpcode) })
	h := newHarness(guest)
	h.session.Open(testROM(0x00, 0x00, false), Options{})
	if !h.session.Update(frame, nil, false, 0, nil) {
		t.Fatalf("fault ended the session")
	}
	if !h.session.Stats().LastFault.Has(core.EventInvalidOpcode) {
		t.Fatalf("fault not recorded: %05b", h.session.Stats().LastFault)
	}
}

func TestSession_RAMWordsAndPalette(t *testing.T) {
	h := newHarness(nil)
	s := h.session
	s.Open(testROM(0x00, 0x00, false), Options{})
	s.WriteRAM16(0xC100, 0xBEEF)
	if lo, _ := s.ReadRAM(0xC100); lo != 0xEF {
		t.Fatalf("low byte got %02X want EF", lo)
	}
	if w, _ := s.ReadRAM16(0xC100); w != 0xBEEF {
		t.Fatalf("word got %04X want BEEF", w)
	}

	c := color.RGBA{R: 1, G: 2, B: 3}
	if !s.SetClassicPalette(2, c) {
		t.Fatalf("SetClassicPalette failed")
	}
	if got, ok := s.ClassicPalette(2); !ok || got != (color.RGBA{R: 1, G: 2, B: 3, A: 0xFF}) {
		t.Fatalf("palette got %v", got)
	}
	if _, ok := s.ClassicPalette(4); ok {
		t.Fatalf("palette index 4 accepted")
	}
}
