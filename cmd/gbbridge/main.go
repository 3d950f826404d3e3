package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sqweek/dialog"
	"github.com/user-none/eblitui/romloader"
	"golang.org/x/term"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/bridge"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/host"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/record"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sink"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ui"
)

type CLIFlags struct {
	ROMPath  string
	Scale    int
	Title    string
	SaveRAM  bool // persist battery RAM next to ROM (.sav)
	Editor   bool
	Extended bool
	Speed    float64
	Mute     bool
	Timeout  time.Duration

	// headless
	Headless bool
	Frames   int
	Record   string
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb, .gbc or an archive holding one)")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbbridge", "window title")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")
	flag.BoolVar(&f.Editor, "editor", false, "report the host as an editor to extended ROMs")
	flag.BoolVar(&f.Extended, "extended", true, "enable the extension channels when the ROM supports them")
	flag.Float64Var(&f.Speed, "speed", 1, "emulation speed factor (integer, or 1/integer)")
	flag.BoolVar(&f.Mute, "mute", false, "do not open an audio device")
	flag.DurationVar(&f.Timeout, "timeout", 0, "wall-time budget per update (0 = scheduler default)")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.Record, "record", "", "write delivered audio to a WAV file")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

// romLoader reads ROMs through romloader so zipped and 7z images work,
// and keeps battery saves next to the ROM.
type romLoader struct {
	save bool
}

var romExtensions = []string{".gb", ".gbc"}

func (l romLoader) Load(path string) ([]byte, error) {
	rom, name, err := romloader.Load(path, romExtensions)
	if err != nil {
		return nil, err
	}
	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("ROM: %s %q type=%s banks=%d ram=%dB", name, h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}
	return rom, nil
}

func savPath(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
}

func (l romLoader) ReadSave(romPath string) []byte {
	if !l.save {
		return nil
	}
	data, err := os.ReadFile(savPath(romPath))
	if err != nil {
		return nil
	}
	log.Printf("loaded save RAM: %s (%d bytes)", savPath(romPath), len(data))
	return data
}

func (l romLoader) WriteSave(romPath string, data []byte) error {
	if !l.save {
		return nil
	}
	if err := os.WriteFile(savPath(romPath), data, 0644); err != nil {
		return err
	}
	log.Printf("wrote %s", savPath(romPath))
	return nil
}

func chooseROM() (string, error) {
	return dialog.File().Title("Open ROM").Filter("Game Boy ROM", "gb", "gbc", "zip", "7z").Load()
}

// console is the headless listener: streamed bytes go to stdout, the rest to the log.
type console struct {
	paused bool
}

func (c *console) Streamed(data []byte) { os.Stdout.Write(data) }
func (c *console) Sync(name string)     { log.Printf("guest sync %q", name) }
func (c *console) Debug(text string)    { log.Printf("guest: %s", text) }
func (c *console) Cursor(ext.Cursor)    {}
func (c *console) Paused()              { c.paused = true }
func (c *console) Stopped()             { log.Printf("guest stopped") }

// lastFrame keeps the most recent frame for the checksum.
type lastFrame []byte

func (f *lastFrame) WritePixels(pix []byte) { *f = append((*f)[:0], pix...) }

// keyboard puts the terminal in raw mode and forwards key bytes. Ctrl-C
// closes interrupt instead of reaching the guest.
type keyboard struct {
	fd        int
	old       *term.State
	keys      chan byte
	interrupt chan struct{}
}

func startKeyboard() *keyboard {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		log.Printf("keyboard: raw mode: %v", err)
		return nil
	}
	k := &keyboard{fd: fd, old: old, keys: make(chan byte, 64), interrupt: make(chan struct{})}
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			b := buf[0]
			if b == 0x03 {
				close(k.interrupt)
				return
			}
			select {
			case k.keys <- b:
			default:
			}
		}
	}()
	return k
}

func (k *keyboard) restore() {
	if k != nil && k.old != nil {
		_ = term.Restore(k.fd, k.old)
	}
}

func runHeadless(f CLIFlags, loader romLoader) error {
	rom, err := loader.Load(f.ROMPath)
	if err != nil {
		return err
	}
	listener := &console{}
	cfg := bridge.Config{
		Listener: listener,
		Host:     host.New(slog.Default()),
		Locale:   host.DetectLocale(),
	}
	if f.Timeout > 0 {
		cfg.Sched.Timeout = f.Timeout
	}
	s := bridge.New(cfg)
	if !s.Speed(f.Speed) {
		return fmt.Errorf("invalid speed %g", f.Speed)
	}

	var audioOut sound.SinkOpener
	if !f.Mute {
		audioOut = sink.OpenOto(sink.Config{})
	}
	variant := core.VariantBase
	if f.Extended {
		variant = core.VariantExtended
	}
	if !s.Open(rom, bridge.Options{
		Variant:      variant,
		Editor:       f.Editor,
		Audio:        audioOut,
		PersistedRAM: loader.ReadSave(f.ROMPath),
	}) {
		return fmt.Errorf("open %s: rejected", f.ROMPath)
	}
	defer func() {
		var ram []byte
		if s.Close(&ram) && len(ram) > 0 {
			if err := loader.WriteSave(f.ROMPath, ram); err != nil {
				log.Printf("write save: %v", err)
			}
		}
	}()

	var override sound.Override
	var rec *record.Recorder
	if f.Record != "" {
		rec, err = record.Create(f.Record, f.Mute)
		if err != nil {
			return err
		}
		override = rec
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("record: %v", err)
			} else {
				log.Printf("wrote %s (%d frames)", f.Record, rec.Frames())
			}
		}()
	}

	kb := startKeyboard()
	defer kb.restore()

	frames := uint64(f.Frames)
	if frames == 0 {
		frames = 1
	}
	var fb lastFrame
	start := time.Now()
run:
	for s.Stats().Frames < frames {
		if kb != nil {
			select {
			case <-kb.interrupt:
				break run
			case key := <-kb.keys:
				s.Stroke(key)
			default:
			}
		}
		if !s.Update(time.Second/60, &fb, kb != nil, 0, override) {
			break
		}
		// Nobody can resume a headless run.
		if listener.paused {
			log.Printf("guest paused, ending run")
			break
		}
	}
	dur := time.Since(start)

	st := s.Stats()
	crc := crc32.ChecksumIEEE(fb)
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x audio=%d/%d dropped",
		st.Frames, dur.Truncate(time.Millisecond), st.FPS, crc, st.Audio.Dropped, st.Audio.Delivered+st.Audio.Dropped)
	if st.LastFault != 0 {
		log.Printf("last fault: %05b", st.LastFault)
	}

	if f.PNGOut != "" && len(fb) > 0 {
		if err := saveFramePNG(fb, core.ScreenWidth, core.ScreenHeight, f.PNGOut); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}

	if f.Expect != "" {
		// normalize expected hex (allow with/without 0x, upper/lowercase)
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	f := parseFlags()
	loader := romLoader{save: f.SaveRAM}

	if f.ROMPath == "" && !f.Headless {
		path, err := chooseROM()
		if err != nil && err != dialog.ErrCancelled {
			log.Fatalf("choose ROM: %v", err)
		}
		f.ROMPath = path
	}
	if f.ROMPath != "" {
		// prefer absolute path for save placement consistency
		if abs, err := filepath.Abs(f.ROMPath); err == nil {
			f.ROMPath = abs
		}
	}

	if f.Headless {
		if f.ROMPath == "" {
			log.Fatal("headless mode needs -rom")
		}
		if err := runHeadless(f, loader); err != nil {
			log.Fatal(err)
		}
		return
	}

	uiCfg := ui.Config{
		Title:    f.Title,
		Scale:    f.Scale,
		Editor:   f.Editor,
		Mute:     f.Mute,
		Extended: f.Extended,
	}
	bcfg := bridge.Config{
		Host:   host.New(slog.Default()),
		Locale: host.DetectLocale(),
	}
	if f.Timeout > 0 {
		bcfg.Sched.Timeout = f.Timeout
	}
	app := ui.NewApp(uiCfg, bcfg, loader)
	if f.ROMPath != "" {
		if err := app.Open(f.ROMPath); err != nil {
			log.Fatal(err)
		}
	}
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
