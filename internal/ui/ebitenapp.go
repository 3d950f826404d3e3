package ui

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/bridge"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sink"
)

// Loader reads ROM images and their battery saves.
type Loader interface {
	Load(path string) ([]byte, error)
	ReadSave(romPath string) []byte
	WriteSave(romPath string, data []byte) error
}

// frameSurface keeps the last frame for drawing and screenshots.
type frameSurface struct {
	tex  *ebiten.Image
	last []byte
}

func (f *frameSurface) WritePixels(pix []byte) {
	if f.tex == nil {
		f.tex = ebiten.NewImage(core.ScreenWidth, core.ScreenHeight)
	}
	f.tex.WritePixels(pix)
	f.last = append(f.last[:0], pix...)
}

type App struct {
	cfg     Config
	loader  Loader
	log     *slog.Logger
	session *bridge.Session
	romPath string
	player  *sink.Ebiten
	screen  frameSurface
	last    time.Time

	paused    bool
	fast      bool
	stop      bool
	showStats bool
	palette   int

	// overlay/menu
	showMenu bool
	menuMode string // "main", "rom", "keys"
	menuIdx  int
	romList  []string
	romSel   int
	romOff   int
	keysOff  int
	curW     int
	curH     int

	toastMsg   string
	toastUntil time.Time
}

// NewApp builds the window around a bridge session. bcfg's listener is
// replaced by the app so guest notifications reach the window.
func NewApp(cfg Config, bcfg bridge.Config, loader Loader) *App {
	cfg.Defaults()
	a := &App{cfg: cfg, loader: loader, log: bcfg.Logger, menuMode: "main"}
	if a.log == nil {
		a.log = slog.Default()
	}
	bcfg.Listener = a
	a.session = bridge.New(bcfg)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(core.ScreenWidth*cfg.Scale, core.ScreenHeight*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return a
}

// Open loads the ROM at path, closing (and saving) any current session.
func (a *App) Open(path string) error {
	rom, err := a.loader.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	a.closeSession()
	variant := core.VariantBase
	if a.cfg.Extended {
		variant = core.VariantExtended
	}
	ok := a.session.Open(rom, bridge.Options{
		Variant:      variant,
		Editor:       a.cfg.Editor,
		Audio:        a.audioOpener(),
		Input:        ebitenInput{},
		PersistedRAM: a.loader.ReadSave(path),
	})
	if !ok {
		return errors.New("session refused ROM")
	}
	a.romPath = path
	a.stop = false
	title := a.cfg.Title
	if t := a.session.Stats().Title; t != "" {
		title = a.cfg.Title + " - [" + t + "]"
	}
	ebiten.SetWindowTitle(title)
	return nil
}

func (a *App) closeSession() {
	var ram []byte
	if !a.session.Close(&ram) {
		return
	}
	a.player = nil
	if len(ram) == 0 || a.romPath == "" {
		return
	}
	if err := a.loader.WriteSave(a.romPath, ram); err != nil {
		a.log.Warn("write save", "rom", a.romPath, "err", err)
	}
}

// Run blocks until the window closes, then saves and closes the session.
func (a *App) Run() error {
	a.last = time.Now()
	err := ebiten.RunGame(a)
	a.closeSession()
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (a *App) Update() error {
	now := time.Now()
	delta := now.Sub(a.last)
	a.last = now

	if a.stop || ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}

	// Toggle menu (Escape)
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.showMenu = !a.showMenu
		a.menuMode, a.menuIdx = "main", 0
	}
	if a.showMenu {
		a.updateMenu()
		return nil
	}

	// Pause toggle (F1); letter keys belong to the guest
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		a.paused = !a.paused
		if a.paused {
			a.session.Pause()
		} else {
			a.session.Resume()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		a.showStats = !a.showStats
	}
	// Screenshot (F12)
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		}
	}

	// Fast-forward (Tab): while held, run at FastSpeed
	if fast := ebiten.IsKeyPressed(ebiten.KeyTab); fast != a.fast {
		a.fast = fast
		speed := 1.0
		if fast {
			speed = a.cfg.FastSpeed
		}
		if !a.session.Speed(speed) {
			a.toast(fmt.Sprintf("Invalid speed %g", speed))
		}
		a.applyPlayerBufferSize()
	}

	a.injectKeys()
	if !a.session.Update(delta, &a.screen, true, modifiers(), nil) && a.session.Stats().Open {
		a.stop = true
	}
	return nil
}

// injectKeys forwards typed characters and editing keys to the guest.
func (a *App) injectKeys() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if b, ok := strokeFor(r); ok {
			a.session.Stroke(b)
		}
	}
	for k, code := range editKeys {
		if inpututil.IsKeyJustPressed(k) {
			a.session.Stroke(code)
		}
	}
}

var editKeys = map[ebiten.Key]byte{
	ebiten.KeyBackspace: 0x08,
	ebiten.KeyEnter:     0x0D,
	ebiten.KeyDelete:    0x7F,
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.screen.tex != nil {
		screen.DrawImage(a.screen.tex, nil)
	}
	if a.showMenu {
		a.drawMenu(screen)
		return
	}
	if a.showStats {
		st := a.session.Stats()
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%.1ffps %.0f%% x%g", st.FPS, st.Duty, st.Speed), 2, 2)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("snd %d/%d", st.Audio.Delivered, st.Audio.Dropped), 2, 16)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.truncateText(a.toastMsg, a.maxCharsForText(2)), 2, core.ScreenHeight-16)
	}
}

func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = core.ScreenWidth, core.ScreenHeight
	return core.ScreenWidth, core.ScreenHeight
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) saveScreenshot() error {
	fb := a.screen.last
	if len(fb) == 0 {
		return errors.New("no frame yet")
	}
	img := &image.RGBA{
		Pix:    make([]byte, len(fb)),
		Stride: 4 * core.ScreenWidth,
		Rect:   image.Rect(0, 0, core.ScreenWidth, core.ScreenHeight),
	}
	copy(img.Pix, fb)
	ts := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("screenshot_%s.png", ts)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	a.toast("Saved " + filepath.Base(name))
	return nil
}

// DebugListener implementation.

func (a *App) Streamed(data []byte) {
	a.log.Info("guest stream", "bytes", len(data), "text", string(data))
}

func (a *App) Sync(name string) { a.log.Info("guest sync", "name", name) }

func (a *App) Debug(text string) { a.toast(text) }

func (a *App) Cursor(mode ext.Cursor) {
	switch mode {
	case ext.CursorNone:
		ebiten.SetCursorMode(ebiten.CursorModeHidden)
		return
	case ext.CursorHand:
		ebiten.SetCursorShape(ebiten.CursorShapePointer)
	case ext.CursorBusy:
		// ebiten has no wait cursor.
		ebiten.SetCursorShape(ebiten.CursorShapeNotAllowed)
	default:
		ebiten.SetCursorShape(ebiten.CursorShapeDefault)
	}
	ebiten.SetCursorMode(ebiten.CursorModeVisible)
}

func (a *App) Paused() {
	a.paused = true
	a.toast("Paused by guest (F1 resumes)")
}

func (a *App) Stopped() { a.stop = true }
