package bridge

import (
	"log/slog"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sched"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

// Host is the set of OS services a session reaches: the shell-channel
// services and the wall clock.
type Host interface {
	ext.Host
	Now() time.Time
}

// InputSource fills the host input state before each update. Keys are
// queued separately through Session.Stroke.
type InputSource interface {
	Sample(in *ext.Input)
}

// InputFunc adapts a function to InputSource.
type InputFunc func(in *ext.Input)

func (f InputFunc) Sample(in *ext.Input) { f(in) }

// Surface receives each completed frame as RGBA pixels.
type Surface interface {
	WritePixels(pix []byte)
}

// Config holds the collaborators shared by every session opened on a
// Session value.
type Config struct {
	Factory  core.Factory
	Listener ext.DebugListener
	Host     Host
	Locale   byte // locale register value, see host.LocaleID

	Sched  sched.Config
	Sound  sound.Config
	Logger *slog.Logger
}

// Defaults fills missing collaborators. Without a factory the reference
// core is used; without a host the shell channel only logs.
func (c *Config) Defaults() {
	if c.Factory == nil {
		c.Factory = emu.Factory(emu.Config{})
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Sched.Defaults()
	c.Sound.Defaults()
}

// Options are the per-open settings.
type Options struct {
	Variant      core.Variant
	Editor       bool // host is an editor rather than a player
	Audio        sound.SinkOpener
	Input        InputSource
	PersistedRAM []byte
}
