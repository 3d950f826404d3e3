package ui

import (
	"time"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sink"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

// audioOpener opens an ebiten sink and remembers it so the buffer size can
// follow the low-latency and fast-forward settings.
func (a *App) audioOpener() sound.SinkOpener {
	if a.cfg.Mute {
		return nil
	}
	open := sink.OpenEbiten(sink.Config{Latency: a.playerBuffer()})
	return func(want sound.Format) (sound.Sink, error) {
		s, err := open(want)
		if err != nil {
			return nil, err
		}
		a.player, _ = s.(*sink.Ebiten)
		return s, nil
	}
}

// playerBuffer picks the device buffer:
// - ~20ms in low-latency (or during fast-forward)
// - AudioBufferMs otherwise
func (a *App) playerBuffer() time.Duration {
	bufMs := a.cfg.AudioBufferMs
	if a.cfg.AudioLowLatency || a.fast {
		bufMs = 20
	}
	return time.Duration(bufMs) * time.Millisecond
}

// applyPlayerBufferSize resizes the live player after a settings change.
func (a *App) applyPlayerBufferSize() {
	if a.player == nil {
		return
	}
	a.player.SetLatency(a.playerBuffer())
}
