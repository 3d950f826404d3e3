package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

// Config sizes a sink's buffering.
type Config struct {
	RingBytes  int           // capacity of the ring between pipeline and device
	PlayerSize int           // bytes the device player buffers internally
	Latency    time.Duration // device buffer requested from the backend
}

func (c *Config) Defaults() {
	if c.RingBytes <= 0 {
		c.RingBytes = 32768
	}
	if c.PlayerSize <= 0 {
		c.PlayerSize = 8192
	}
	if c.Latency <= 0 {
		c.Latency = 50 * time.Millisecond
	}
}

// The oto context is process wide; the first opener fixes its format.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat sound.Format
	otoErr    error
)

func otoContext(want sound.Format, latency time.Duration) (*oto.Context, sound.Format, error) {
	otoOnce.Do(func() {
		f := want
		if f.Kind != sound.KindF32 {
			f.Kind = sound.KindS16
		}
		op := &oto.NewContextOptions{
			SampleRate:   f.Rate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   latency,
		}
		if f.Kind == sound.KindF32 {
			op.Format = oto.FormatFloat32LE
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr != nil {
			otoErr = fmt.Errorf("oto context: %w", otoErr)
			return
		}
		<-ready
		otoFormat = f
	})
	return otoCtx, otoFormat, otoErr
}

// Oto plays through an oto/v3 player. It needs no window and backs the
// headless runner.
type Oto struct {
	player *oto.Player
	ring   *Ring
	format sound.Format
}

// OpenOto returns an opener for oto sinks.
func OpenOto(cfg Config) sound.SinkOpener {
	cfg.Defaults()
	return func(want sound.Format) (sound.Sink, error) {
		ctx, f, err := otoContext(want, cfg.Latency)
		if err != nil {
			return nil, err
		}
		ring := NewRing(cfg.RingBytes)
		p := ctx.NewPlayer(ring)
		p.SetBufferSize(cfg.PlayerSize)
		p.Play()
		return &Oto{player: p, ring: ring, format: f}, nil
	}
}

func (s *Oto) Format() sound.Format { return s.format }

// Queued counts the ring and the player's own buffer.
func (s *Oto) Queued() int { return s.ring.Buffered() + s.player.BufferedSize() }

func (s *Oto) Queue(buf []byte) error {
	_, err := s.ring.Write(buf)
	return err
}

func (s *Oto) Close() error {
	s.ring.Close()
	return s.player.Close()
}
