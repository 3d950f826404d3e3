package sink

import (
	"fmt"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

// Ebiten plays through ebiten's audio context, sharing the game loop's
// device. ebiten players are always stereo.
type Ebiten struct {
	player *audio.Player
	ring   *Ring
	format sound.Format
}

// OpenEbiten returns an opener for ebiten sinks. The player's internal
// buffer is set to cfg.Latency.
func OpenEbiten(cfg Config) sound.SinkOpener {
	cfg.Defaults()
	return func(want sound.Format) (sound.Sink, error) {
		ctx := audio.CurrentContext()
		if ctx == nil {
			ctx = audio.NewContext(want.Rate)
		}
		ring := NewRing(cfg.RingBytes)
		f := sound.Format{Rate: ctx.SampleRate(), Channels: 2, Kind: sound.KindS16}
		var (
			p   *audio.Player
			err error
		)
		if want.Kind == sound.KindF32 {
			f.Kind = sound.KindF32
			p, err = ctx.NewPlayerF32(ring)
		} else {
			p, err = ctx.NewPlayer(ring)
		}
		if err != nil {
			return nil, fmt.Errorf("ebiten player: %w", err)
		}
		p.SetBufferSize(cfg.Latency)
		p.Play()
		return &Ebiten{player: p, ring: ring, format: f}, nil
	}
}

func (s *Ebiten) Format() sound.Format { return s.format }

// Queued counts the ring and the bytes the player pulled but has not
// played yet, like the oto sink.
func (s *Ebiten) Queued() int {
	return s.ring.Buffered() + playerBacklog(s.ring.Consumed(), s.player.Position(), s.format)
}

// playerBacklog is the part of consumed bytes that lies beyond the
// playback position.
func playerBacklog(consumed int64, played time.Duration, f sound.Format) int {
	playedBytes := int64(math.Round(played.Seconds()*float64(f.Rate))) * int64(f.FrameSize())
	if backlog := consumed - playedBytes; backlog > 0 {
		return int(backlog)
	}
	return 0
}

func (s *Ebiten) Queue(buf []byte) error {
	_, err := s.ring.Write(buf)
	return err
}

// SetLatency resizes the player's internal buffer.
func (s *Ebiten) SetLatency(d time.Duration) { s.player.SetBufferSize(d) }

func (s *Ebiten) Close() error {
	s.ring.Close()
	return s.player.Close()
}
