// Package sound turns the core's 8-bit audio buffers into host PCM at the
// current emulation speed and hands them to the host sink.
package sound

import (
	"encoding/binary"
	"log/slog"
)

// Config tunes the delivery pipeline.
type Config struct {
	// Backpressure is the multiple of one buffer's size the sink may hold
	// queued before fresh buffers are dropped.
	Backpressure int
	// Rate and Channels are requested from the sink opener; zero keeps
	// the core's values.
	Rate     int
	Channels int
}

func (c *Config) Defaults() {
	if c.Backpressure <= 0 {
		c.Backpressure = 4
	}
	if c.Rate <= 0 {
		c.Rate = Source.Rate
	}
	if c.Channels <= 0 {
		c.Channels = Source.Channels
	}
}

// Outcome is what happened to one assembled buffer.
type Outcome int

const (
	Delivered   Outcome = iota // queued on the sink
	Dropped                    // sink too far behind, or queueing failed
	Intercepted                // handled by an Override
	Discarded                  // no sink: produce-and-discard mode
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	case Intercepted:
		return "intercepted"
	case Discarded:
		return "discarded"
	}
	return "unknown"
}

// Stats counts buffers by outcome.
type Stats struct {
	Delivered   uint64
	Dropped     uint64
	Intercepted uint64
	Discarded   uint64
	LastFrames  int // output frames in the last assembled buffer
}

// Pipeline resamples and delivers audio. It is driven from the scheduler
// and is not safe for concurrent use.
type Pipeline struct {
	cfg    Config
	log    *slog.Logger
	sink   Sink
	native Format // assembly format: S16, source rate, sink channels
	conv   *converter

	work  []int16
	bytes []byte
	stats Stats
}

// New opens the host sink through open. A nil opener or a failed open
// leaves the pipeline in produce-and-discard mode.
func New(cfg Config, open SinkOpener, log *slog.Logger) *Pipeline {
	cfg.Defaults()
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{cfg: cfg, log: log}
	p.native = Format{Rate: Source.Rate, Channels: cfg.Channels, Kind: KindS16}
	if open == nil {
		return p
	}
	want := Format{Rate: cfg.Rate, Channels: cfg.Channels, Kind: KindS16}
	sink, err := open(want)
	if err != nil {
		log.Warn("audio sink unavailable, discarding audio", "err", err)
		return p
	}
	p.attach(sink)
	return p
}

func (p *Pipeline) attach(sink Sink) {
	p.sink = sink
	f := sink.Format()
	if f.Channels <= 0 {
		f.Channels = p.native.Channels
	}
	p.native.Channels = f.Channels
	if f != p.native {
		p.conv = newConverter(p.native, f)
		p.log.Debug("audio conversion enabled", "from", p.native, "to", f)
	}
}

// HasSink reports whether a host sink is attached.
func (p *Pipeline) HasSink() bool { return p.sink != nil }

// Format returns the format buffers are assembled in before conversion.
func (p *Pipeline) Format() Format { return p.native }

func (p *Pipeline) Stats() Stats { return p.stats }

// Assemble applies plan to the U8 source frames in src and returns the
// interleaved S16 result. The returned slice is reused by the next call.
func (p *Pipeline) Assemble(src []byte, plan Plan) []int16 {
	srcCh := Source.Channels
	dstCh := p.native.Channels
	n := len(src) / srcCh
	out := p.work[:0]
	if want := plan.Frames(n) * dstCh; cap(out) < want {
		out = make([]int16, 0, want)
	}
	for i := 0; plan.Stride > 0 && i+plan.Stride <= n; i += plan.Stride {
		frame := src[i*srcCh : i*srcCh+srcCh]
		for r := 0; r < plan.Repeat; r++ {
			for c := 0; c < dstCh; c++ {
				out = append(out, int16(int(frame[c%srcCh])-0x80)<<8)
			}
		}
	}
	p.work = out
	return out
}

func (p *Pipeline) encode(samples []int16) []byte {
	n := len(samples) * 2
	if cap(p.bytes) < n {
		p.bytes = make([]byte, n)
	}
	b := p.bytes[:n]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

// Deliver assembles one buffer from src at speed (relative to base) and
// hands it to ov, then to the sink. The whole buffer is dropped when the
// sink already holds more than Backpressure buffers.
func (p *Pipeline) Deliver(src []byte, speed, base float64, ov Override) Outcome {
	samples := p.Assemble(src, PlanFor(speed, base))
	p.stats.LastFrames = len(samples) / p.native.Channels
	buf := p.encode(samples)

	if ov != nil && ov.Intercept(buf, p.native) {
		p.stats.Intercepted++
		return Intercepted
	}
	if p.sink == nil {
		p.stats.Discarded++
		return Discarded
	}
	if p.conv != nil {
		buf = p.conv.convert(samples)
	}
	if p.sink.Queued() > p.cfg.Backpressure*len(buf) {
		p.stats.Dropped++
		return Dropped
	}
	if err := p.sink.Queue(buf); err != nil {
		p.log.Warn("audio queue failed", "err", err)
		p.stats.Dropped++
		return Dropped
	}
	p.stats.Delivered++
	return Delivered
}

// Close releases the sink.
func (p *Pipeline) Close() error {
	if p.sink == nil {
		return nil
	}
	err := p.sink.Close()
	p.sink = nil
	return err
}
