package sound

import (
	"encoding/binary"
	"math"
)

// converter resamples and re-encodes assembled S16 buffers into the sink
// format. Its scratch only grows.
type converter struct {
	from, to Format
	scratch  []byte
}

func newConverter(from, to Format) *converter {
	return &converter{from: from, to: to}
}

func (c *converter) grow(n int) []byte {
	if cap(c.scratch) < n {
		c.scratch = make([]byte, n)
	}
	return c.scratch[:n]
}

// convert takes interleaved samples in c.from (rate, channels) and returns
// bytes in c.to. Channel counts are equal: the copy loop already
// broadcast to the sink's channel count.
func (c *converter) convert(samples []int16) []byte {
	ch := c.from.Channels
	inFrames := len(samples) / ch
	outFrames := inFrames
	if c.from.Rate != c.to.Rate && inFrames > 0 {
		outFrames = int(int64(inFrames) * int64(c.to.Rate) / int64(c.from.Rate))
	}
	size := c.to.Kind.Size()
	out := c.grow(outFrames * ch * size)

	step := float64(c.from.Rate) / float64(c.to.Rate)
	for j := 0; j < outFrames; j++ {
		pos := float64(j) * step
		i0 := int(pos)
		frac := pos - float64(i0)
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		for k := 0; k < ch; k++ {
			s0 := float64(samples[i0*ch+k])
			s1 := float64(samples[i1*ch+k])
			v := s0 + (s1-s0)*frac
			at := (j*ch + k) * size
			switch c.to.Kind {
			case KindU8:
				out[at] = byte(int(math.Round(v))>>8 + 0x80)
			case KindF32:
				binary.LittleEndian.PutUint32(out[at:], math.Float32bits(float32(v/32768)))
			default:
				binary.LittleEndian.PutUint16(out[at:], uint16(int16(math.Round(v))))
			}
		}
	}
	return out
}
